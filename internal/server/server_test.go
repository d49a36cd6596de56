package server_test

import (
	"context"
	"fmt"
	"io"
	"net"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ringlog/internal/config"
	"ringlog/internal/logdev"
	"ringlog/internal/logging"
	"ringlog/internal/server"
	"ringlog/internal/sink"
)

type recorded struct {
	source string
	connID string
	data   string
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []recorded
}

func (f *fakeRecorder) Record(_ context.Context, source, connID string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, recorded{source: source, connID: connID, data: string(payload)})
	return nil
}

func (f *fakeRecorder) snapshot() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recorded(nil), f.entries...)
}

func startServer(t *testing.T, mutate func(*config.Config), rec server.Recorder) (*server.Server, *sink.Memory) {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Bind = "127.0.0.1:0"
	cfg.Server.ReadTimeoutSeconds = 5
	if mutate != nil {
		mutate(&cfg)
	}
	mem, err := sink.NewMemory(logdev.Options{Capacity: cfg.Buffer.Capacity, MaxRecordBytes: cfg.Buffer.MaxRecordBytes})
	require.NoError(t, err)
	t.Cleanup(func() { mem.Close() })

	srv := server.New(&cfg, mem, rec, logging.NewNop())
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	})
	return srv, mem
}

func exchange(t *testing.T, addr net.Addr, parts ...string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()
	for i, part := range parts {
		if i > 0 {
			time.Sleep(20 * time.Millisecond)
		}
		_, err := conn.Write([]byte(part))
		require.NoError(t, err)
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	reply, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(reply)
}

func stopServer(t *testing.T, srv *server.Server) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
}

func TestEachConnectionReceivesWholeLog(t *testing.T) {
	rec := &fakeRecorder{}
	srv, _ := startServer(t, nil, rec)

	assert.Equal(t, "first\n", exchange(t, srv.Addr(), "first\n"))
	assert.Equal(t, "first\nsecond\n", exchange(t, srv.Addr(), "sec", "ond\n"))

	stopServer(t, srv)
	entries := rec.snapshot()
	require.Len(t, entries, 2)
	assert.Equal(t, "first\n", entries[0].data)
	assert.NotEmpty(t, entries[0].connID)
	assert.NotEqual(t, entries[0].connID, entries[1].connID)

	stats := srv.Stats()
	assert.EqualValues(t, 2, stats.Accepted)
	assert.EqualValues(t, 2, stats.Committed)
}

func TestBytesAfterTerminatorAreDiscarded(t *testing.T) {
	srv, mem := startServer(t, nil, nil)

	assert.Equal(t, "a\n", exchange(t, srv.Addr(), "a\nb\n"))

	stopServer(t, srv)
	records, err := mem.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a\n", string(records[0].Data))
}

func TestOversizedRecordAbortsConnection(t *testing.T) {
	srv, mem := startServer(t, func(cfg *config.Config) { cfg.Buffer.MaxRecordBytes = 8 }, nil)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	_, err = conn.Write([]byte("0123456789abcdef\n"))
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	reply, _ := io.ReadAll(conn)
	conn.Close()
	assert.Empty(t, reply)

	assert.Equal(t, "ok\n", exchange(t, srv.Addr(), "ok\n"))

	stopServer(t, srv)
	records, err := mem.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ok\n", string(records[0].Data))
	assert.EqualValues(t, 1, srv.Stats().Failed)
}

func TestClientCloseWithoutTerminatorStoresNothing(t *testing.T) {
	srv, mem := startServer(t, nil, nil)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	_, err = conn.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	stopServer(t, srv)
	records, err := mem.Records(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestConcurrentClientsCommitIntactRecords(t *testing.T) {
	const clients = 8
	srv, mem := startServer(t, nil, nil)

	var wg sync.WaitGroup
	replies := make([]string, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn, err := net.Dial("tcp", srv.Addr().String())
			if err != nil {
				return
			}
			defer conn.Close()
			if _, err := fmt.Fprintf(conn, "client-%d-payload\n", i); err != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			data, _ := io.ReadAll(conn)
			replies[i] = string(data)
		}(i)
	}
	wg.Wait()

	for i, reply := range replies {
		assert.Contains(t, reply, fmt.Sprintf("client-%d-payload\n", i))
	}

	stopServer(t, srv)
	records, err := mem.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, clients)
	got := make([]string, 0, clients)
	for _, r := range records {
		got = append(got, string(r.Data))
	}
	sort.Strings(got)
	want := make([]string, 0, clients)
	for i := 0; i < clients; i++ {
		want = append(want, fmt.Sprintf("client-%d-payload\n", i))
	}
	sort.Strings(want)
	assert.Equal(t, want, got)
}

func TestStopJoinsIdleConnections(t *testing.T) {
	srv, _ := startServer(t, nil, nil)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return srv.Stats().Accepted == 1 }, 2*time.Second, 10*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- srv.Stop(ctx)
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not join the idle connection")
	}
	assert.Nil(t, srv.Addr())

	_, err = net.DialTimeout("tcp", conn.RemoteAddr().String(), 200*time.Millisecond)
	assert.Error(t, err)
}

func TestStartTwiceFails(t *testing.T) {
	srv, _ := startServer(t, nil, nil)
	assert.Error(t, srv.Start(context.Background()))
}
