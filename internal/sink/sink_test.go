package sink_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ringlog/internal/config"
	"ringlog/internal/logdev"
	"ringlog/internal/logging"
	"ringlog/internal/ringbuf"
	"ringlog/internal/sink"
)

func TestMemoryAppendAndDump(t *testing.T) {
	ctx := context.Background()
	m, err := sink.NewMemory(logdev.Options{Capacity: 3})
	require.NoError(t, err)
	defer m.Close()

	for _, rec := range []string{"one\n", "two\n", "three\n", "four\n"} {
		require.NoError(t, m.Append(ctx, []byte(rec)))
	}

	var out bytes.Buffer
	n, err := m.Dump(ctx, &out)
	require.NoError(t, err)
	assert.Equal(t, "two\nthree\nfour\n", out.String())
	assert.EqualValues(t, out.Len(), n)

	records, err := sink.Records(ctx, m)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "two\n", string(records[0].Data))
	assert.EqualValues(t, 4, records[1].Offset)
}

// commitOnWrite appends a record to the sink the first time it is written to.
type commitOnWrite struct {
	sink sink.Sink
	rec  []byte
	done bool
	buf  bytes.Buffer
}

func (c *commitOnWrite) Write(p []byte) (int, error) {
	if !c.done {
		c.done = true
		if err := c.sink.Append(context.Background(), c.rec); err != nil {
			return 0, err
		}
	}
	return c.buf.Write(p)
}

func TestMemoryDumpIsConsistentWhileCommitting(t *testing.T) {
	ctx := context.Background()
	m, err := sink.NewMemory(logdev.Options{Capacity: 2})
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Append(ctx, []byte("aaaa\n")))
	require.NoError(t, m.Append(ctx, []byte("bbbb\n")))

	w := &commitOnWrite{sink: m, rec: []byte("cccc\n")}
	n, err := m.Dump(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, "aaaa\nbbbb\n", w.buf.String())
	assert.EqualValues(t, 10, n)

	var next bytes.Buffer
	_, err = m.Dump(ctx, &next)
	require.NoError(t, err)
	assert.Equal(t, "bbbb\ncccc\n", next.String())
}

func TestMemoryReadRecord(t *testing.T) {
	ctx := context.Background()
	m, err := sink.NewMemory(logdev.Options{})
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Append(ctx, []byte("ab\n")))
	require.NoError(t, m.Append(ctx, []byte("cde\n")))

	var out bytes.Buffer
	_, err = m.ReadRecord(ctx, 1, 1, &out)
	require.NoError(t, err)
	assert.Equal(t, "de\n", out.String())

	_, err = m.ReadRecord(ctx, 5, 0, &out)
	assert.ErrorIs(t, err, ringbuf.ErrOutOfRange)
}

func TestMemoryAppendCancelled(t *testing.T) {
	m, err := sink.NewMemory(logdev.Options{})
	require.NoError(t, err)
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Append(ctx, []byte("x\n")), ringbuf.ErrInterrupted)

	records, err := m.Records(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFileLazyCreateAndRemoveOnClose(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "aesdsocketdata")
	f := sink.NewFile(path, logging.NewNop())

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err), "file must not exist before first append")

	var out bytes.Buffer
	n, err := f.Dump(ctx, &out)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, f.Append(ctx, []byte("hello\n")))
	require.NoError(t, f.Append(ctx, []byte("world\n")))

	_, err = f.Dump(ctx, &out)
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld\n", out.String())

	records, err := sink.Records(ctx, f)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.EqualValues(t, 6, records[1].Offset)
	assert.Equal(t, "world\n", string(records[1].Data))

	require.NoError(t, f.Close())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file must be removed on close")
	require.NoError(t, f.Close())
}

func TestFileAppendIOFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "data")
	f := sink.NewFile(path, logging.NewNop())
	err := f.Append(context.Background(), []byte("x\n"))
	assert.ErrorIs(t, err, ringbuf.ErrIO)
}

func TestCharDeviceAvailabilityGate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "aesdchar")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	c := sink.NewCharDevice(path, logging.NewNop())
	require.True(t, c.Available())
	require.NoError(t, c.Append(ctx, []byte("rec\n")))

	var out bytes.Buffer
	_, err := c.Dump(ctx, &out)
	require.NoError(t, err)
	assert.Equal(t, "rec\n", out.String())

	c.SetAvailable(false)
	assert.ErrorIs(t, c.Append(ctx, []byte("x\n")), sink.ErrUnavailable)
	_, err = c.Dump(ctx, &out)
	assert.ErrorIs(t, err, sink.ErrUnavailable)

	c.SetAvailable(true)
	require.NoError(t, c.Close())
	_, err = os.Stat(path)
	assert.NoError(t, err, "device contents belong to the driver")
}

func TestCharDeviceSeekOnRegularFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aesdchar")
	require.NoError(t, os.WriteFile(path, []byte("a\n"), 0o644))

	c := sink.NewCharDevice(path, logging.NewNop())
	var out bytes.Buffer
	_, err := c.ReadRecord(context.Background(), 0, 0, &out)
	assert.ErrorIs(t, err, ringbuf.ErrIO)
}

func TestCharDeviceCancelledContext(t *testing.T) {
	c := sink.NewCharDevice(filepath.Join(t.TempDir(), "aesdchar"), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Append(ctx, []byte("x\n")), ringbuf.ErrInterrupted)
}

func TestNewSelectsKind(t *testing.T) {
	cfg := config.Default()
	cfg.Sink.FilePath = filepath.Join(t.TempDir(), "data")

	s, err := sink.New(&cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Name())
	require.NoError(t, s.Close())

	cfg.Sink.Kind = config.SinkFile
	s, err = sink.New(&cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "file", s.Name())

	cfg.Sink.Kind = config.SinkChardev
	s, err = sink.New(&cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "chardev", s.Name())

	cfg.Sink.Kind = "tape"
	_, err = sink.New(&cfg, nil)
	assert.Error(t, err)
}
