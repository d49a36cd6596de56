package workers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ringlog/internal/workers"
)

func TestSpawnReap(t *testing.T) {
	reg := workers.New(context.Background())
	errBoom := errors.New("boom")

	task, err := reg.Spawn("fails", func(context.Context) error { return errBoom })
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	require.ErrorIs(t, task.Wait(), errBoom)

	select {
	case <-reg.Finished():
	case <-time.After(time.Second):
		t.Fatal("expected completion notification")
	}

	reaped := reg.Reap()
	require.Len(t, reaped, 1)
	assert.Equal(t, "fails", reaped[0].Name)
	assert.Equal(t, 0, reg.Active())
}

func TestShutdownCancelsAndJoins(t *testing.T) {
	reg := workers.New(context.Background())
	release := make(chan struct{})
	for i := 0; i < 4; i++ {
		_, err := reg.Spawn("blocked", func(ctx context.Context) error {
			<-ctx.Done()
			<-release
			return ctx.Err()
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 4, reg.Active())

	close(release)
	require.NoError(t, reg.Shutdown(context.Background()))
	reaped := reg.Reap()
	require.Len(t, reaped, 4)
	for _, task := range reaped {
		assert.ErrorIs(t, task.Wait(), context.Canceled)
	}
	assert.Equal(t, 0, reg.Active())

	_, err := reg.Spawn("late", func(context.Context) error { return nil })
	require.ErrorIs(t, err, workers.ErrShutdown)
}

func TestShutdownHonoursDeadline(t *testing.T) {
	reg := workers.New(context.Background())
	release := make(chan struct{})
	defer close(release)
	_, err := reg.Spawn("stuck", func(context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, reg.Shutdown(ctx), context.DeadlineExceeded)
}

func TestPanicBecomesError(t *testing.T) {
	reg := workers.New(context.Background())
	task, err := reg.Spawn("panics", func(context.Context) error { panic("bad") })
	require.NoError(t, err)
	require.ErrorContains(t, task.Wait(), "panicked")
	require.NoError(t, reg.Shutdown(context.Background()))
}
