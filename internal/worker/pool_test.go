package worker_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaytranslate/relaytranslate/internal/worker"
)

func TestDefaultPoolConfig(t *testing.T) {
	cfg := worker.DefaultPoolConfig()

	assert.Equal(t, 5, cfg.Size)
	assert.Equal(t, 100, cfg.QueueSize)
	assert.Equal(t, 20*time.Second, cfg.SlowTaskThreshold)
}

func TestNewPool_AppliesDefaults(t *testing.T) {
	pool := worker.NewPool(worker.PoolConfig{}, zerolog.Nop())
	defer pool.Shutdown(context.Background())

	assert.Equal(t, 5, pool.Size())
}

// submitAndWait queues task and blocks until it has run.
func submitAndWait(t *testing.T, pool *worker.Pool, task worker.Task) {
	t.Helper()

	done := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) {
		defer close(done)
		task(ctx)
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
}

func TestPool_Submit_RunsTask(t *testing.T) {
	pool := worker.NewPool(worker.DefaultPoolConfig(), zerolog.Nop())
	defer pool.Shutdown(context.Background())

	var ran atomic.Bool
	submitAndWait(t, pool, func(context.Context) {
		time.Sleep(20 * time.Millisecond)
		ran.Store(true)
	})

	assert.True(t, ran.Load())
	assert.Equal(t, int64(1), pool.Stats().Submitted.Load())
}

func TestPool_BoundsConcurrency(t *testing.T) {
	pool := worker.NewPool(worker.PoolConfig{Size: 2, QueueSize: 10}, zerolog.Nop())

	var running, peak atomic.Int32
	for i := 0; i < 8; i++ {
		require.NoError(t, pool.Submit(context.Background(), func(context.Context) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			running.Add(-1)
		}))
	}

	require.NoError(t, pool.Shutdown(context.Background()))

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int64(8), pool.Stats().Completed.Load())
}

func TestPool_SlowTaskDoesNotStarveOthers(t *testing.T) {
	pool := worker.NewPool(worker.PoolConfig{Size: 2}, zerolog.Nop())
	defer pool.Shutdown(context.Background())

	release := make(chan struct{})
	defer close(release)
	require.NoError(t, pool.Submit(context.Background(), func(context.Context) { <-release }))

	start := time.Now()
	submitAndWait(t, pool, func(context.Context) {})
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestPool_RecoversPanics(t *testing.T) {
	pool := worker.NewPool(worker.PoolConfig{Size: 1}, zerolog.Nop())
	defer pool.Shutdown(context.Background())

	submitAndWait(t, pool, func(context.Context) { panic("boom") })

	var ran atomic.Bool
	submitAndWait(t, pool, func(context.Context) { ran.Store(true) })

	assert.True(t, ran.Load(), "worker survives a panicking task")
	assert.Equal(t, int64(1), pool.Stats().Panicked.Load())
}

func TestPool_Pending(t *testing.T) {
	pool := worker.NewPool(worker.PoolConfig{Size: 1, QueueSize: 5}, zerolog.Nop())

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func(context.Context) {
		close(started)
		<-release
	}))
	<-started

	for i := 0; i < 3; i++ {
		require.NoError(t, pool.Submit(context.Background(), func(context.Context) {}))
	}
	assert.Equal(t, 3, pool.Pending())

	close(release)
	require.NoError(t, pool.Shutdown(context.Background()))
	assert.Zero(t, pool.Pending())
}

func TestPool_ShutdownDrainsInFlight(t *testing.T) {
	pool := worker.NewPool(worker.PoolConfig{Size: 2}, zerolog.Nop())

	var finished atomic.Int32
	for i := 0; i < 4; i++ {
		require.NoError(t, pool.Submit(context.Background(), func(context.Context) {
			time.Sleep(30 * time.Millisecond)
			finished.Add(1)
		}))
	}

	require.NoError(t, pool.Shutdown(context.Background()))
	assert.Equal(t, int32(4), finished.Load())
}

func TestPool_RejectsAfterShutdown(t *testing.T) {
	pool := worker.NewPool(worker.DefaultPoolConfig(), zerolog.Nop())
	require.NoError(t, pool.Shutdown(context.Background()))

	err := pool.Submit(context.Background(), func(context.Context) {})
	assert.ErrorIs(t, err, worker.ErrPoolClosed)

	assert.NoError(t, pool.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestPool_ShutdownTimeout(t *testing.T) {
	pool := worker.NewPool(worker.PoolConfig{Size: 1}, zerolog.Nop())

	release := make(chan struct{})
	defer close(release)
	require.NoError(t, pool.Submit(context.Background(), func(context.Context) { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := pool.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPool_SubmitHonoursContextWhenQueueFull(t *testing.T) {
	pool := worker.NewPool(worker.PoolConfig{Size: 1, QueueSize: 1}, zerolog.Nop())

	release := make(chan struct{})
	defer close(release)

	started := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func(context.Context) {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, pool.Submit(context.Background(), func(context.Context) {}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := pool.Submit(ctx, func(context.Context) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
