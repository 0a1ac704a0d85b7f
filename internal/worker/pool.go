package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ErrPoolClosed is returned when a task is submitted after Shutdown.
var ErrPoolClosed = errors.New("worker pool is closed")

// Task is a unit of work run by the pool.
type Task func(ctx context.Context)

// Pool is a fixed-size worker pool with a bounded queue.
type Pool struct {
	config PoolConfig
	logger zerolog.Logger

	tasks chan job
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	stats *Stats
}

type job struct {
	ctx  context.Context
	task Task
}

// Stats tracks pool counters.
type Stats struct {
	Submitted atomic.Int64
	Completed atomic.Int64
	Panicked  atomic.Int64
	Active    atomic.Int64
}

// NewPool starts cfg.Size workers.
func NewPool(cfg PoolConfig, logger zerolog.Logger) *Pool {
	cfg = cfg.withDefaults()

	p := &Pool{
		config: cfg,
		logger: logger,
		tasks:  make(chan job, cfg.QueueSize),
		stats:  &Stats{},
	}

	for i := 0; i < cfg.Size; i++ {
		p.wg.Add(1)
		go func(workerID int) {
			defer p.wg.Done()
			p.work(workerID)
		}(i)
	}

	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.config.Size
}

// Stats returns the live pool counters.
func (p *Pool) Stats() *Stats {
	return p.stats
}

// Pending returns the number of queued tasks not yet picked up.
func (p *Pool) Pending() int {
	return len(p.tasks)
}

// Submit queues task and returns without waiting for it to run. It blocks
// while the queue is full, until ctx is done.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- job{ctx: ctx, task: task}:
		p.stats.Submitted.Add(1)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queueing task: %w", ctx.Err())
	}
}

// Shutdown stops accepting tasks and waits for queued and in-flight tasks to
// finish, or for ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		p.logger.Info().
			Int64("completed", p.stats.Completed.Load()).
			Msg("worker pool drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("draining worker pool: %w", ctx.Err())
	}
}

func (p *Pool) work(workerID int) {
	for j := range p.tasks {
		p.run(workerID, j)
	}
}

func (p *Pool) run(workerID int, j job) {
	start := time.Now()
	p.stats.Active.Add(1)

	defer func() {
		if r := recover(); r != nil {
			p.stats.Panicked.Add(1)
			p.logger.Error().
				Int("worker", workerID).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("task panicked")
		}

		p.stats.Active.Add(-1)
		p.stats.Completed.Add(1)

		if elapsed := time.Since(start); elapsed > p.config.SlowTaskThreshold {
			p.logger.Warn().
				Int("worker", workerID).
				Dur("duration", elapsed).
				Msg("slow task")
		}
	}()

	j.task(j.ctx)
}
