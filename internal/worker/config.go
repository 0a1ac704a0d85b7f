// Package worker runs translation calls on a bounded pool of goroutines so
// the chat receive loop never waits on network I/O.
package worker

import (
	"time"
)

// PoolConfig holds configuration for the worker pool.
type PoolConfig struct {
	// Size is the number of concurrent workers.
	// Default: 5
	Size int

	// QueueSize is the number of tasks that may wait for a free worker
	// before Submit blocks.
	// Default: 100
	QueueSize int

	// SlowTaskThreshold logs tasks that run longer than this.
	// Default: 20 seconds
	SlowTaskThreshold time.Duration
}

// DefaultPoolConfig returns the default pool configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Size:              5,
		QueueSize:         100,
		SlowTaskThreshold: 20 * time.Second,
	}
}

func (c PoolConfig) withDefaults() PoolConfig {
	def := DefaultPoolConfig()
	if c.Size <= 0 {
		c.Size = def.Size
	}
	if c.QueueSize <= 0 {
		c.QueueSize = def.QueueSize
	}
	if c.SlowTaskThreshold <= 0 {
		c.SlowTaskThreshold = def.SlowTaskThreshold
	}
	return c
}
