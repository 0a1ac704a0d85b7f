package health

import (
	"sync/atomic"
	"time"
)

// State holds process-wide counters shared by the health endpoint and the
// chat commands. The failure counter is updated atomically; it is never
// guarded by a lock.
type State struct {
	startedAt time.Time
	now       func() time.Time
	failures  atomic.Int64
	cycles    atomic.Int64
}

// NewState records the current time as process start.
func NewState() *State {
	return NewStateWithClock(time.Now)
}

// NewStateWithClock is NewState with an injectable clock.
func NewStateWithClock(now func() time.Time) *State {
	return &State{startedAt: now(), now: now}
}

// StartedAt returns the process start time.
func (s *State) StartedAt() time.Time {
	return s.startedAt
}

// Uptime returns the time since process start.
func (s *State) Uptime() time.Duration {
	return s.now().Sub(s.startedAt)
}

// FailureCount returns the current consecutive-failure count.
func (s *State) FailureCount() int64 {
	return s.failures.Load()
}

// Cycles returns the number of recorded check cycles.
func (s *State) Cycles() int64 {
	return s.cycles.Load()
}

// RecordCycle resets the failure counter after a fully healthy cycle and
// increments it by one otherwise. It returns the new count.
func (s *State) RecordCycle(healthy bool) int64 {
	s.cycles.Add(1)
	if healthy {
		s.failures.Store(0)
		return 0
	}
	return s.failures.Add(1)
}
