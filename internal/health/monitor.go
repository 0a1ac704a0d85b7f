package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/relaytranslate/relaytranslate/internal/telemetry"
)

// MonitorConfig holds configuration for the health monitor.
type MonitorConfig struct {
	State *State

	// BotToken is checked for presence and shape only.
	BotToken string

	// API is pinged on every cycle. If nil, the check fails.
	API Pinger

	// Memory reports process memory. If nil, NopMemoryProbe is used.
	Memory MemoryProbe

	// MemoryThreshold is the maximum resident memory fraction.
	// Default: 0.85
	MemoryThreshold float64

	Metrics *telemetry.TranslationMetrics
	Logger  zerolog.Logger
}

// Monitor runs health check cycles.
type Monitor struct {
	state           *State
	botToken        string
	api             Pinger
	memory          MemoryProbe
	memoryThreshold float64
	metrics         *telemetry.TranslationMetrics
	logger          zerolog.Logger

	mu   sync.RWMutex
	last *Snapshot
}

// NewMonitor creates a health monitor.
func NewMonitor(cfg MonitorConfig) *Monitor {
	state := cfg.State
	if state == nil {
		state = NewState()
	}
	memory := cfg.Memory
	if memory == nil {
		memory = NopMemoryProbe{}
	}
	threshold := cfg.MemoryThreshold
	if threshold <= 0 {
		threshold = DefaultMemoryThreshold
	}

	return &Monitor{
		state:           state,
		botToken:        cfg.BotToken,
		api:             cfg.API,
		memory:          memory,
		memoryThreshold: threshold,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
	}
}

// State returns the shared process state.
func (m *Monitor) State() *State {
	return m.state
}

// Check runs one cycle: evaluates every check, updates the failure counter
// and returns the aggregate snapshot.
func (m *Monitor) Check(ctx context.Context) Snapshot {
	functional := true
	run := func(name string, check func() bool) bool {
		ok, err := guard(check)
		if err != nil {
			functional = false
			m.logger.Error().Err(err).Str("check", name).Msg("health check panicked")
		}
		return ok
	}

	checks := map[string]bool{
		CheckTelegram:       run(CheckTelegram, func() bool { return ValidBotToken(m.botToken) }),
		CheckTranslationAPI: run(CheckTranslationAPI, func() bool { return m.checkAPI(ctx) }),
		CheckMemory:         run(CheckMemory, m.checkMemory),
	}
	checks[CheckFunctional] = functional

	return m.aggregate(checks)
}

func (m *Monitor) aggregate(checks map[string]bool) Snapshot {
	healthy := true
	for _, ok := range checks {
		if !ok {
			healthy = false
			break
		}
	}

	failures := m.state.RecordCycle(healthy)

	snap := Snapshot{
		Uptime:       m.state.Uptime(),
		FailureCount: failures,
		Checks:       checks,
		CheckedAt:    time.Now(),
	}

	switch {
	case healthy:
		snap.Status = StatusHealthy
		snap.Message = "all systems operational"
	case failures < CriticalThreshold:
		snap.Status = StatusDegraded
		snap.Message = fmt.Sprintf("degraded: %d consecutive failed check(s)", failures)
	default:
		snap.Status = StatusCritical
		snap.Message = fmt.Sprintf("critical: %d consecutive failed checks", failures)
	}

	m.metrics.RecordHealth(string(snap.Status), failures)
	m.store(snap)

	return snap
}

// Last returns the most recent snapshot, if any cycle has run. It does not
// start a cycle and leaves the failure counter untouched.
func (m *Monitor) Last() (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.last == nil {
		return Snapshot{}, false
	}
	return *m.last, true
}

func (m *Monitor) store(snap Snapshot) {
	m.mu.Lock()
	prev := m.last
	m.last = &snap
	m.mu.Unlock()

	if prev != nil && prev.Status == snap.Status {
		return
	}

	event := m.logger.Info()
	if !snap.Healthy() {
		event = m.logger.Warn()
	}
	event.
		Str("status", string(snap.Status)).
		Int64("failure_count", snap.FailureCount).
		Strs("failed_checks", snap.FailedChecks()).
		Msg("health status changed")
}

func (m *Monitor) checkAPI(ctx context.Context) bool {
	if m.api == nil {
		return false
	}
	err := m.api.Ping(ctx)
	if err != nil {
		m.logger.Debug().Err(err).Msg("translation api ping failed")
	}
	return APIReachable(err)
}

func (m *Monitor) checkMemory() bool {
	usage, err := m.memory.Usage()
	if err != nil {
		m.logger.Warn().Err(err).Msg("reading memory usage")
		return true
	}
	return usage.Fraction() <= m.memoryThreshold
}

// Run performs a check every interval until ctx is done. A non-positive
// interval disables the self-check and Run returns at once.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// guard runs check and converts a panic into an error.
func guard(check func() bool) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return check(), nil
}
