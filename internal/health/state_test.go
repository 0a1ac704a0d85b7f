package health_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/relaytranslate/relaytranslate/internal/health"
)

func TestState_Uptime(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	state := health.NewStateWithClock(func() time.Time { return now })

	now = now.Add(90 * time.Minute)

	assert.Equal(t, 90*time.Minute, state.Uptime())
	assert.Equal(t, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), state.StartedAt())
}

func TestState_RecordCycle(t *testing.T) {
	state := health.NewState()

	assert.Equal(t, int64(1), state.RecordCycle(false))
	assert.Equal(t, int64(2), state.RecordCycle(false))
	assert.Equal(t, int64(0), state.RecordCycle(true))
	assert.Equal(t, int64(1), state.RecordCycle(false))
	assert.Equal(t, int64(4), state.Cycles())
}

func TestState_RecordCycle_Concurrent(t *testing.T) {
	state := health.NewState()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state.RecordCycle(false)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), state.FailureCount())
}

func TestMemoryUsage_Fraction(t *testing.T) {
	assert.InDelta(t, 0.5, health.MemoryUsage{ResidentBytes: 50, TotalBytes: 100}.Fraction(), 1e-9)
	assert.Zero(t, health.MemoryUsage{ResidentBytes: 50}.Fraction())
}

func TestNewMemoryProbe(t *testing.T) {
	probe := health.NewMemoryProbe()
	assert.NotNil(t, probe)

	usage, err := probe.Usage()
	assert.NoError(t, err)
	assert.LessOrEqual(t, usage.Fraction(), 1.0)
}
