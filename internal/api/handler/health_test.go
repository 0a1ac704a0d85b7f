package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaytranslate/relaytranslate/internal/api/handler"
	"github.com/relaytranslate/relaytranslate/internal/api/models"
	"github.com/relaytranslate/relaytranslate/internal/health"
)

type checkerFunc func(ctx context.Context) health.Snapshot

func (f checkerFunc) Check(ctx context.Context) health.Snapshot { return f(ctx) }

func snapshot(status health.Status, failures int64) health.Snapshot {
	return health.Snapshot{
		Status:       status,
		Uptime:       time.Hour + 2*time.Minute + 3*time.Second,
		FailureCount: failures,
		Checks: map[string]bool{
			health.CheckTelegram:       true,
			health.CheckTranslationAPI: status == health.StatusHealthy,
			health.CheckMemory:         true,
			health.CheckFunctional:     true,
		},
		Message: "msg",
	}
}

func TestHealthHandler_StatusCodes(t *testing.T) {
	tests := []struct {
		status   health.Status
		failures int64
		wantCode int
	}{
		{status: health.StatusHealthy, failures: 0, wantCode: http.StatusOK},
		{status: health.StatusDegraded, failures: 1, wantCode: http.StatusServiceUnavailable},
		{status: health.StatusCritical, failures: 3, wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			h := handler.NewHealthHandler(checkerFunc(func(context.Context) health.Snapshot {
				return snapshot(tt.status, tt.failures)
			}), health.NewState(), zerolog.Nop())

			rec := httptest.NewRecorder()
			h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body models.HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(tt.status), body.Status)
			assert.Equal(t, tt.failures, body.FailureCount)
			assert.Equal(t, models.Uptime{Hours: 1, Minutes: 2, Seconds: 3, TotalSeconds: 3723}, body.Uptime)
			assert.Len(t, body.Checks, 4)
			assert.Equal(t, "msg", body.Message)
		})
	}
}

func TestHealthHandler_WireFormat(t *testing.T) {
	h := handler.NewHealthHandler(checkerFunc(func(context.Context) health.Snapshot {
		return snapshot(health.StatusHealthy, 0)
	}), nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	for _, key := range []string{"status", "uptime", "checks", "failure_count", "message"} {
		assert.Contains(t, raw, key)
	}

	var uptime map[string]int64
	require.NoError(t, json.Unmarshal(raw["uptime"], &uptime))
	assert.Equal(t, map[string]int64{"hours": 1, "minutes": 2, "seconds": 3, "total_seconds": 3723}, uptime)
}

func TestHealthHandler_CheckerPanics(t *testing.T) {
	state := health.NewState()
	state.RecordCycle(false)
	state.RecordCycle(false)

	h := handler.NewHealthHandler(checkerFunc(func(context.Context) health.Snapshot {
		panic("probe exploded")
	}), state, zerolog.Nop())

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body models.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "critical", body.Status)
	assert.Equal(t, int64(2), body.FailureCount)
	assert.Equal(t, map[string]bool{health.CheckFunctional: false}, body.Checks)
	assert.NotContains(t, rec.Body.String(), "probe exploded")
}
