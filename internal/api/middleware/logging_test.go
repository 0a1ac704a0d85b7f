package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/relaytranslate/relaytranslate/internal/api/middleware"
)

func serveLogged(t *testing.T, status int, wrap func(http.Handler) http.Handler) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	var handler http.Handler = middleware.Logger(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("response body"))
	}))
	if wrap != nil {
		handler = wrap(handler)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	req.Header.Set("User-Agent", "test-agent")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_LogsRequest(t *testing.T) {
	entry := serveLogged(t, http.StatusOK, nil)

	assert.Equal(t, "request completed", entry["message"])
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/health", entry["path"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, float64(13), entry["bytes"])
	assert.Equal(t, "test-agent", entry["user_agent"])
	assert.NotEmpty(t, entry["duration"])
}

func TestLogger_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{status: http.StatusOK, level: "debug"},
		{status: http.StatusNotFound, level: "warn"},
		{status: http.StatusTooManyRequests, level: "warn"},
		{status: http.StatusServiceUnavailable, level: "error"},
		{status: http.StatusInternalServerError, level: "error"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			entry := serveLogged(t, tt.status, nil)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, float64(tt.status), entry["status"])
		})
	}
}

func TestLogger_IncludesRequestID(t *testing.T) {
	entry := serveLogged(t, http.StatusOK, middleware.RequestID)

	requestID, ok := entry["request_id"].(string)
	assert.True(t, ok)
	assert.Contains(t, requestID, "req_")
}

func TestLogger_IncludesTraceID(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer func() { _ = tp.Shutdown(context.Background()) }()

	entry := serveLogged(t, http.StatusOK, middleware.Tracing())

	traceID, ok := entry["trace_id"].(string)
	assert.True(t, ok)
	assert.Len(t, traceID, 32)

	spanID, ok := entry["span_id"].(string)
	assert.True(t, ok)
	assert.Len(t, spanID, 16)
}

func TestLogger_OmitsTraceIDWithoutSpan(t *testing.T) {
	entry := serveLogged(t, http.StatusOK, nil)

	assert.NotContains(t, entry, "trace_id")
	assert.NotContains(t, entry, "span_id")
}
