// Package handler provides the HTTP handlers of the health server.
package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/relaytranslate/relaytranslate/internal/api/middleware"
	"github.com/relaytranslate/relaytranslate/internal/api/models"
	"github.com/relaytranslate/relaytranslate/internal/api/response"
	"github.com/relaytranslate/relaytranslate/internal/health"
)

// Checker runs one health cycle.
type Checker interface {
	Check(ctx context.Context) health.Snapshot
}

// HealthHandler serves the self-reported health of the bot.
type HealthHandler struct {
	checker Checker
	state   *health.State
	logger  zerolog.Logger
}

// NewHealthHandler creates a HealthHandler. state supplies uptime and the
// failure count when the checker itself fails.
func NewHealthHandler(checker Checker, state *health.State, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{checker: checker, state: state, logger: logger}
}

// Health handles GET /health and GET / - runs a check cycle and answers
// 200, 503 or 500 for healthy, degraded and critical.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	snap, err := h.check(r.Context())
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("health check failed")
		response.JSON(w, r, http.StatusInternalServerError, h.failure())
		return
	}

	response.JSON(w, r, snap.Status.HTTPStatus(), toResponse(snap))
}

func (h *HealthHandler) check(ctx context.Context) (snap health.Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("health check panicked: %v", r)
		}
	}()
	return h.checker.Check(ctx), nil
}

// failure is the body returned when no snapshot could be produced.
func (h *HealthHandler) failure() models.HealthResponse {
	body := models.HealthResponse{
		Status:  string(health.StatusCritical),
		Checks:  map[string]bool{health.CheckFunctional: false},
		Message: "health check failed",
	}
	if h.state != nil {
		body.Uptime = models.NewUptime(h.state.Uptime())
		body.FailureCount = h.state.FailureCount()
	}
	return body
}

func toResponse(snap health.Snapshot) models.HealthResponse {
	checks := snap.Checks
	if checks == nil {
		checks = map[string]bool{}
	}
	return models.HealthResponse{
		Status:       string(snap.Status),
		Uptime:       models.NewUptime(snap.Uptime),
		Checks:       checks,
		FailureCount: snap.FailureCount,
		Message:      snap.Message,
	}
}
