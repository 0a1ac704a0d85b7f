// Package api provides the health HTTP server of the bot.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/relaytranslate/relaytranslate/internal/api/handler"
	"github.com/relaytranslate/relaytranslate/internal/api/middleware"
	"github.com/relaytranslate/relaytranslate/internal/api/response"
	"github.com/relaytranslate/relaytranslate/internal/health"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger  zerolog.Logger
	Metrics *middleware.Metrics
	Checker handler.Checker
	State   *health.State

	// RateLimit overrides middleware.HealthRateLimit.
	RateLimit *middleware.RateLimitConfig
}

// NewRouter creates the health router. GET / and GET /health report health;
// every other path answers 404 JSON.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	limit := middleware.HealthRateLimit
	if cfg.RateLimit != nil {
		limit = *cfg.RateLimit
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RateLimitByIP(limit))
	r.Use(middleware.ContentTypeJSON)

	healthHandler := handler.NewHealthHandler(cfg.Checker, cfg.State, cfg.Logger)

	r.Get("/", healthHandler.Health)
	r.Get("/health", healthHandler.Health)

	r.NotFound(response.NotFound)
	r.MethodNotAllowed(response.MethodNotAllowed)

	return r
}
