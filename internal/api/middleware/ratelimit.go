package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/relaytranslate/relaytranslate/internal/api/models"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	// Requests per window
	RequestLimit int
	// Window duration
	WindowLength time.Duration
}

// HealthRateLimit applies to the health endpoint (60 req/min per IP).
var HealthRateLimit = RateLimitConfig{
	RequestLimit: 60,
	WindowLength: time.Minute,
}

// RateLimitByIP creates a rate limiter keyed by the client IP. Uses
// X-Forwarded-For when chi's RealIP middleware runs first.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(cfg.WindowLength.Seconds()))

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			// httprate does not expose the reset time; the window is an upper bound.
			w.Header().Set("Retry-After", retryAfter)
			models.ErrorResponse{
				Error: "rate limit exceeded",
				Path:  r.URL.Path,
			}.Write(w, http.StatusTooManyRequests)
		}),
	)
}
