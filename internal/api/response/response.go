// Package response provides utilities for HTTP response handling.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/relaytranslate/relaytranslate/internal/api/middleware"
	"github.com/relaytranslate/relaytranslate/internal/api/models"
)

// JSON writes a JSON response with the given status code.
// Includes X-Request-Id header for correlation.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// NotFound writes a 404 naming the requested path.
func NotFound(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusNotFound, models.ErrorResponse{Error: "not found", Path: r.URL.Path})
}

// MethodNotAllowed writes a 405 naming the requested path.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusMethodNotAllowed, models.ErrorResponse{Error: "method not allowed", Path: r.URL.Path})
}
