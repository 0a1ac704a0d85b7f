// Package models defines the JSON bodies served by the health endpoint.
package models

import (
	"encoding/json"
	"net/http"
	"time"
)

// Uptime is the process uptime split into whole units.
type Uptime struct {
	Hours        int64 `json:"hours"`
	Minutes      int64 `json:"minutes"`
	Seconds      int64 `json:"seconds"`
	TotalSeconds int64 `json:"total_seconds"`
}

// NewUptime splits d into hours, minutes and seconds.
func NewUptime(d time.Duration) Uptime {
	total := int64(d / time.Second)
	if total < 0 {
		total = 0
	}
	return Uptime{
		Hours:        total / 3600,
		Minutes:      (total % 3600) / 60,
		Seconds:      total % 60,
		TotalSeconds: total,
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status       string          `json:"status"`
	Uptime       Uptime          `json:"uptime"`
	Checks       map[string]bool `json:"checks"`
	FailureCount int64           `json:"failure_count"`
	Message      string          `json:"message"`
}

// ErrorResponse is the body of every non-health response.
type ErrorResponse struct {
	Error string `json:"error"`
	Path  string `json:"path,omitempty"`
}

// Write encodes the error with the given status code.
func (e ErrorResponse) Write(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(e)
}
