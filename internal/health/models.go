// Package health computes the bot's self-reported health: dependency
// reachability, memory pressure and a consecutive-failure counter that
// escalates Degraded to Critical.
package health

import (
	"net/http"
	"time"
)

// Status is the aggregate health of the process.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

// HTTPStatus returns the status code the health endpoint answers with.
func (s Status) HTTPStatus() int {
	switch s {
	case StatusHealthy:
		return http.StatusOK
	case StatusDegraded:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Check names.
const (
	CheckTelegram       = "telegram_reachable"
	CheckTranslationAPI = "translation_api_reachable"
	CheckMemory         = "memory_ok"
	CheckFunctional     = "functional_ok"
)

// CriticalThreshold is the consecutive-failure count at which an unhealthy
// cycle is reported as Critical.
const CriticalThreshold = 3

// DefaultMemoryThreshold is the resident memory fraction above which
// memory_ok fails.
const DefaultMemoryThreshold = 0.85

// Snapshot is the result of one health check cycle.
type Snapshot struct {
	Status       Status
	Uptime       time.Duration
	FailureCount int64
	Checks       map[string]bool
	Message      string
	CheckedAt    time.Time
}

// Healthy reports whether every check passed.
func (s Snapshot) Healthy() bool {
	return s.Status == StatusHealthy
}

// FailedChecks returns the names of failing checks in a fixed order.
func (s Snapshot) FailedChecks() []string {
	var failed []string
	for _, name := range []string{CheckTelegram, CheckTranslationAPI, CheckMemory, CheckFunctional} {
		if ok, present := s.Checks[name]; present && !ok {
			failed = append(failed, name)
		}
	}
	return failed
}
