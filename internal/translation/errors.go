package translation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies a failed translation call.
type ErrorKind string

const (
	// KindTimeout means the request exceeded its deadline. Callers may retry.
	KindTimeout ErrorKind = "timeout"
	// KindRateLimited means the API answered 429. Callers should back off.
	KindRateLimited ErrorKind = "rate_limited"
	// KindQuotaExhausted means the account is out of balance (402).
	KindQuotaExhausted ErrorKind = "quota_exhausted"
	// KindAuthFailure means the API key was rejected (401/403).
	KindAuthFailure ErrorKind = "auth_failure"
	// KindMalformedResponse means the response had no usable completion.
	KindMalformedResponse ErrorKind = "malformed_response"
	// KindNetworkFailure covers connectivity faults and unexpected statuses.
	KindNetworkFailure ErrorKind = "network_failure"
)

// Error is returned by Client for every failed call.
type Error struct {
	Kind ErrorKind
	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("translation %s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("translation %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind carried by err, or "" if err is not a
// translation error.
func KindOf(err error) ErrorKind {
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Kind
	}
	return ""
}

// HadResponse reports whether err came from an HTTP response rather than a
// transport failure.
func HadResponse(err error) bool {
	var terr *Error
	return errors.As(err, &terr) && terr.StatusCode != 0
}

// classifyStatus maps a non-2xx status to an error kind.
func classifyStatus(status int, body []byte) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuthFailure
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusPaymentRequired || mentionsInsufficientBalance(body):
		return KindQuotaExhausted
	default:
		return KindNetworkFailure
	}
}

// classifyTransport maps an error from the HTTP client to an error kind.
func classifyTransport(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindNetworkFailure
}
