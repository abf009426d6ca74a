package shodan

import (
	"fmt"
	"net/http"
)

// Error is a Shodan failure with a stable reason code.
type Error struct {
	reason    string
	message   string
	retryable bool
}

func (e *Error) Error() string { return e.message }

// Reason is a stable machine-readable failure code.
func (e *Error) Reason() string { return e.reason }

// Retryable reports whether a later attempt may succeed.
func (e *Error) Retryable() bool { return e.retryable }

var (
	// ErrUnauthorized is returned for a rejected API key.
	ErrUnauthorized = &Error{reason: "unauthorized", message: "shodan: unauthorized, check API key"}
	// ErrRateLimited is returned when Shodan throttles the key.
	ErrRateLimited = &Error{reason: "rate_limited", message: "shodan: rate limit exceeded", retryable: true}
)

// APIError is an unexpected HTTP status from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shodan: HTTP %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Reason is a stable machine-readable failure code.
func (e *APIError) Reason() string { return "api_error" }

// Retryable reports true for server-side failures.
func (e *APIError) Retryable() bool { return e.StatusCode >= http.StatusInternalServerError }

// NetworkError wraps a transport failure talking to the API.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "shodan: request failed: " + e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }

// Reason is a stable machine-readable failure code.
func (e *NetworkError) Reason() string { return "network" }

// Retryable is always true for transport failures.
func (e *NetworkError) Retryable() bool { return true }
