package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Common errors returned by completion clients.
var (
	// ErrAuth indicates an authentication error (missing/invalid API key).
	ErrAuth = errors.New("completion API authentication error")

	// ErrRateLimited indicates the rate limit has been exceeded.
	ErrRateLimited = errors.New("completion API rate limit exceeded")

	// ErrInvalidResponse indicates an unexpected or empty API response.
	ErrInvalidResponse = errors.New("invalid response from completion API")

	// ErrUnavailable indicates a server-side failure at the vendor.
	ErrUnavailable = errors.New("completion API unavailable")
)

// APIError represents an error response from a completion API.
type APIError struct {
	StatusCode int
	Code       string // Error code from the API (e.g., "rate_limited")
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("completion API error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
}

// IsTransient reports whether an error is worth retrying: timeouts, network
// failures, rate limiting, and server-side errors. Authentication failures
// and malformed requests are fatal and must not be retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable) {
		return true
	}
	if errors.Is(err, ErrAuth) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}

// IsAuthError reports whether an error indicates an authentication problem.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrAuth) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}
	return false
}

// IsRateLimited reports whether an error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}
