package github

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/tap-github/internal/core/domain"
)

// GitHub-specific errors.
var (
	// ErrUnknownCredentialSet indicates a stream names a credential set that is not configured.
	ErrUnknownCredentialSet = errors.New("github: unknown credential set")
)

// RateLimitError represents a rate limit exceeded error with reset time.
type RateLimitError struct {
	StatusCode int
	ResetAt    time.Time
	Remaining  int
	Limit      int

	// Secondary is true for abuse-detection limits.
	Secondary bool
}

func (e *RateLimitError) Error() string {
	kind := "rate limit"
	if e.Secondary {
		kind = "secondary rate limit"
	}
	return fmt.Sprintf("github: %s exceeded, resets at %s", kind, e.ResetAt.Format(time.RFC3339))
}

// Status returns the HTTP status of the response.
func (e *RateLimitError) Status() int {
	if e.StatusCode == 0 {
		return http.StatusForbidden
	}
	return e.StatusCode
}

// Unwrap maps the error onto the domain sentinels.
func (e *RateLimitError) Unwrap() []error {
	return []error{domain.ErrTransientRequest, domain.ErrRateLimited}
}

// APIError represents a GitHub API error response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// Status returns the HTTP status of the response.
func (e *APIError) Status() int {
	return e.StatusCode
}

// Retryable reports whether the request may succeed when repeated.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Unwrap maps the error onto the domain sentinels.
func (e *APIError) Unwrap() []error {
	if e.Retryable() {
		return []error{domain.ErrTransientRequest}
	}
	errs := []error{domain.ErrFatalRequest}
	switch e.StatusCode {
	case http.StatusUnauthorized:
		errs = append(errs, domain.ErrAuthInvalid)
	case http.StatusNotFound:
		errs = append(errs, domain.ErrNotFound)
	}
	return errs
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}
