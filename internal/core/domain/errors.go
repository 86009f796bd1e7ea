package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Extraction Errors.

	// ErrConfiguration indicates an ambiguous or missing query mode, a malformed
	// list entry, or a path placeholder that no context field can resolve.
	// Configuration errors are raised before any network traffic.
	ErrConfiguration = errors.New("configuration error")

	// ErrTransientRequest indicates a retryable request failure (rate limit, 5xx).
	// The transport retries these; the core only sees them once retries are exhausted.
	ErrTransientRequest = errors.New("transient request error")

	// ErrFatalRequest indicates a non-retryable request failure (401, 404, 410, 422).
	// It aborts the current partition.
	ErrFatalRequest = errors.New("fatal request error")

	// ErrMalformedResponse indicates the response body could not be parsed or
	// does not contain the records container the stream expects.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrRateLimited indicates the API rate limit was exceeded for every credential.
	ErrRateLimited = errors.New("rate limited")

	// ErrAuthInvalid indicates the authentication credentials are invalid.
	ErrAuthInvalid = errors.New("authentication invalid")
)
