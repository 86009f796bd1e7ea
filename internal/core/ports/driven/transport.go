package driven

import (
	"context"
	"net/http"
	"net/url"
)

// Request is a fully resolved request for one page of a stream partition.
type Request struct {
	// Method is the HTTP method. Empty means GET.
	Method string

	// Path is the resolved URL path, relative to the API base URL.
	Path string

	// Query holds the query parameters, including the page token.
	Query url.Values

	// Header holds stream-specific headers such as Accept.
	Header http.Header

	// CredentialSet names the credentials to authenticate with. Empty means default.
	CredentialSet string
}

// Response is the result of one round trip.
type Response struct {
	// StatusCode is the HTTP status.
	StatusCode int

	// Header holds the response headers; paginators read Link from it.
	Header http.Header

	// Body is the raw response body.
	Body []byte
}

// Transport performs authenticated HTTP round trips against the remote API.
// Implementations own credentials, rate limiting and retries.
//
// Errors must unwrap to domain.ErrTransientRequest when the request may
// succeed later, or to domain.ErrFatalRequest otherwise. Errors carrying an
// HTTP status should implement StatusError.
type Transport interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// StatusError is implemented by transport errors that carry an HTTP status.
type StatusError interface {
	error
	Status() int
}
