package github

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/tap-github/internal/core/domain"
)

const (
	// DefaultAPIURL is the public GitHub REST endpoint.
	DefaultAPIURL = "https://api.github.com/"

	// DefaultUserAgent identifies the tap when user_agent is not configured.
	DefaultUserAgent = "tap-github"
)

// options holds the transport settings that are not part of the tap configuration.
type options struct {
	requestRate rate.Limit
	transport   http.RoundTripper
	timeout     time.Duration
	maxTries    uint
	backOff     func() backoff.BackOff
}

func defaultOptions() options {
	return options{
		requestRate: rate.Limit(ProactiveRate),
		transport:   http.DefaultTransport,
		timeout:     DefaultTimeout,
		maxTries:    MaxRetries + 1,
		backOff:     defaultBackOff,
	}
}

// Option configures a Client.
type Option func(*options)

// WithRequestRate sets the proactive per-token request rate.
func WithRequestRate(r rate.Limit) Option {
	return func(o *options) { o.requestRate = r }
}

// WithHTTPTransport sets the round tripper under the tracing and auth layers.
func WithHTTPTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithMaxTries sets the number of attempts per request, including the first.
func WithMaxTries(n uint) Option {
	return func(o *options) { o.maxTries = n }
}

// WithBackOff sets the retry delay policy.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(o *options) { o.backOff = newBackOff }
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryDelay
	b.MaxInterval = time.Minute
	return b
}

// baseURL parses api_url, defaulting to the public API. go-github resolves
// request paths against it, so it always ends with a slash.
func baseURL(cfg *domain.TapConfig) (*url.URL, error) {
	raw := cfg.APIURL
	if raw == "" {
		raw = DefaultAPIURL
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: api_url %q is not an absolute URL", domain.ErrConfiguration, cfg.APIURL)
	}
	return u, nil
}

// rateLimitBuffer returns the configured reserve, defaulting when unset.
func rateLimitBuffer(cfg *domain.TapConfig) int {
	if cfg.RateLimitBuffer == 0 {
		return domain.DefaultRateLimitBuffer
	}
	return cfg.RateLimitBuffer
}
