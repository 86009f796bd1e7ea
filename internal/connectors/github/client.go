package github

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	gh "github.com/google/go-github/v80/github"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/tap-github/internal/core/domain"
	"github.com/custodia-labs/tap-github/internal/core/ports/driven"
	"github.com/custodia-labs/tap-github/internal/logger"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxRetries is the maximum number of retries for transient errors.
	MaxRetries = 3

	// RetryDelay is the initial delay between retries.
	RetryDelay = time.Second
)

// Ensure Client implements the interface.
var _ driven.Transport = (*Client)(nil)

// Client is the GitHub REST transport. It keeps one token pool per
// credential set and one go-github client and rate limiter per token.
type Client struct {
	pools    map[string]*tokenPool
	buffer   int
	maxTries uint
	backOff  func() backoff.BackOff
}

// credential is one token with its own client and quota.
type credential struct {
	label   string
	gh      *gh.Client
	limiter *RateLimiter
}

// tokenPool rotates between the tokens of a credential set.
type tokenPool struct {
	name  string
	mu    sync.Mutex
	creds []*credential
	next  int
}

// NewClient creates a transport for the configuration's credential sets.
// Without any token the default set makes unauthenticated requests.
func NewClient(cfg *domain.TapConfig, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	base, err := baseURL(cfg)
	if err != nil {
		return nil, err
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	c := &Client{
		pools:    make(map[string]*tokenPool),
		buffer:   rateLimitBuffer(cfg),
		maxTries: o.maxTries,
		backOff:  o.backOff,
	}

	sets := cfg.Credentials()
	names := make([]string, 0, len(sets))
	for name := range sets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		tokens := sets[name]
		if len(tokens) == 0 {
			if name != domain.DefaultCredentialSet {
				return nil, fmt.Errorf("%w: credential set %q has no tokens", domain.ErrConfiguration, name)
			}
			logger.Warn("No auth token configured; requests are unauthenticated")
			tokens = []string{""}
		}
		pool := &tokenPool{name: name}
		for i, token := range tokens {
			client := gh.NewClient(newHTTPClient(token, o))
			client.BaseURL = base
			client.UserAgent = userAgent
			pool.creds = append(pool.creds, &credential{
				label:   fmt.Sprintf("%s#%d", name, i+1),
				gh:      client,
				limiter: NewRateLimiter(o.requestRate),
			})
		}
		c.pools[name] = pool
	}

	return c, nil
}

// newHTTPClient stacks token auth over tracing over the base transport.
func newHTTPClient(token string, o options) *http.Client {
	var rt http.RoundTripper = otelhttp.NewTransport(o.transport)
	if token != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   rt,
		}
	}
	return &http.Client{Transport: rt, Timeout: o.timeout}
}

// Do performs one request with retries. Transient failures are retried with
// exponential backoff; rate-limited tokens are rotated out of their pool.
func (c *Client) Do(ctx context.Context, req driven.Request) (*driven.Response, error) {
	pool, err := c.pool(req.CredentialSet)
	if err != nil {
		return nil, err
	}

	op := func() (*driven.Response, error) {
		cred, err := pool.acquire(ctx, c.buffer)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := c.roundTrip(ctx, cred, req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil || !errors.Is(err, domain.ErrTransientRequest) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(c.backOff()),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, d time.Duration) {
			logger.Debug("Retrying %s in %s: %v", req.Path, d, err)
		}),
	)
}

func (c *Client) pool(name string) (*tokenPool, error) {
	if name == "" {
		name = domain.DefaultCredentialSet
	}
	pool, ok := c.pools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %w %q", domain.ErrConfiguration, ErrUnknownCredentialSet, name)
	}
	return pool, nil
}

// roundTrip sends the request with one credential.
func (c *Client) roundTrip(ctx context.Context, cred *credential, req driven.Request) (*driven.Response, error) {
	if err := cred.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	urlStr := strings.TrimPrefix(req.Path, "/")
	if len(req.Query) > 0 {
		urlStr += "?" + req.Query.Encode()
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := cred.gh.NewRequest(method, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request %s: %w", domain.ErrFatalRequest, req.Path, err)
	}
	for k, vs := range req.Header {
		httpReq.Header.Del(k)
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	var body bytes.Buffer
	resp, err := cred.gh.Do(ctx, httpReq, &body)
	if resp != nil {
		cred.limiter.UpdateFromResponse(resp.Response)
	}
	if err != nil {
		return nil, c.wrapError(cred, err, resp)
	}

	logger.Debug("%s %s -> %d (%s, %d remaining)", method, req.Path, resp.StatusCode, cred.label, cred.limiter.Remaining())
	return &driven.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body.Bytes(),
	}, nil
}

// wrapError converts go-github errors to our error types.
func (c *Client) wrapError(cred *credential, err error, resp *gh.Response) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	// Check for rate limit error
	var rateLimitErr *gh.RateLimitError
	if errors.As(err, &rateLimitErr) {
		reset := rateLimitErr.Rate.Reset.Time
		cred.limiter.Exhaust(reset)
		logger.Warn("Token %s rate limited until %s", cred.label, reset.Format(time.RFC3339))
		return &RateLimitError{
			StatusCode: statusOf(rateLimitErr.Response),
			ResetAt:    reset,
			Remaining:  rateLimitErr.Rate.Remaining,
			Limit:      rateLimitErr.Rate.Limit,
		}
	}

	// Check for secondary rate limit error
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		wait := time.Minute
		if abuseErr.RetryAfter != nil {
			wait = *abuseErr.RetryAfter
		} else if resp != nil && resp.Response != nil {
			if d, ok := retryAfter(resp.Header); ok {
				wait = d
			}
		}
		until := time.Now().Add(wait)
		cred.limiter.Exhaust(until)
		logger.Warn("Token %s hit a secondary rate limit, pausing until %s", cred.label, until.Format(time.RFC3339))
		return &RateLimitError{
			StatusCode: statusOf(abuseErr.Response),
			ResetAt:    until,
			Limit:      cred.limiter.Limit(),
			Secondary:  true,
		}
	}

	// Check for GitHub error response
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) {
		apiErr := &APIError{
			StatusCode: statusOf(ghErr.Response),
			Message:    ghErr.Message,
		}
		if ghErr.Response != nil && ghErr.Response.Request != nil {
			apiErr.URL = ghErr.Response.Request.URL.String()
		}
		return apiErr
	}

	// Anything else failed below HTTP: connection resets, timeouts, DNS.
	return fmt.Errorf("%w: %w", domain.ErrTransientRequest, err)
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

// acquire returns a token whose quota is above the buffer, waiting for the
// earliest reset when every token of the pool is exhausted.
func (p *tokenPool) acquire(ctx context.Context, buffer int) (*credential, error) {
	for {
		cred, wait := p.pick(buffer)
		if cred != nil {
			return cred, nil
		}
		logger.Warn("Every token of credential set %s is below the rate limit buffer; waiting %s",
			p.name, wait.Round(time.Second))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// pick keeps using the current token until it runs low, then rotates.
func (p *tokenPool) pick(buffer int) (*credential, time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var earliest time.Time
	for i := range p.creds {
		idx := (p.next + i) % len(p.creds)
		cred := p.creds[idx]
		if cred.limiter.Available(buffer) {
			if idx != p.next {
				logger.Debug("Credential set %s: switching to token %s", p.name, cred.label)
			}
			p.next = idx
			return cred, 0
		}
		if reset := cred.limiter.ResetTime(); earliest.IsZero() || reset.Before(earliest) {
			earliest = reset
		}
	}

	wait := time.Until(earliest)
	if wait < 0 {
		wait = 0
	}
	return nil, wait
}
