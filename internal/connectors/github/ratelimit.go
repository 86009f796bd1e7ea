package github

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// GitHubRateLimit is the authenticated rate limit (5000/hour).
	GitHubRateLimit = 5000

	// ProactiveRate is the proactive throttle rate (~1.2 req/sec = 4320/hr).
	ProactiveRate = 1.2

	// HeaderRateLimit is the rate limit header.
	HeaderRateLimit = "X-RateLimit-Limit"

	// HeaderRateRemaining is the remaining requests header.
	HeaderRateRemaining = "X-RateLimit-Remaining"

	// HeaderRateReset is the reset timestamp header (Unix seconds).
	HeaderRateReset = "X-RateLimit-Reset"

	// HeaderRetryAfter is the retry-after header (seconds).
	HeaderRetryAfter = "Retry-After"
)

// RateLimiter tracks the quota of one token and throttles its requests.
type RateLimiter struct {
	mu        sync.Mutex
	remaining int           // From API header
	limit     int           // From API header
	resetTime time.Time     // From API header
	bucket    *rate.Limiter // Proactive throttling
}

// NewRateLimiter creates a rate limiter throttling to perSecond requests.
func NewRateLimiter(perSecond rate.Limit) *RateLimiter {
	return &RateLimiter{
		remaining: GitHubRateLimit, // Assume full quota initially
		limit:     GitHubRateLimit,
		bucket:    rate.NewLimiter(perSecond, 1),
	}
}

// Wait blocks until the token bucket admits a request.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.bucket.Wait(ctx)
}

// Available reports whether the token may be used while keeping buffer
// requests in reserve. A buffer at or above the token's limit is ignored,
// so small quotas are used up entirely. Once the reset time has passed the
// quota counts as refilled.
func (r *RateLimiter) Available(buffer int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if buffer >= r.limit {
		buffer = 0
	}
	if r.remaining > buffer {
		return true
	}
	return !time.Now().Before(r.resetTime)
}

// Exhaust marks the quota as used up until the given time.
func (r *RateLimiter) Exhaust(until time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remaining = 0
	if until.After(r.resetTime) {
		r.resetTime = until
	}
}

// UpdateFromResponse updates rate limit state from response headers.
func (r *RateLimiter) UpdateFromResponse(resp *http.Response) {
	if resp == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Parse X-RateLimit-Remaining
	if remaining := resp.Header.Get(HeaderRateRemaining); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			r.remaining = val
		}
	}

	// Parse X-RateLimit-Limit
	if limit := resp.Header.Get(HeaderRateLimit); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			r.limit = val
		}
	}

	// Parse X-RateLimit-Reset (Unix timestamp)
	if reset := resp.Header.Get(HeaderRateReset); reset != "" {
		if val, err := strconv.ParseInt(reset, 10, 64); err == nil {
			r.resetTime = time.Unix(val, 0)
		}
	}
}

// Remaining returns the current remaining requests.
func (r *RateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining
}

// Limit returns the rate limit.
func (r *RateLimiter) Limit() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limit
}

// ResetTime returns the rate limit reset time.
func (r *RateLimiter) ResetTime() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resetTime
}

// retryAfter parses a Retry-After header in seconds.
func retryAfter(h http.Header) (time.Duration, bool) {
	v := h.Get(HeaderRetryAfter)
	if v == "" {
		return 0, false
	}
	seconds, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}
