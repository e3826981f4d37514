package drive

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Drive allows 10 requests/sec/user; stay under it.
const (
	defaultRequestsPerSecond = 8.0
	defaultBurstSize         = 10
	defaultBackoffSeconds    = 60
)

// RateLimiter paces Drive API requests with a token bucket and honours
// the backoff window signalled by 429 responses.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), defaultBurstSize),
	}
}

// Wait blocks until a request may be made without exceeding the limit.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(retryAt)):
		}
	}

	return r.limiter.Wait(ctx)
}

// RecordRateLimitError sets a backoff window after a 429 response.
func (r *RateLimiter) RecordRateLimitError(retryAfterSeconds int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if retryAfterSeconds <= 0 {
		retryAfterSeconds = defaultBackoffSeconds
	}
	r.retryAt = time.Now().Add(time.Duration(retryAfterSeconds) * time.Second)
}
