package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles all callers hitting an external source to a shared
// requests-per-minute ceiling. Wait blocks until capacity is available
// instead of failing, and honours a backoff window recorded after an
// upstream 429.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

func New(requestsPerMinute int) *Limiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1),
	}
}

// Wait suspends the caller until a request may be issued.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if until := time.Until(retryAt); until > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(until):
		}
	}

	return l.limiter.Wait(ctx)
}

// RecordThrottle pushes all callers back after the upstream signalled a
// rate-limit violation.
func (l *Limiter) RecordThrottle(backoff time.Duration) {
	if backoff <= 0 {
		backoff = time.Minute
	}
	l.mu.Lock()
	l.retryAt = time.Now().Add(backoff)
	l.mu.Unlock()
}
