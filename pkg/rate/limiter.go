// Package rate limits operations per key, such as submissions per fee payer.
package rate

import (
	"math"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter limits operations based on a provided key.
type Limiter interface {
	Allow(key string) (bool, error)
}

// maxIdleKeys bounds how many keys are tracked before idle ones are dropped
const maxIdleKeys = 10_000

type localRateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewLocalRateLimiter returns an in memory limiter allowing limit operations
// per second per key, with bursts of up to one second's worth.
func NewLocalRateLimiter(limit rate.Limit) Limiter {
	return &localRateLimiter{
		limit:    limit,
		burst:    max(1, int(math.Ceil(float64(limit)))),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow implements Limiter.Allow
func (l *localRateLimiter) Allow(key string) (bool, error) {
	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= maxIdleKeys {
			l.dropIdle()
		}

		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow(), nil
}

// dropIdle forgets keys whose buckets have fully refilled, which behave the
// same as a fresh limiter.
func (l *localRateLimiter) dropIdle() {
	for key, limiter := range l.limiters {
		if limiter.Tokens() >= float64(l.burst) {
			delete(l.limiters, key)
		}
	}
}

// NoLimiter never limits operations
type NoLimiter struct{}

// Allow implements Limiter.Allow
func (NoLimiter) Allow(string) (bool, error) {
	return true, nil
}
