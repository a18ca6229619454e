// Package backoff provides delay strategies for retry.
package backoff

import (
	"math"
	"time"
)

// Strategy provides the amount of time to wait before the next attempt.
// Attempts starts at 1.
type Strategy func(attempts uint) time.Duration

// Constant always waits interval
func Constant(interval time.Duration) Strategy {
	return func(uint) time.Duration {
		return interval
	}
}

// BinaryExponential doubles the delay after every attempt, starting at
// baseDelay
func BinaryExponential(baseDelay time.Duration) Strategy {
	return func(attempts uint) time.Duration {
		if attempts > 62 {
			return math.MaxInt64
		}
		if delay := baseDelay << (attempts - 1); delay>>(attempts-1) == baseDelay {
			return delay
		}
		return math.MaxInt64
	}
}
