package retry

import (
	"errors"
	"math/rand"
	"time"

	"github.com/code-payments/auction-house-server/pkg/retry/backoff"
)

// Strategy determines whether an action should be retried after its
// attempts-th failure. Strategies may sleep.
type Strategy func(attempts uint, err error) bool

// Limit stops retrying once maxAttempts attempts have been made
func Limit(maxAttempts uint) Strategy {
	return func(attempts uint, _ error) bool {
		return attempts < maxAttempts
	}
}

// RetriableErrors only retries errors that match one of retriableErrors
func RetriableErrors(retriableErrors ...error) Strategy {
	return func(_ uint, err error) bool {
		for _, e := range retriableErrors {
			if errors.Is(err, e) {
				return true
			}
		}
		return false
	}
}

// Backoff sleeps before the next attempt, for at most maxBackoff
func Backoff(strategy backoff.Strategy, maxBackoff time.Duration) Strategy {
	return BackoffWithJitter(strategy, maxBackoff, 0)
}

// BackoffWithJitter is Backoff with the capped delay randomly moved by up to
// jitter of itself in either direction. A capped delay of 100ms with a
// jitter of 0.1 sleeps between 90ms and 110ms.
func BackoffWithJitter(strategy backoff.Strategy, maxBackoff time.Duration, jitter float64) Strategy {
	return func(attempts uint, _ error) bool {
		delay := min(strategy(attempts), maxBackoff)
		if jitter > 0 {
			delay = time.Duration(float64(delay) * (1 + (rand.Float64()*jitter*2 - jitter)))
		}
		sleep(delay)
		return true
	}
}

var sleep = time.Sleep
