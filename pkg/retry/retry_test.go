package retry

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/auction-house-server/pkg/retry/backoff"
)

var errStale = errors.New("stale")

func TestRetry(t *testing.T) {
	var calls int
	attempts, err := Retry(func() error {
		calls++
		if calls < 3 {
			return errors.Wrap(errStale, "commit")
		}
		return nil
	}, RetriableErrors(errStale), Limit(5))
	require.NoError(t, err)
	assert.EqualValues(t, 3, attempts)

	// Errors that aren't retriable stop immediately
	attempts, err = Retry(func() error {
		return errors.New("invalid")
	}, RetriableErrors(errStale), Limit(5))
	assert.EqualError(t, err, "invalid")
	assert.EqualValues(t, 1, attempts)

	attempts, err = Retry(func() error {
		return errStale
	}, RetriableErrors(errStale), Limit(2))
	assert.ErrorIs(t, err, errStale)
	assert.EqualValues(t, 2, attempts)
}

func TestBackoff(t *testing.T) {
	var slept []time.Duration
	sleep = func(d time.Duration) { slept = append(slept, d) }
	defer func() { sleep = time.Sleep }()

	_, err := Retry(func() error {
		return errStale
	}, Limit(4), Backoff(backoff.BinaryExponential(100*time.Millisecond), 300*time.Millisecond))
	assert.Error(t, err)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond}, slept)

	slept = nil
	BackoffWithJitter(backoff.Constant(time.Second), time.Second, 0.1)(1, errStale)
	require.Len(t, slept, 1)
	assert.InDelta(t, float64(time.Second), float64(slept[0]), float64(100*time.Millisecond))
}

func TestBinaryExponential(t *testing.T) {
	strategy := backoff.BinaryExponential(time.Second)
	assert.Equal(t, time.Second, strategy(1))
	assert.Equal(t, 8*time.Second, strategy(4))
	assert.EqualValues(t, int64(^uint64(0)>>1), strategy(63))
}
