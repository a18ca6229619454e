package testutil

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitFor(t *testing.T) {
	var calls atomic.Int32
	require.NoError(t, WaitFor(time.Second, time.Millisecond, func() bool {
		return calls.Add(1) == 3
	}))
	assert.EqualValues(t, 3, calls.Load())

	err := WaitFor(20*time.Millisecond, 5*time.Millisecond, func() bool { return false })
	assert.Error(t, err)

	assert.Error(t, WaitFor(10*time.Millisecond, 20*time.Millisecond, func() bool { return true }))
	assert.Error(t, WaitFor(10*time.Millisecond, 0, func() bool { return true }))
}
