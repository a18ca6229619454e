package sync

import (
	"sort"
	base "sync"
)

const (
	hashEntriesPerLock = 200
)

// StripedLock is a partitioned locking mechanism that consistently maps a key
// space to a set of locks. This provides concurrent data access while also
// limiting the total memory footprint.
type StripedLock struct {
	locks []base.RWMutex
	ring  *stripeRing
}

// NewStripedLock returns a new StripedLock with a static number of stripes.
func NewStripedLock(stripes uint) *StripedLock {
	return newStripedLockGroup(stripes, 1)[0]
}

func newStripedLockGroup(stripes, groupSize uint) []*StripedLock {
	stripedLocks := make([]*StripedLock, 0, groupSize)

	ring := newStripeRing(stripes, hashEntriesPerLock)

	for i := 0; i < int(groupSize); i++ {
		stripedLocks = append(stripedLocks, &StripedLock{
			locks: make([]base.RWMutex, stripes),
			ring:  ring,
		})
	}

	return stripedLocks
}

// Get gets the lock for a key
func (l *StripedLock) Get(key []byte) *base.RWMutex {
	return &l.locks[l.stripe(key)]
}

// LockKeys acquires the stripes for a set of account keys. Stripes mapped by
// a writable key are write locked, and the rest are read locked. Stripes are
// acquired in index order, so concurrent callers with overlapping key sets
// can't deadlock. Keys may repeat across and within both sets.
//
// The returned function releases every acquired stripe.
func (l *StripedLock) LockKeys(writable, readonly [][]byte) (unlock func()) {
	exclusive := make(map[int]bool)
	for _, key := range writable {
		exclusive[l.stripe(key)] = true
	}
	for _, key := range readonly {
		stripe := l.stripe(key)
		if _, ok := exclusive[stripe]; !ok {
			exclusive[stripe] = false
		}
	}

	stripes := make([]int, 0, len(exclusive))
	for stripe := range exclusive {
		stripes = append(stripes, stripe)
	}
	sort.Ints(stripes)

	for _, stripe := range stripes {
		if exclusive[stripe] {
			l.locks[stripe].Lock()
		} else {
			l.locks[stripe].RLock()
		}
	}

	return func() {
		for i := len(stripes) - 1; i >= 0; i-- {
			stripe := stripes[i]
			if exclusive[stripe] {
				l.locks[stripe].Unlock()
			} else {
				l.locks[stripe].RUnlock()
			}
		}
	}
}

func (l *StripedLock) stripe(key []byte) int {
	return l.ring.stripe(key)
}
