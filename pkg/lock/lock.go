// Package lock defines locks shared by every instance of the service, used to
// serialize writes to the same accounts across processes.
package lock

import (
	"context"
)

// Manager hands out DistributedLocks by name. Locks for the same name from
// the same Manager share ownership, so callers coordinate local concurrency
// themselves, for example with a striped lock.
type Manager interface {
	Create(ctx context.Context, name string) (DistributedLock, error)
}

// DistributedLock is a named lock spanning processes.
type DistributedLock interface {
	// Acquire blocks until the lock is held or ctx is done. The returned
	// channel is closed once the lock is no longer held, whether through
	// Unlock or because ownership may have been lost.
	Acquire(ctx context.Context) (<-chan struct{}, error)

	// Unlock releases the lock if held. It is idempotent.
	Unlock(ctx context.Context) error

	IsLocked() bool
}
