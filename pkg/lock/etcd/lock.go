// Package etcd implements lock.Manager over etcd sessions, so that runtimes
// sharing an account store serialize their writes to the same accounts.
package etcd

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.etcd.io/etcd/api/v3/mvccpb"
	v3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"

	"github.com/code-payments/auction-house-server/pkg/lock"
)

const (
	sessionRetryInterval = time.Second
	releaseTimeout       = 5 * time.Second
)

var (
	ErrClosed          = errors.New("lock manager is closed")
	ErrAlreadyAcquired = errors.New("lock is already acquired")
)

// LockManager hands out locks that share a single etcd session. Locks are
// held for as long as the session lease is kept alive, and are lost when it
// expires. Expired sessions are replaced in the background.
type LockManager struct {
	log    *logrus.Entry
	client *v3.Client
	root   string
	ttl    int
	owner  string

	sessionMu sync.Mutex
	session   *concurrency.Session

	closeOnce sync.Once
	closeCh   chan struct{}
}

// NewLockManager returns a LockManager whose locks live under root. The owner
// is stored as the value of every held lock key.
func NewLockManager(client *v3.Client, root string, ttl time.Duration, owner string) (*LockManager, error) {
	// Session TTLs outside this range are silently replaced by etcd
	if ttl < time.Second || ttl > time.Minute {
		return nil, errors.Errorf("invalid lock ttl %v: must be within [1s, 60s]", ttl)
	}

	lm := &LockManager{
		log: logrus.StandardLogger().WithFields(logrus.Fields{
			"type": "lock/etcd/LockManager",
			"root": root,
		}),
		client:  client,
		root:    root,
		ttl:     int(ttl.Round(time.Second).Seconds()),
		owner:   owner,
		closeCh: make(chan struct{}),
	}

	session, err := lm.newSession()
	if err != nil {
		return nil, errors.Wrap(err, "error creating etcd session")
	}
	lm.session = session

	go lm.renewSessions()

	return lm, nil
}

// Create implements lock.Manager.Create
func (lm *LockManager) Create(_ context.Context, name string) (lock.DistributedLock, error) {
	if _, err := lm.currentSession(); err != nil {
		return nil, err
	}

	key := path.Join(lm.root, name)
	return &Lock{
		log: lm.log.WithField("key", key),
		lm:  lm,
		key: key,
	}, nil
}

// Close ends the session. Every lock held through the manager is released.
func (lm *LockManager) Close() {
	lm.closeOnce.Do(func() {
		close(lm.closeCh)

		lm.sessionMu.Lock()
		defer lm.sessionMu.Unlock()

		if err := lm.session.Close(); err != nil {
			lm.log.WithError(err).Warn("failure closing etcd session")
		}
		lm.session = nil
	})
}

func (lm *LockManager) newSession() (*concurrency.Session, error) {
	return concurrency.NewSession(
		lm.client,
		concurrency.WithTTL(lm.ttl),
		concurrency.WithContext(v3.WithRequireLeader(context.Background())),
	)
}

func (lm *LockManager) currentSession() (*concurrency.Session, error) {
	lm.sessionMu.Lock()
	defer lm.sessionMu.Unlock()

	if lm.session == nil {
		return nil, ErrClosed
	}
	return lm.session, nil
}

// renewSessions replaces the session whenever it expires, which happens when
// keep alives fail for longer than the TTL (for example, while the cluster
// has no leader)
func (lm *LockManager) renewSessions() {
	for {
		session, err := lm.currentSession()
		if err != nil {
			return
		}

		select {
		case <-lm.closeCh:
			return
		case <-session.Done():
		}

		lm.log.Info("lock session expired, creating a new one")

		for {
			session, err := lm.newSession()
			if err == nil {
				lm.sessionMu.Lock()
				if lm.session == nil {
					lm.sessionMu.Unlock()
					_ = session.Close()
					return
				}
				lm.session = session
				lm.sessionMu.Unlock()
				break
			}

			lm.log.WithError(err).Warn("failure creating lock session, retrying")

			select {
			case <-lm.closeCh:
				return
			case <-time.After(sessionRetryInterval):
			}
		}
	}
}

// Lock is a lock.DistributedLock over a concurrency.Mutex
type Lock struct {
	log *logrus.Entry
	lm  *LockManager
	key string

	mu     sync.Mutex
	mutex  *concurrency.Mutex
	cancel context.CancelFunc
}

// Acquire implements lock.DistributedLock.Acquire
func (l *Lock) Acquire(ctx context.Context) (<-chan struct{}, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.mutex != nil {
		return nil, ErrAlreadyAcquired
	}

	session, err := l.lm.currentSession()
	if err != nil {
		return nil, err
	}

	mutex := concurrency.NewMutex(session, l.key)
	if err := mutex.Lock(ctx); err != nil {
		return nil, errors.Wrap(err, "error acquiring lock")
	}

	resp, err := session.Client().Put(ctx, mutex.Key(), l.lm.owner, v3.WithLease(session.Lease()))
	if err != nil {
		l.unlockMutex(mutex)
		return nil, errors.Wrap(err, "error recording lock owner")
	}

	watchCtx, cancel := context.WithCancel(v3.WithRequireLeader(ctx))
	watchCh := session.Client().Watch(watchCtx, mutex.Key(), v3.WithRev(resp.Header.Revision+1))

	l.mutex = mutex
	l.cancel = cancel

	lostCh := make(chan struct{})
	go l.watch(session, mutex, watchCh, lostCh)

	l.log.Trace("lock acquired")
	return lostCh, nil
}

func (l *Lock) watch(session *concurrency.Session, mutex *concurrency.Mutex, watchCh v3.WatchChan, lostCh chan struct{}) {
	// lostCh is closed before releasing, since releasing blocks while the
	// cluster has no leader
	defer l.release(mutex)
	defer close(lostCh)

	for {
		select {
		case <-session.Done():
			l.log.Warn("lock session ended, lock lost")
			return

		case resp, ok := <-watchCh:
			if !ok {
				return
			}
			if err := resp.Err(); err != nil {
				l.log.WithError(err).Warn("failure watching lock key, lock lost")
				return
			}
			for _, event := range resp.Events {
				if event.Type == mvccpb.DELETE {
					l.log.Debug("lock key deleted, lock lost")
					return
				}
			}
		}
	}
}

// release unlocks mutex if it's still the one held
func (l *Lock) release(mutex *concurrency.Mutex) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.mutex != mutex {
		return
	}

	l.cancel()
	l.mutex = nil
	l.unlockMutex(mutex)
}

func (l *Lock) unlockMutex(mutex *concurrency.Mutex) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	if err := mutex.Unlock(ctx); err != nil {
		l.log.WithError(err).Warn("failure releasing lock")
	}
}

// Unlock implements lock.DistributedLock.Unlock
func (l *Lock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.mutex == nil {
		return nil
	}

	mutex := l.mutex
	l.mutex = nil
	l.cancel()

	return mutex.Unlock(ctx)
}

// IsLocked implements lock.DistributedLock.IsLocked
func (l *Lock) IsLocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.mutex != nil
}
