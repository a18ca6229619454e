// Package etcd holds the etcd helpers the server uses to announce itself.
package etcd

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	v3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"

	"github.com/code-payments/auction-house-server/pkg/retry"
	"github.com/code-payments/auction-house-server/pkg/retry/backoff"
)

var (
	errSessionExpired = errors.New("registration session expired")
	errWatchClosed    = errors.New("registration watch closed")
)

// Registration keeps a key present in etcd, attached to a session lease,
// until Close is called. The key disappears within the TTL when the process
// dies or loses etcd, and is written again once etcd is reachable. Deleting
// the key externally also causes it to be rewritten.
type Registration struct {
	log    *logrus.Entry
	client *v3.Client
	ttl    int

	key string
	val string

	closeOnce sync.Once
	closeCh   chan struct{}
	doneCh    chan struct{}
}

// Register starts keeping key set to val in the background
func Register(client *v3.Client, key, val string, ttl time.Duration) (*Registration, error) {
	ttlSeconds := int(ttl.Truncate(time.Second).Seconds())
	if ttlSeconds < 1 || ttlSeconds > 60 {
		return nil, errors.Errorf("invalid ttl %v: must be within [1s, 60s]", ttl)
	}

	r := &Registration{
		log: logrus.StandardLogger().WithFields(logrus.Fields{
			"type": "etcd/Registration",
			"key":  key,
		}),
		client:  client,
		ttl:     ttlSeconds,
		key:     key,
		val:     val,
		closeCh: make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	go r.run()

	return r, nil
}

// Close removes the key and stops the background loop. Close is idempotent.
func (r *Registration) Close() {
	r.closeOnce.Do(func() {
		close(r.closeCh)
	})
	<-r.doneCh
}

func (r *Registration) run() {
	defer close(r.doneCh)

	_, _ = retry.Retry(
		r.hold,
		func(attempts uint, err error) bool {
			select {
			case <-r.closeCh:
				return false
			default:
			}

			r.log.WithError(err).WithField("attempts", attempts).Warn("registration lost, retrying")
			return true
		},
		retry.BackoffWithJitter(backoff.Constant(time.Second), time.Second, 0.1),
	)
}

// hold writes the key under a new session, and keeps it written until the
// registration is closed or the session is lost
func (r *Registration) hold() error {
	select {
	case <-r.closeCh:
		return nil
	default:
	}

	session, err := concurrency.NewSession(r.client, concurrency.WithTTL(r.ttl))
	if err != nil {
		return errors.Wrap(err, "error creating session")
	}
	defer func() {
		// Revokes the lease, removing the key
		if err := session.Close(); err != nil {
			r.log.WithError(err).Warn("failure closing registration session")
		}
	}()

	for {
		resp, err := r.put(session)
		if err != nil {
			return err
		}

		deleted, err := r.watch(session, resp.Header.Revision+1)
		if err != nil || !deleted {
			return err
		}

		r.log.Info("registration deleted externally, rewriting")
	}
}

func (r *Registration) put(session *concurrency.Session) (*v3.PutResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.ttl)*time.Second)
	defer cancel()

	resp, err := r.client.Put(ctx, r.key, r.val, v3.WithLease(session.Lease()))
	if err != nil {
		return nil, errors.Wrap(err, "error writing registration")
	}
	return resp, nil
}

// watch blocks until the key is deleted, the session ends or the
// registration is closed
func (r *Registration) watch(session *concurrency.Session, fromRevision int64) (deleted bool, err error) {
	ctx, cancel := context.WithCancel(v3.WithRequireLeader(context.Background()))
	defer cancel()

	watchCh := r.client.Watch(ctx, r.key, v3.WithRev(fromRevision))
	for {
		select {
		case <-r.closeCh:
			return false, nil

		case <-session.Done():
			return false, errSessionExpired

		case resp, ok := <-watchCh:
			if !ok {
				return false, errWatchClosed
			}
			if err := resp.Err(); err != nil {
				return false, err
			}
			for _, event := range resp.Events {
				if event.Type == v3.EventTypeDelete {
					return true, nil
				}
			}
		}
	}
}
