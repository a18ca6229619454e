//go:build integration

package etcd

import (
	"context"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	v3 "go.etcd.io/etcd/client/v3"

	"github.com/code-payments/auction-house-server/pkg/etcdtest"
)

func TestLockManager(t *testing.T) {
	pool, err := dockertest.NewPool("")
	require.NoError(t, err)

	client, teardown, err := etcdtest.StartEtcd(pool)
	require.NoError(t, err)
	defer teardown()

	for _, tc := range []struct {
		name string
		f    func(t *testing.T, client *v3.Client)
	}{
		{name: "Exclusive", f: testExclusive},
		{name: "Owner", f: testOwner},
		{name: "Cancellation", f: testCancellation},
		{name: "Close", f: testClose},
		{name: "DoubleAcquire", f: testDoubleAcquire},
	} {
		t.Run(tc.name, func(t *testing.T) { tc.f(t, client) })
	}

	_, err = NewLockManager(client, "/locks", 0, "owner")
	assert.Error(t, err)
}

func newManager(t *testing.T, client *v3.Client, owner string) *LockManager {
	lm, err := NewLockManager(client, "/"+t.Name(), 2*time.Second, owner)
	require.NoError(t, err)
	t.Cleanup(lm.Close)
	return lm
}

func testExclusive(t *testing.T, client *v3.Client) {
	ctx := context.Background()
	a := newManager(t, client, "a")
	b := newManager(t, client, "b")

	lockA, err := a.Create(ctx, "account/1")
	require.NoError(t, err)
	lockB, err := b.Create(ctx, "account/1")
	require.NoError(t, err)

	lostA, err := lockA.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, lockA.IsLocked())

	acquired := make(chan error, 1)
	go func() {
		_, err := lockB.Acquire(ctx)
		acquired <- err
	}()

	select {
	case <-acquired:
		t.Fatal("lock acquired while held by another manager")
	case <-time.After(500 * time.Millisecond):
	}

	require.NoError(t, lockA.Unlock(ctx))
	require.NoError(t, lockA.Unlock(ctx))
	assert.False(t, lockA.IsLocked())

	select {
	case <-lostA:
	case <-time.After(time.Second):
		t.Fatal("lost channel not closed after unlock")
	}

	select {
	case err := <-acquired:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("lock not acquired after release")
	}
	assert.True(t, lockB.IsLocked())
	require.NoError(t, lockB.Unlock(ctx))

	// Other accounts are unaffected
	other, err := b.Create(ctx, "account/2")
	require.NoError(t, err)
	_, err = other.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, other.Unlock(ctx))
}

func testOwner(t *testing.T, client *v3.Client) {
	ctx := context.Background()
	lm := newManager(t, client, "instance-1")

	l, err := lm.Create(ctx, "account/1")
	require.NoError(t, err)
	_, err = l.Acquire(ctx)
	require.NoError(t, err)
	defer l.Unlock(ctx)

	resp, err := client.Get(ctx, "/"+t.Name()+"/account/1", v3.WithPrefix())
	require.NoError(t, err)
	require.Len(t, resp.Kvs, 1)
	assert.Equal(t, "instance-1", string(resp.Kvs[0].Value))
}

func testCancellation(t *testing.T, client *v3.Client) {
	a := newManager(t, client, "a")
	b := newManager(t, client, "b")

	lockA, err := a.Create(context.Background(), "account/1")
	require.NoError(t, err)
	acquireCtx, cancel := context.WithCancel(context.Background())
	lostA, err := lockA.Acquire(acquireCtx)
	require.NoError(t, err)

	// Waiting for a held lock respects the context
	lockB, err := b.Create(context.Background(), "account/1")
	require.NoError(t, err)
	waitCtx, cancelWait := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancelWait()
	_, err = lockB.Acquire(waitCtx)
	assert.Error(t, err)
	assert.False(t, lockB.IsLocked())

	// Canceling the acquiring context loses the lock
	cancel()
	select {
	case <-lostA:
	case <-time.After(5 * time.Second):
		t.Fatal("lock not lost after cancellation")
	}
	require.Eventually(t, func() bool { return !lockA.IsLocked() }, 5*time.Second, 10*time.Millisecond)

	_, err = lockB.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, lockB.Unlock(context.Background()))
}

func testClose(t *testing.T, client *v3.Client) {
	ctx := context.Background()
	lm, err := NewLockManager(client, "/"+t.Name(), 2*time.Second, "a")
	require.NoError(t, err)

	l, err := lm.Create(ctx, "account/1")
	require.NoError(t, err)
	lost, err := l.Acquire(ctx)
	require.NoError(t, err)

	lm.Close()
	lm.Close()

	select {
	case <-lost:
	case <-time.After(5 * time.Second):
		t.Fatal("lock not lost after close")
	}

	_, err = lm.Create(ctx, "account/1")
	assert.ErrorIs(t, err, ErrClosed)

	other := newManager(t, client, "b")
	l, err = other.Create(ctx, "account/1")
	require.NoError(t, err)
	_, err = l.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, l.Unlock(ctx))
}

func testDoubleAcquire(t *testing.T, client *v3.Client) {
	ctx := context.Background()
	lm := newManager(t, client, "a")

	l, err := lm.Create(ctx, "account/1")
	require.NoError(t, err)
	_, err = l.Acquire(ctx)
	require.NoError(t, err)

	_, err = l.Acquire(ctx)
	assert.ErrorIs(t, err, ErrAlreadyAcquired)
	require.NoError(t, l.Unlock(ctx))
}
