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

func TestRegistration(t *testing.T) {
	ctx := context.Background()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err)

	client, teardown, err := etcdtest.StartEtcd(pool)
	require.NoError(t, err)
	defer teardown()

	_, err = Register(client, "/instances/a", "started", 0)
	assert.Error(t, err)

	key := "/instances/a"
	r, err := Register(client, key, "started", 5*time.Second)
	require.NoError(t, err)

	present := func() bool {
		resp, err := client.Get(ctx, key)
		return err == nil && len(resp.Kvs) == 1 && string(resp.Kvs[0].Value) == "started"
	}

	// The key comes back after being deleted, or after its lease is revoked
	for i := 0; i < 4; i++ {
		require.Eventually(t, present, 5*time.Second, 50*time.Millisecond)

		resp, err := client.Get(ctx, key)
		require.NoError(t, err)
		require.NotZero(t, resp.Kvs[0].Lease)

		if i%2 == 0 {
			_, err = client.Delete(ctx, key)
		} else {
			_, err = client.Revoke(ctx, v3.LeaseID(resp.Kvs[0].Lease))
		}
		require.NoError(t, err)
	}
	require.Eventually(t, present, 5*time.Second, 50*time.Millisecond)

	r.Close()
	r.Close()

	resp, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, resp.Kvs)
}
