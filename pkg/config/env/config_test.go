package env

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/auction-house-server/pkg/config"
)

func TestConfig(t *testing.T) {
	ctx := context.Background()

	const key = "auction_house_env_test"
	raw := NewConfig(key)
	limit := NewUint64Config(key, 1)
	enabled := NewBoolConfig(key, true)

	_, err := raw.Get(ctx)
	assert.Equal(t, config.ErrNoValue, err)
	assert.EqualValues(t, 1, limit.Get(ctx))

	// Values are read on every Get, so changes take effect without a restart
	t.Setenv("AUCTION_HOUSE_ENV_TEST", "250")

	v, err := raw.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("250"), v)
	assert.EqualValues(t, 250, limit.Get(ctx))
	assert.EqualValues(t, 250, NewFloat64Config(key, 1).Get(ctx))

	// An unparseable value keeps the last good one
	_, err = enabled.GetSafe(ctx)
	assert.Error(t, err)
	assert.True(t, enabled.Get(ctx))
}
