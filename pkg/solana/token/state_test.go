package token

import (
	"crypto/ed25519"
	"encoding/hex"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshal(t *testing.T) {
	data, err := hex.DecodeString("118a08c9d4cc46c576282e0daf050bbdb04f03313e35e5db3f3def69fa1eeec42b15a9cd4bef2cd809e464570d2a6cbd9bcc64e32ea4ebbcf748757bbb3dd5bd000084e2506ce67c000000000000000000000000000000000000000000000000000000000000000000000000010000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)

	mint, err := base58.Decode("2BU1Xgyzqixhjaq9Pa5cNsaa1gSejLeNtDaDRv29qoZm")
	require.NoError(t, err)

	var a Account
	require.True(t, a.Unmarshal(data))
	assert.Equal(t, mint, []byte(a.Mint))
	assert.Equal(t, uint64(9e13*1e5), a.Amount)
	assert.Empty(t, a.Delegate)
	assert.Empty(t, a.CloseAuthority)

	var rtt Account
	rtt.Unmarshal(a.Marshal())
	assert.Equal(t, a, rtt)
}

func TestAccount_Delegation(t *testing.T) {
	keys := generateKeys(t, 4)

	a := Account{
		Mint:            keys[0],
		Owner:           keys[1],
		Amount:          10,
		Delegate:        keys[2],
		State:           AccountStateInitialized,
		DelegatedAmount: 3,
	}

	var actual Account
	require.True(t, actual.Unmarshal(a.Marshal()))
	assert.Equal(t, a, actual)

	assert.True(t, actual.IsDelegatedTo(keys[2], 3))
	assert.False(t, actual.IsDelegatedTo(keys[2], 4))
	assert.False(t, actual.IsDelegatedTo(keys[3], 1))

	actual.Delegate = nil
	assert.False(t, actual.IsDelegatedTo(nil, 0))

	assert.False(t, actual.Unmarshal(make([]byte, AccountSize-1)))
}

func TestMint_RoundTrip(t *testing.T) {
	keys := generateKeys(t, 2)

	for _, expected := range []Mint{
		{MintAuthority: keys[0], Supply: 1, Decimals: 0, IsInitialized: true},
		{MintAuthority: keys[0], Supply: 1_000_000_000, Decimals: 9, IsInitialized: true, FreezeAuthority: keys[1]},
		{Supply: 42, Decimals: 6, IsInitialized: true},
	} {
		b := expected.Marshal()
		require.Len(t, b, MintSize)

		var actual Mint
		require.True(t, actual.Unmarshal(b))
		assert.Equal(t, expected, actual)
	}

	var m Mint
	assert.False(t, m.Unmarshal(make([]byte, MintSize+1)))
}

func generateKeys(t *testing.T, amount int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, amount)

	for i := 0; i < amount; i++ {
		pub, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = pub
	}

	return keys
}
