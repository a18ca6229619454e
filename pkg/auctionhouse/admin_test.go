package auctionhouse_test

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/auction-house-server/pkg/auctionhouse"
	"github.com/code-payments/auction-house-server/pkg/auctionhouse/testenv"
	"github.com/code-payments/auction-house-server/pkg/solana/system"

	auctionhouse_program "github.com/code-payments/auction-house-server/pkg/solana/auctionhouse"
)

func TestCreateAuctionHouse_Native(t *testing.T) {
	env := testenv.New(t, nil)

	cfg := &testenv.HouseConfig{
		SellerFeeBasisPoints: 200,
		CanChangeSalePrice:   true,
	}
	house := env.CreateHouse(t, cfg)

	state := house.State(t)
	assert.EqualValues(t, testenv.Pub(house.Authority), state.Authority)
	assert.EqualValues(t, testenv.Pub(house.Authority), state.Creator)
	assert.EqualValues(t, house.FeeAccount, state.AuctionHouseFeeAccount)
	assert.EqualValues(t, house.Treasury, state.AuctionHouseTreasury)
	assert.EqualValues(t, auctionhouse_program.NATIVE_MINT, state.TreasuryMint)
	assert.EqualValues(t, 200, state.SellerFeeBasisPoints)
	assert.True(t, state.CanChangeSalePrice)
	assert.False(t, state.RequiresSignOff)
	assert.False(t, state.HasAuctioneer)
	assert.True(t, state.IsNative())

	// Fee account and treasury are funded to stay rent exempt
	assert.EqualValues(t, env.Rent().MinimumBalance(0), env.Lamports(t, house.FeeAccount))
	assert.EqualValues(t, env.Rent().MinimumBalance(0), env.Lamports(t, house.Treasury))

	_, err := env.Submit(t, house.Authority, []ed25519.PrivateKey{house.Authority}, house.CreateInstruction(cfg))
	assert.ErrorIs(t, err, auctionhouse_program.ErrAccountAlreadyInitialized)
}

func TestCreateAuctionHouse_SPL(t *testing.T) {
	env := testenv.New(t, nil)

	authority := env.NewWallet(t, testenv.DefaultWalletBalance)
	treasuryMint, _ := env.NewMint(t, testenv.TokenBalance{Owner: testenv.Pub(authority)})

	house := env.CreateHouse(t, &testenv.HouseConfig{
		Authority:            authority,
		TreasuryMint:         treasuryMint,
		SellerFeeBasisPoints: 500,
	})

	state := house.State(t)
	assert.False(t, state.IsNative())
	assert.EqualValues(t, house.TreasuryWithdrawalDestination, state.TreasuryWithdrawalDestination)

	// The treasury is a token account owned by the auction house
	treasury := env.TokenAccount(t, house.Treasury)
	assert.EqualValues(t, treasuryMint, treasury.Mint)
	assert.EqualValues(t, house.Address, treasury.Owner)
	assert.EqualValues(t, 0, treasury.Amount)
}

func TestCreateAuctionHouse_InvalidBasisPoints(t *testing.T) {
	env := testenv.New(t, nil)

	house := env.NewHouse(t, &testenv.HouseConfig{})
	_, err := env.Submit(t, house.Authority, []ed25519.PrivateKey{house.Authority}, house.CreateInstruction(&testenv.HouseConfig{
		SellerFeeBasisPoints: auctionhouse_program.MaxBasisPoints + 1,
	}))
	assert.ErrorIs(t, err, auctionhouse_program.ErrInvalidBasisPoints)
	assert.False(t, env.Exists(t, house.Address))

	// Deployments can cap fees below the absolute maximum
	env = testenv.New(t, &auctionhouse.Overrides{MaxSellerFeeBasisPoints: 500})

	house = env.NewHouse(t, &testenv.HouseConfig{})
	_, err = env.Submit(t, house.Authority, []ed25519.PrivateKey{house.Authority}, house.CreateInstruction(&testenv.HouseConfig{
		SellerFeeBasisPoints: 501,
	}))
	assert.ErrorIs(t, err, auctionhouse_program.ErrInvalidBasisPoints)

	_, err = env.Submit(t, house.Authority, []ed25519.PrivateKey{house.Authority}, house.CreateInstruction(&testenv.HouseConfig{
		SellerFeeBasisPoints: 500,
	}))
	require.NoError(t, err)
}

func TestUpdateAuctionHouse(t *testing.T) {
	env := testenv.New(t, nil)
	house := env.CreateHouse(t, &testenv.HouseConfig{SellerFeeBasisPoints: 200})

	bps := uint16(300)
	signOff := true
	_, err := env.Submit(t, house.Authority, []ed25519.PrivateKey{house.Authority}, house.UpdateInstruction(&auctionhouse_program.UpdateAuctionHouseInstructionArgs{
		SellerFeeBasisPoints: &bps,
		RequiresSignOff:      &signOff,
	}))
	require.NoError(t, err)

	state := house.State(t)
	assert.EqualValues(t, 300, state.SellerFeeBasisPoints)
	assert.True(t, state.RequiresSignOff)
	assert.False(t, state.CanChangeSalePrice)

	invalid := uint16(auctionhouse_program.MaxBasisPoints + 1)
	_, err = env.Submit(t, house.Authority, []ed25519.PrivateKey{house.Authority}, house.UpdateInstruction(&auctionhouse_program.UpdateAuctionHouseInstructionArgs{
		SellerFeeBasisPoints: &invalid,
	}))
	assert.ErrorIs(t, err, auctionhouse_program.ErrInvalidBasisPoints)
	assert.EqualValues(t, 300, house.State(t).SellerFeeBasisPoints)
}

func TestWithdrawFromFee(t *testing.T) {
	env := testenv.New(t, nil)
	house := env.CreateHouse(t, &testenv.HouseConfig{})

	authority := testenv.Pub(house.Authority)

	_, err := env.Submit(t, house.Authority, []ed25519.PrivateKey{house.Authority}, system.Transfer(authority, house.FeeAccount, 1_000_000))
	require.NoError(t, err)

	before := env.Lamports(t, authority)

	_, err = env.Submit(t, house.Authority, []ed25519.PrivateKey{house.Authority}, house.WithdrawFromFeeInstruction(2_000_000_000))
	assert.ErrorIs(t, err, auctionhouse_program.ErrInsufficientFunds)

	_, err = env.Submit(t, house.Authority, []ed25519.PrivateKey{house.Authority}, house.WithdrawFromFeeInstruction(1_000_000))
	require.NoError(t, err)

	assert.EqualValues(t, before+1_000_000, env.Lamports(t, authority))
	assert.EqualValues(t, env.Rent().MinimumBalance(0), env.Lamports(t, house.FeeAccount))
}

func TestWithdrawFromTreasury_AfterSale(t *testing.T) {
	m := newNativeMarket(t, &testenv.HouseConfig{SellerFeeBasisPoints: 1000}, 1)

	_, err := m.sell(t, m.listing(1_000_000, 1))
	require.NoError(t, err)
	_, err = m.buy(t, m.bid(1_000_000, 1))
	require.NoError(t, err)
	_, err = m.executeSale(t, m.sale(1_000_000, 1))
	require.NoError(t, err)

	rentMinimum := m.env.Rent().MinimumBalance(0)
	require.EqualValues(t, rentMinimum+100_000, m.env.Lamports(t, m.house.Treasury))

	authority := testenv.Pub(m.house.Authority)
	before := m.env.Lamports(t, authority)

	_, err = m.submit(t, m.house.Authority, m.house.WithdrawFromTreasuryInstruction(100_000))
	require.NoError(t, err)

	assert.EqualValues(t, before+100_000, m.env.Lamports(t, authority))
	assert.EqualValues(t, rentMinimum, m.env.Lamports(t, m.house.Treasury))
}
