package auctionhouse_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/auction-house-server/pkg/auctionhouse"
	"github.com/code-payments/auction-house-server/pkg/auctionhouse/testenv"

	auctionhouse_program "github.com/code-payments/auction-house-server/pkg/solana/auctionhouse"
)

func TestSell_ListingsAtDifferentPricesAreDistinct(t *testing.T) {
	m := newNativeMarket(t, &testenv.HouseConfig{}, 1)

	low := m.listing(100, 1)
	high := m.listing(150, 1)

	result, err := m.sell(t, low)
	require.NoError(t, err)
	assert.Equal(t, []string{auctionhouse.ListingOpenedEventName}, eventNames(result))

	opened, ok := result.Events[0].(*auctionhouse.ListingOpened)
	require.True(t, ok)
	assert.EqualValues(t, m.house.SellerTradeState(t, low), opened.TradeState)
	assert.EqualValues(t, 100, opened.Price)
	assert.EqualValues(t, 1, opened.TokenSize)
	assert.Equal(t, m.env.Now, opened.OpenedAt)

	_, err = m.sell(t, high)
	require.NoError(t, err)

	require.NotEqual(t, m.house.SellerTradeState(t, low), m.house.SellerTradeState(t, high))
	requireOpen(t, m.env, m.house.SellerTradeState(t, low))
	requireOpen(t, m.env, m.house.SellerTradeState(t, high))

	tokenAccount := m.env.TokenAccount(t, m.tokenAccount)
	programAsSigner, _ := testenv.ProgramAsSigner(t)
	assert.True(t, tokenAccount.IsDelegatedTo(programAsSigner, 1))

	low.AuthorityIsSigner = false
	result, err = m.submit(t, m.seller, m.house.CancelInstruction(t, low))
	require.NoError(t, err)
	assert.Equal(t, []string{auctionhouse.TradeStateClosedEventName}, eventNames(result))

	requireAbsent(t, m.env, m.house.SellerTradeState(t, low))
	requireOpen(t, m.env, m.house.SellerTradeState(t, high))

	// Canceling revokes the delegate for the whole token account
	assert.Empty(t, m.env.TokenAccount(t, m.tokenAccount).Delegate)

	// The other listing stays open and can be bid on, but can't settle until
	// the seller resends it
	bid := m.bid(150, 1)
	_, err = m.buy(t, bid)
	require.NoError(t, err)

	_, err = m.executeSale(t, m.sale(150, 1))
	assert.ErrorIs(t, err, auctionhouse_program.ErrSellerTokenAccountNotDelegated)
	requireOpen(t, m.env, m.house.SellerTradeState(t, high))
	requireOpen(t, m.env, m.house.BuyerTradeState(t, bid))

	_, err = m.sell(t, high)
	require.NoError(t, err)
	assert.True(t, m.env.TokenAccount(t, m.tokenAccount).IsDelegatedTo(programAsSigner, 1))

	_, err = m.executeSale(t, m.sale(150, 1))
	require.NoError(t, err)
	requireAbsent(t, m.env, m.house.SellerTradeState(t, high))
	assert.EqualValues(t, 1, m.env.TokenBalance(t, testenv.AssociatedTokenAccount(t, testenv.Pub(m.buyer), m.mint)))
}

func TestSell_CancelAndRelist(t *testing.T) {
	m := newNativeMarket(t, &testenv.HouseConfig{}, 1)

	order := m.listing(100, 1)
	tradeState := m.house.SellerTradeState(t, order)
	start := m.env.Lamports(t, testenv.Pub(m.seller))

	_, err := m.sell(t, order)
	require.NoError(t, err)
	requireOpen(t, m.env, tradeState)
	assert.EqualValues(t, m.env.Rent().MinimumBalance(auctionhouse_program.TradeStateAccountSize), m.env.Lamports(t, tradeState))

	_, err = m.submit(t, m.seller, m.house.CancelInstruction(t, order))
	require.NoError(t, err)
	requireAbsent(t, m.env, tradeState)

	// Rent returns to the wallet that paid it
	assert.EqualValues(t, start, m.env.Lamports(t, testenv.Pub(m.seller)))

	_, err = m.submit(t, m.seller, m.house.CancelInstruction(t, order))
	assert.ErrorIs(t, err, auctionhouse_program.ErrTradeStateDoesNotExist)

	result, err := m.sell(t, order)
	require.NoError(t, err)
	assert.Equal(t, []string{auctionhouse.ListingOpenedEventName}, eventNames(result))
	requireOpen(t, m.env, tradeState)
}

func TestSell_ResendIsIdempotent(t *testing.T) {
	m := newNativeMarket(t, &testenv.HouseConfig{}, 1)

	order := m.listing(100, 1)
	tradeState := m.house.SellerTradeState(t, order)

	_, err := m.sell(t, order)
	require.NoError(t, err)

	before := m.env.Snapshot(t, tradeState, testenv.Pub(m.seller))

	result, err := m.sell(t, order)
	require.NoError(t, err)
	assert.Empty(t, result.Events)

	after := m.env.Snapshot(t, tradeState, testenv.Pub(m.seller))
	assert.Equal(t, before[0].Data, after[0].Data)
	assert.Equal(t, before[0].Lamports, after[0].Lamports)
	assert.Equal(t, before[1].Lamports, after[1].Lamports)
}

func TestSell_InvalidTokenAmount(t *testing.T) {
	m := newNativeMarket(t, &testenv.HouseConfig{}, 2)

	for _, size := range []uint64{0, 3} {
		order := m.listing(100, size)

		_, err := m.sell(t, order)
		assert.ErrorIs(t, err, auctionhouse_program.ErrInvalidTokenAmount)
		requireAbsent(t, m.env, m.house.SellerTradeState(t, order))
	}
}

func TestSell_RequiresSigner(t *testing.T) {
	m := newNativeMarket(t, &testenv.HouseConfig{CanChangeSalePrice: true}, 1)

	// The house can't list on the seller's behalf without a free listing
	order := m.listing(100, 1)
	order.WalletIsSigner = false
	order.AuthorityIsSigner = true

	_, err := m.submit(t, m.house.Authority, m.house.SellInstruction(t, order))
	assert.ErrorIs(t, err, auctionhouse_program.ErrSaleRequiresSigner)

	// Once the seller opens a free listing, the house may price it
	_, err = m.sell(t, m.listing(0, 1))
	require.NoError(t, err)
	requireOpen(t, m.env, m.house.FreeSellerTradeState(t, order))

	_, err = m.fundFeeAccount(t, 1_000_000_000)
	require.NoError(t, err)

	_, err = m.submit(t, m.house.Authority, m.house.SellInstruction(t, order))
	require.NoError(t, err)
	requireOpen(t, m.env, m.house.SellerTradeState(t, order))
}

func TestSell_RequiresSignOff(t *testing.T) {
	m := newNativeMarket(t, &testenv.HouseConfig{RequiresSignOff: true}, 1)

	order := m.listing(100, 1)

	_, err := m.sell(t, order)
	assert.ErrorIs(t, err, auctionhouse_program.ErrRequiresSignOff)
	requireAbsent(t, m.env, m.house.SellerTradeState(t, order))

	_, err = m.fundFeeAccount(t, 1_000_000_000)
	require.NoError(t, err)

	order.AuthorityIsSigner = true
	_, err = m.sell(t, order)
	require.NoError(t, err)
	requireOpen(t, m.env, m.house.SellerTradeState(t, order))
}

func TestBuy_PrivateBid(t *testing.T) {
	m := newNativeMarket(t, &testenv.HouseConfig{}, 1)

	order := m.bid(500, 1)
	escrow, _ := m.house.Escrow(t, order.Wallet)
	rentMinimum := m.env.Rent().MinimumBalance(0)

	result, err := m.buy(t, order)
	require.NoError(t, err)
	require.Equal(t, []string{auctionhouse.BidPlacedEventName}, eventNames(result))

	placed := result.Events[0].(*auctionhouse.BidPlaced)
	assert.False(t, placed.Public)
	assert.EqualValues(t, m.tokenAccount, placed.TokenAccount)
	assert.EqualValues(t, 500, placed.Price)

	requireOpen(t, m.env, m.house.BuyerTradeState(t, order))

	// The escrow is topped up to the bid price
	assert.EqualValues(t, rentMinimum+500, m.env.Lamports(t, escrow))

	// A second bid at a lower price reuses the escrowed funds
	_, err = m.buy(t, m.bid(300, 1))
	require.NoError(t, err)
	assert.EqualValues(t, rentMinimum+500, m.env.Lamports(t, escrow))

	_, err = m.buy(t, m.bid(800, 1))
	require.NoError(t, err)
	assert.EqualValues(t, rentMinimum+800, m.env.Lamports(t, escrow))
}

func TestBuy_PublicBid(t *testing.T) {
	m := newNativeMarket(t, &testenv.HouseConfig{}, 1)

	order := m.bid(500, 1)
	order.Public = true

	result, err := m.buy(t, order)
	require.NoError(t, err)

	placed := result.Events[0].(*auctionhouse.BidPlaced)
	assert.True(t, placed.Public)
	assert.Empty(t, placed.TokenAccount)

	requireOpen(t, m.env, m.house.BuyerTradeState(t, order))

	private := m.bid(500, 1)
	assert.NotEqual(t, m.house.BuyerTradeState(t, private), m.house.BuyerTradeState(t, order))
	requireAbsent(t, m.env, m.house.BuyerTradeState(t, private))

	_, err = m.submit(t, m.buyer, m.house.CancelInstruction(t, order))
	require.NoError(t, err)
	requireAbsent(t, m.env, m.house.BuyerTradeState(t, order))
}

func TestBuy_SelfTrade(t *testing.T) {
	m := newNativeMarket(t, &testenv.HouseConfig{}, 1)

	order := m.bid(500, 1)
	order.Wallet = testenv.Pub(m.seller)

	_, err := m.submit(t, m.seller, m.house.BuyInstruction(t, order))
	assert.ErrorIs(t, err, auctionhouse_program.ErrSelfTrade)
	requireAbsent(t, m.env, m.house.BuyerTradeState(t, order))
}

func TestBuy_InsufficientFunds(t *testing.T) {
	m := newNativeMarket(t, &testenv.HouseConfig{}, 1)

	order := m.bid(testenv.DefaultWalletBalance+1, 1)
	escrow, _ := m.house.Escrow(t, order.Wallet)

	_, err := m.buy(t, order)
	assert.ErrorIs(t, err, auctionhouse_program.ErrInsufficientFunds)
	requireAbsent(t, m.env, m.house.BuyerTradeState(t, order))
	assert.False(t, m.env.Exists(t, escrow))
}

func TestCancel_ByHouse(t *testing.T) {
	m := newNativeMarket(t, &testenv.HouseConfig{}, 1)

	order := m.bid(500, 1)
	_, err := m.buy(t, order)
	require.NoError(t, err)

	_, err = m.fundFeeAccount(t, 1_000_000_000)
	require.NoError(t, err)
	feeAccountBefore := m.env.Lamports(t, m.house.FeeAccount)
	tradeStateLamports := m.env.Lamports(t, m.house.BuyerTradeState(t, order))

	// Without any signature the order can't be canceled
	order.WalletIsSigner = false
	_, err = m.submit(t, m.seller, m.house.CancelInstruction(t, order))
	assert.ErrorIs(t, err, auctionhouse_program.ErrNoValidSignerPresent)

	order.AuthorityIsSigner = true
	_, err = m.submit(t, m.house.Authority, m.house.CancelInstruction(t, order))
	require.NoError(t, err)
	requireAbsent(t, m.env, m.house.BuyerTradeState(t, order))

	// The house signed, so the closed trade state pays out to the fee account
	assert.EqualValues(t, feeAccountBefore+tradeStateLamports, m.env.Lamports(t, m.house.FeeAccount))
}

func TestCancel_WrongTradeState(t *testing.T) {
	m := newNativeMarket(t, &testenv.HouseConfig{}, 1)

	_, err := m.sell(t, m.listing(100, 1))
	require.NoError(t, err)

	// Cancel derives the trade state from its price, which must match
	ix := m.house.CancelInstruction(t, m.listing(100, 1))
	ix.Data = m.house.CancelInstruction(t, m.listing(101, 1)).Data

	_, err = m.submit(t, m.seller, ix)
	assert.ErrorIs(t, err, auctionhouse_program.ErrDerivedKeyInvalid)
	requireOpen(t, m.env, m.house.SellerTradeState(t, m.listing(100, 1)))
}
