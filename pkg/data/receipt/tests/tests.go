package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/auction-house-server/pkg/data/receipt"
	"github.com/code-payments/auction-house-server/pkg/database/query"
)

func RunTests(t *testing.T, s receipt.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s receipt.Store){
		testListingRoundTrip,
		testBidRoundTrip,
		testPurchaseRoundTrip,
		testPaging,
		testValidation,
	} {
		tf(t, s)
		teardown()
	}
}

func testListingRoundTrip(t *testing.T, s receipt.Store) {
	t.Run("testListingRoundTrip", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetListing(ctx, "trade_state")
		assert.Equal(t, receipt.ErrReceiptNotFound, err)

		activatedAt := time.Now().Add(-time.Minute).Round(time.Millisecond)
		expected := &receipt.ListingRecord{
			TradeState:   "trade_state",
			AuctionHouse: "auction_house",
			Seller:       "seller",
			TokenAccount: "token_account",
			TokenMint:    "token_mint",
			Metadata:     "metadata",
			Price:        100,
			TokenSize:    10,
			Remaining:    10,
			Bookkeeper:   "bookkeeper",
			ActivatedAt:  activatedAt,
		}
		require.NoError(t, s.SaveListing(ctx, expected))
		assert.True(t, expected.Id > 0)
		assert.False(t, expected.CreatedAt.IsZero())

		actual, err := s.GetListing(ctx, expected.TradeState)
		require.NoError(t, err)
		assertEquivalentListings(t, expected, actual)
		assert.False(t, actual.IsClosed())

		// Partially fill, then close the listing

		createdAt := expected.CreatedAt
		closedAt := time.Now().Round(time.Millisecond)

		expected.Remaining = 0
		expected.PurchaseReceipt = "purchase"
		expected.ClosedAt = &closedAt
		expected.CreatedAt = time.Now().Add(time.Hour)
		require.NoError(t, s.SaveListing(ctx, expected))

		actual, err = s.GetListing(ctx, expected.TradeState)
		require.NoError(t, err)
		assert.Equal(t, expected.Id, actual.Id)
		assert.EqualValues(t, 0, actual.Remaining)
		assert.Equal(t, "purchase", actual.PurchaseReceipt)
		require.True(t, actual.IsClosed())
		assert.Equal(t, closedAt.Unix(), actual.ClosedAt.Unix())
		assert.Equal(t, createdAt.Unix(), actual.CreatedAt.Unix())

		// Reopen it

		expected.Remaining = expected.TokenSize
		expected.PurchaseReceipt = ""
		expected.ClosedAt = nil
		require.NoError(t, s.SaveListing(ctx, expected))

		actual, err = s.GetListing(ctx, expected.TradeState)
		require.NoError(t, err)
		assert.False(t, actual.IsClosed())
		assert.Empty(t, actual.PurchaseReceipt)
	})
}

func testBidRoundTrip(t *testing.T, s receipt.Store) {
	t.Run("testBidRoundTrip", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetBid(ctx, "trade_state")
		assert.Equal(t, receipt.ErrReceiptNotFound, err)

		private := &receipt.BidRecord{
			TradeState:   "private_trade_state",
			AuctionHouse: "auction_house",
			Buyer:        "buyer",
			TokenAccount: "token_account",
			TokenMint:    "token_mint",
			Metadata:     "metadata",
			Price:        100,
			TokenSize:    1,
			Bookkeeper:   "bookkeeper",
			ActivatedAt:  time.Now(),
		}
		public := &receipt.BidRecord{
			TradeState:   "public_trade_state",
			AuctionHouse: "auction_house",
			Buyer:        "buyer",
			TokenMint:    "token_mint",
			Public:       true,
			Price:        200,
			TokenSize:    1,
			Bookkeeper:   "bookkeeper",
			ActivatedAt:  time.Now(),
		}
		require.NoError(t, s.SaveBid(ctx, private))
		require.NoError(t, s.SaveBid(ctx, public))
		assert.NotEqual(t, private.Id, public.Id)

		actual, err := s.GetBid(ctx, private.TradeState)
		require.NoError(t, err)
		assert.Equal(t, private.Buyer, actual.Buyer)
		assert.Equal(t, private.TokenAccount, actual.TokenAccount)
		assert.Equal(t, private.Metadata, actual.Metadata)
		assert.False(t, actual.Public)
		assert.EqualValues(t, 100, actual.Price)

		actual, err = s.GetBid(ctx, public.TradeState)
		require.NoError(t, err)
		assert.True(t, actual.Public)
		assert.Empty(t, actual.TokenAccount)
		assert.EqualValues(t, 200, actual.Price)

		closedAt := time.Now()
		public.ClosedAt = &closedAt
		public.PurchaseReceipt = "purchase"
		require.NoError(t, s.SaveBid(ctx, public))

		actual, err = s.GetBid(ctx, public.TradeState)
		require.NoError(t, err)
		assert.True(t, actual.IsClosed())
		assert.Equal(t, "purchase", actual.PurchaseReceipt)
	})
}

func testPurchaseRoundTrip(t *testing.T, s receipt.Store) {
	t.Run("testPurchaseRoundTrip", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetPurchase(ctx, "purchase")
		assert.Equal(t, receipt.ErrReceiptNotFound, err)

		expected := &receipt.PurchaseRecord{
			Address:      "purchase",
			AuctionHouse: "auction_house",
			Buyer:        "buyer",
			Seller:       "seller",
			TokenMint:    "token_mint",
			Price:        100,
			TokenSize:    1,
			Fee:          2,
			Signature:    "signature",
			Slot:         42,
		}
		require.NoError(t, s.PutPurchase(ctx, expected))
		assert.True(t, expected.Id > 0)

		actual, err := s.GetPurchase(ctx, expected.Address)
		require.NoError(t, err)
		assert.Equal(t, expected.Id, actual.Id)
		assert.Equal(t, expected.Buyer, actual.Buyer)
		assert.Equal(t, expected.Seller, actual.Seller)
		assert.Equal(t, expected.TokenMint, actual.TokenMint)
		assert.EqualValues(t, 100, actual.Price)
		assert.EqualValues(t, 1, actual.TokenSize)
		assert.EqualValues(t, 2, actual.Fee)
		assert.Equal(t, "signature", actual.Signature)
		assert.EqualValues(t, 42, actual.Slot)

		assert.Equal(t, receipt.ErrReceiptExists, s.PutPurchase(ctx, expected.Clone()))
	})
}

func testPaging(t *testing.T, s receipt.Store) {
	t.Run("testPaging", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetListingsByAuctionHouse(ctx, "auction_house", query.EmptyCursor, 10, query.Ascending)
		assert.Equal(t, receipt.ErrReceiptNotFound, err)
		_, err = s.GetBidsByAuctionHouse(ctx, "auction_house", query.EmptyCursor, 10, query.Ascending)
		assert.Equal(t, receipt.ErrReceiptNotFound, err)
		_, err = s.GetPurchasesByAuctionHouse(ctx, "auction_house", query.EmptyCursor, 10, query.Ascending)
		assert.Equal(t, receipt.ErrReceiptNotFound, err)

		for i := 0; i < 5; i++ {
			for _, auctionHouse := range []string{"auction_house", "other"} {
				require.NoError(t, s.SaveListing(ctx, &receipt.ListingRecord{
					TradeState:   fmt.Sprintf("%s_listing_%d", auctionHouse, i),
					AuctionHouse: auctionHouse,
					Seller:       "seller",
					TokenAccount: "token_account",
					TokenMint:    "token_mint",
					Price:        uint64(i),
					TokenSize:    1,
					Remaining:    1,
				}))
				require.NoError(t, s.SaveBid(ctx, &receipt.BidRecord{
					TradeState:   fmt.Sprintf("%s_bid_%d", auctionHouse, i),
					AuctionHouse: auctionHouse,
					Buyer:        "buyer",
					TokenMint:    "token_mint",
					Public:       true,
					Price:        uint64(i),
					TokenSize:    1,
				}))
				require.NoError(t, s.PutPurchase(ctx, &receipt.PurchaseRecord{
					Address:      fmt.Sprintf("%s_purchase_%d", auctionHouse, i),
					AuctionHouse: auctionHouse,
					Buyer:        "buyer",
					Seller:       "seller",
					TokenMint:    "token_mint",
					Price:        uint64(i),
					TokenSize:    1,
				}))
			}
		}

		listings, err := s.GetListingsByAuctionHouse(ctx, "auction_house", query.EmptyCursor, 3, query.Ascending)
		require.NoError(t, err)
		require.Len(t, listings, 3)
		for i, listing := range listings {
			assert.Equal(t, "auction_house", listing.AuctionHouse)
			assert.EqualValues(t, i, listing.Price)
		}

		listings, err = s.GetListingsByAuctionHouse(ctx, "auction_house", query.ToCursor(listings[2].Id), 3, query.Ascending)
		require.NoError(t, err)
		require.Len(t, listings, 2)
		assert.EqualValues(t, 3, listings[0].Price)
		assert.EqualValues(t, 4, listings[1].Price)

		_, err = s.GetListingsByAuctionHouse(ctx, "auction_house", query.ToCursor(listings[1].Id), 3, query.Ascending)
		assert.Equal(t, receipt.ErrReceiptNotFound, err)

		bids, err := s.GetBidsByAuctionHouse(ctx, "auction_house", query.EmptyCursor, 10, query.Descending)
		require.NoError(t, err)
		require.Len(t, bids, 5)
		for i, bid := range bids {
			assert.EqualValues(t, 4-i, bid.Price)
		}

		bids, err = s.GetBidsByAuctionHouse(ctx, "auction_house", query.ToCursor(bids[1].Id), 10, query.Descending)
		require.NoError(t, err)
		require.Len(t, bids, 3)
		assert.EqualValues(t, 2, bids[0].Price)

		purchases, err := s.GetPurchasesByAuctionHouse(ctx, "other", query.EmptyCursor, 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, purchases, 5)
		for _, purchase := range purchases {
			assert.Equal(t, "other", purchase.AuctionHouse)
		}
	})
}

func testValidation(t *testing.T, s receipt.Store) {
	t.Run("testValidation", func(t *testing.T) {
		ctx := context.Background()

		assert.Error(t, s.SaveListing(ctx, &receipt.ListingRecord{}))
		assert.Error(t, s.SaveListing(ctx, &receipt.ListingRecord{
			TradeState:   "trade_state",
			AuctionHouse: "auction_house",
			Seller:       "seller",
			TokenAccount: "token_account",
			TokenMint:    "token_mint",
			TokenSize:    1,
			Remaining:    2,
		}))

		assert.Error(t, s.SaveBid(ctx, &receipt.BidRecord{
			TradeState:   "trade_state",
			AuctionHouse: "auction_house",
			Buyer:        "buyer",
			TokenAccount: "token_account",
			TokenMint:    "token_mint",
			Public:       true,
			TokenSize:    1,
		}))

		assert.Error(t, s.PutPurchase(ctx, &receipt.PurchaseRecord{
			Address:      "purchase",
			AuctionHouse: "auction_house",
			Buyer:        "buyer",
			Seller:       "seller",
			TokenMint:    "token_mint",
			Price:        1,
			TokenSize:    1,
			Fee:          2,
		}))

		_, err := s.GetListing(ctx, "trade_state")
		assert.Equal(t, receipt.ErrReceiptNotFound, err)
		_, err = s.GetBid(ctx, "trade_state")
		assert.Equal(t, receipt.ErrReceiptNotFound, err)
		_, err = s.GetPurchase(ctx, "purchase")
		assert.Equal(t, receipt.ErrReceiptNotFound, err)
	})
}

func assertEquivalentListings(t *testing.T, obj1, obj2 *receipt.ListingRecord) {
	assert.Equal(t, obj1.Id, obj2.Id)
	assert.Equal(t, obj1.TradeState, obj2.TradeState)
	assert.Equal(t, obj1.AuctionHouse, obj2.AuctionHouse)
	assert.Equal(t, obj1.Seller, obj2.Seller)
	assert.Equal(t, obj1.TokenAccount, obj2.TokenAccount)
	assert.Equal(t, obj1.TokenMint, obj2.TokenMint)
	assert.Equal(t, obj1.Metadata, obj2.Metadata)
	assert.Equal(t, obj1.Price, obj2.Price)
	assert.Equal(t, obj1.TokenSize, obj2.TokenSize)
	assert.Equal(t, obj1.Remaining, obj2.Remaining)
	assert.Equal(t, obj1.Bookkeeper, obj2.Bookkeeper)
	assert.Equal(t, obj1.PurchaseReceipt, obj2.PurchaseReceipt)
	assert.Equal(t, obj1.ActivatedAt.Unix(), obj2.ActivatedAt.Unix())
	assert.Equal(t, obj1.CreatedAt.Unix(), obj2.CreatedAt.Unix())
}
