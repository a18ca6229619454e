package receipt

import (
	"context"

	"github.com/code-payments/auction-house-server/pkg/database/query"
)

type Store interface {
	// SaveListing creates or updates a listing receipt, keyed by trade state.
	// CreatedAt is only set on creation.
	SaveListing(ctx context.Context, record *ListingRecord) error

	// GetListing gets the listing receipt for a seller trade state.
	//
	// Returns ErrReceiptNotFound if no receipt exists.
	GetListing(ctx context.Context, tradeState string) (*ListingRecord, error)

	// GetListingsByAuctionHouse pages over the listing receipts of an auction
	// house.
	//
	// Returns ErrReceiptNotFound if no receipts are found.
	GetListingsByAuctionHouse(ctx context.Context, auctionHouse string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*ListingRecord, error)

	// SaveBid creates or updates a bid receipt, keyed by trade state. CreatedAt
	// is only set on creation.
	SaveBid(ctx context.Context, record *BidRecord) error

	// GetBid gets the bid receipt for a buyer trade state.
	//
	// Returns ErrReceiptNotFound if no receipt exists.
	GetBid(ctx context.Context, tradeState string) (*BidRecord, error)

	// GetBidsByAuctionHouse pages over the bid receipts of an auction house.
	//
	// Returns ErrReceiptNotFound if no receipts are found.
	GetBidsByAuctionHouse(ctx context.Context, auctionHouse string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*BidRecord, error)

	// PutPurchase writes a purchase receipt.
	//
	// Returns ErrReceiptExists if a receipt with the same address exists.
	PutPurchase(ctx context.Context, record *PurchaseRecord) error

	// GetPurchase gets a purchase receipt by its address.
	//
	// Returns ErrReceiptNotFound if no receipt exists.
	GetPurchase(ctx context.Context, address string) (*PurchaseRecord, error)

	// GetPurchasesByAuctionHouse pages over the purchase receipts of an
	// auction house.
	//
	// Returns ErrReceiptNotFound if no receipts are found.
	GetPurchasesByAuctionHouse(ctx context.Context, auctionHouse string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*PurchaseRecord, error)
}
