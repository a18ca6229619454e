package auctionhouse

import (
	"crypto/ed25519"
	"time"
)

const (
	ListingOpenedEventName    = "ListingOpened"
	BidPlacedEventName        = "BidPlaced"
	TradeStateClosedEventName = "TradeStateClosed"
	SaleExecutedEventName     = "SaleExecuted"
)

// ListingOpened is emitted when a seller trade state moves from Absent to Open
type ListingOpened struct {
	AuctionHouse ed25519.PublicKey
	TradeState   ed25519.PublicKey
	Seller       ed25519.PublicKey
	TokenAccount ed25519.PublicKey
	TokenMint    ed25519.PublicKey
	Metadata     ed25519.PublicKey
	Bookkeeper   ed25519.PublicKey
	Price        uint64
	TokenSize    uint64
	OpenedAt     time.Time
}

func (ListingOpened) EventName() string {
	return ListingOpenedEventName
}

// BidPlaced is emitted when a buyer trade state moves from Absent to Open.
// TokenAccount is nil for public bids.
type BidPlaced struct {
	AuctionHouse ed25519.PublicKey
	TradeState   ed25519.PublicKey
	Buyer        ed25519.PublicKey
	TokenAccount ed25519.PublicKey
	TokenMint    ed25519.PublicKey
	Metadata     ed25519.PublicKey
	Bookkeeper   ed25519.PublicKey
	Public       bool
	Price        uint64
	TokenSize    uint64
	OpenedAt     time.Time
}

func (BidPlaced) EventName() string {
	return BidPlacedEventName
}

type CloseReason uint8

const (
	CloseReasonCanceled CloseReason = iota
	CloseReasonFilled
)

func (r CloseReason) String() string {
	switch r {
	case CloseReasonCanceled:
		return "canceled"
	case CloseReasonFilled:
		return "filled"
	}
	return "unknown"
}

// TradeStateClosed is emitted when an Open trade state is canceled, or is
// consumed by a sale
type TradeStateClosed struct {
	AuctionHouse ed25519.PublicKey
	TradeState   ed25519.PublicKey
	Reason       CloseReason
	ClosedAt     time.Time
}

func (TradeStateClosed) EventName() string {
	return TradeStateClosedEventName
}

// SaleExecuted is emitted for every full or partial fill
type SaleExecuted struct {
	AuctionHouse     ed25519.PublicKey
	Buyer            ed25519.PublicKey
	Seller           ed25519.PublicKey
	TokenMint        ed25519.PublicKey
	BuyerTradeState  ed25519.PublicKey
	SellerTradeState ed25519.PublicKey
	Price            uint64
	TokenSize        uint64
	Fee              uint64

	// SellerRemaining is what's left of the listing after the fill
	SellerRemaining uint64

	ExecutedAt time.Time
}

func (SaleExecuted) EventName() string {
	return SaleExecutedEventName
}
