package receipt

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrReceiptNotFound = errors.New("no receipt could be found")
	ErrReceiptExists   = errors.New("receipt already exists")
)

// ListingRecord tracks a seller trade state across its lifetime. Reopening a
// trade state after it closed reuses the receipt, refreshing ActivatedAt and
// clearing ClosedAt.
type ListingRecord struct {
	Id uint64

	TradeState   string
	AuctionHouse string
	Seller       string
	TokenAccount string
	TokenMint    string
	Metadata     string

	Price     uint64
	TokenSize uint64
	Remaining uint64

	Bookkeeper      string
	PurchaseReceipt string

	CreatedAt   time.Time
	ActivatedAt time.Time
	ClosedAt    *time.Time
}

func (r *ListingRecord) IsClosed() bool {
	return r.ClosedAt != nil
}

func (r *ListingRecord) Validate() error {
	if len(r.TradeState) == 0 {
		return errors.New("trade state is required")
	}

	if len(r.AuctionHouse) == 0 {
		return errors.New("auction house is required")
	}

	if len(r.Seller) == 0 {
		return errors.New("seller is required")
	}

	if len(r.TokenAccount) == 0 {
		return errors.New("token account is required")
	}

	if len(r.TokenMint) == 0 {
		return errors.New("token mint is required")
	}

	if r.TokenSize == 0 {
		return errors.New("token size cannot be zero")
	}

	if r.Remaining > r.TokenSize {
		return errors.New("remaining exceeds token size")
	}

	return validateAmounts(r.Price, r.TokenSize)
}

func (r *ListingRecord) Clone() *ListingRecord {
	return &ListingRecord{
		Id: r.Id,

		TradeState:   r.TradeState,
		AuctionHouse: r.AuctionHouse,
		Seller:       r.Seller,
		TokenAccount: r.TokenAccount,
		TokenMint:    r.TokenMint,
		Metadata:     r.Metadata,

		Price:     r.Price,
		TokenSize: r.TokenSize,
		Remaining: r.Remaining,

		Bookkeeper:      r.Bookkeeper,
		PurchaseReceipt: r.PurchaseReceipt,

		CreatedAt:   r.CreatedAt,
		ActivatedAt: r.ActivatedAt,
		ClosedAt:    cloneTime(r.ClosedAt),
	}
}

// BidRecord tracks a buyer trade state. Public bids have no token account.
type BidRecord struct {
	Id uint64

	TradeState   string
	AuctionHouse string
	Buyer        string
	TokenAccount string
	TokenMint    string
	Metadata     string
	Public       bool

	Price     uint64
	TokenSize uint64

	Bookkeeper      string
	PurchaseReceipt string

	CreatedAt   time.Time
	ActivatedAt time.Time
	ClosedAt    *time.Time
}

func (r *BidRecord) IsClosed() bool {
	return r.ClosedAt != nil
}

func (r *BidRecord) Validate() error {
	if len(r.TradeState) == 0 {
		return errors.New("trade state is required")
	}

	if len(r.AuctionHouse) == 0 {
		return errors.New("auction house is required")
	}

	if len(r.Buyer) == 0 {
		return errors.New("buyer is required")
	}

	if len(r.TokenMint) == 0 {
		return errors.New("token mint is required")
	}

	if r.Public && len(r.TokenAccount) > 0 {
		return errors.New("public bids cannot have a token account")
	}

	if !r.Public && len(r.TokenAccount) == 0 {
		return errors.New("token account is required for private bids")
	}

	if r.TokenSize == 0 {
		return errors.New("token size cannot be zero")
	}

	return validateAmounts(r.Price, r.TokenSize)
}

func (r *BidRecord) Clone() *BidRecord {
	return &BidRecord{
		Id: r.Id,

		TradeState:   r.TradeState,
		AuctionHouse: r.AuctionHouse,
		Buyer:        r.Buyer,
		TokenAccount: r.TokenAccount,
		TokenMint:    r.TokenMint,
		Metadata:     r.Metadata,
		Public:       r.Public,

		Price:     r.Price,
		TokenSize: r.TokenSize,

		Bookkeeper:      r.Bookkeeper,
		PurchaseReceipt: r.PurchaseReceipt,

		CreatedAt:   r.CreatedAt,
		ActivatedAt: r.ActivatedAt,
		ClosedAt:    cloneTime(r.ClosedAt),
	}
}

// PurchaseRecord is an executed sale. Purchases are immutable once written.
type PurchaseRecord struct {
	Id uint64

	Address      string
	AuctionHouse string
	Buyer        string
	Seller       string
	TokenMint    string

	Price     uint64
	TokenSize uint64
	Fee       uint64

	Signature string
	Slot      uint64

	CreatedAt time.Time
}

func (r *PurchaseRecord) Validate() error {
	if len(r.Address) == 0 {
		return errors.New("address is required")
	}

	if len(r.AuctionHouse) == 0 {
		return errors.New("auction house is required")
	}

	if len(r.Buyer) == 0 {
		return errors.New("buyer is required")
	}

	if len(r.Seller) == 0 {
		return errors.New("seller is required")
	}

	if len(r.TokenMint) == 0 {
		return errors.New("token mint is required")
	}

	if r.TokenSize == 0 {
		return errors.New("token size cannot be zero")
	}

	if r.Fee > r.Price {
		return errors.New("fee exceeds price")
	}

	return validateAmounts(r.Price, r.TokenSize)
}

func (r *PurchaseRecord) Clone() *PurchaseRecord {
	return &PurchaseRecord{
		Id: r.Id,

		Address:      r.Address,
		AuctionHouse: r.AuctionHouse,
		Buyer:        r.Buyer,
		Seller:       r.Seller,
		TokenMint:    r.TokenMint,

		Price:     r.Price,
		TokenSize: r.TokenSize,
		Fee:       r.Fee,

		Signature: r.Signature,
		Slot:      r.Slot,

		CreatedAt: r.CreatedAt,
	}
}

// Amounts are persisted as signed 64 bit integers
func validateAmounts(amounts ...uint64) error {
	for _, amount := range amounts {
		if amount > math.MaxInt64 {
			return errors.New("amount overflow")
		}
	}
	return nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}
