package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/auction-house-server/pkg/data/receipt"

	pgutil "github.com/code-payments/auction-house-server/pkg/database/postgres"
	q "github.com/code-payments/auction-house-server/pkg/database/query"
)

const (
	listingTableName  = "auctionhouse__core_listingreceipt"
	bidTableName      = "auctionhouse__core_bidreceipt"
	purchaseTableName = "auctionhouse__core_purchasereceipt"
)

type listingModel struct {
	Id sql.NullInt64 `db:"id"`

	TradeState   string `db:"trade_state"`
	AuctionHouse string `db:"auction_house"`
	Seller       string `db:"seller"`
	TokenAccount string `db:"token_account"`
	TokenMint    string `db:"token_mint"`
	Metadata     string `db:"metadata"`

	Price     int64 `db:"price"`
	TokenSize int64 `db:"token_size"`
	Remaining int64 `db:"remaining"`

	Bookkeeper      string         `db:"bookkeeper"`
	PurchaseReceipt sql.NullString `db:"purchase_receipt"`

	CreatedAt   time.Time    `db:"created_at"`
	ActivatedAt time.Time    `db:"activated_at"`
	ClosedAt    sql.NullTime `db:"closed_at"`
}

func toListingModel(obj *receipt.ListingRecord) (*listingModel, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	createdAt := obj.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return &listingModel{
		TradeState:   obj.TradeState,
		AuctionHouse: obj.AuctionHouse,
		Seller:       obj.Seller,
		TokenAccount: obj.TokenAccount,
		TokenMint:    obj.TokenMint,
		Metadata:     obj.Metadata,

		Price:     int64(obj.Price),
		TokenSize: int64(obj.TokenSize),
		Remaining: int64(obj.Remaining),

		Bookkeeper:      obj.Bookkeeper,
		PurchaseReceipt: toNullString(obj.PurchaseReceipt),

		CreatedAt:   createdAt.UTC(),
		ActivatedAt: obj.ActivatedAt.UTC(),
		ClosedAt:    toNullTime(obj.ClosedAt),
	}, nil
}

func fromListingModel(obj *listingModel) *receipt.ListingRecord {
	return &receipt.ListingRecord{
		Id: uint64(obj.Id.Int64),

		TradeState:   obj.TradeState,
		AuctionHouse: obj.AuctionHouse,
		Seller:       obj.Seller,
		TokenAccount: obj.TokenAccount,
		TokenMint:    obj.TokenMint,
		Metadata:     obj.Metadata,

		Price:     uint64(obj.Price),
		TokenSize: uint64(obj.TokenSize),
		Remaining: uint64(obj.Remaining),

		Bookkeeper:      obj.Bookkeeper,
		PurchaseReceipt: obj.PurchaseReceipt.String,

		CreatedAt:   obj.CreatedAt.UTC(),
		ActivatedAt: obj.ActivatedAt.UTC(),
		ClosedAt:    fromNullTime(obj.ClosedAt),
	}
}

func (m *listingModel) dbSave(ctx context.Context, db *sqlx.DB) error {
	query := `INSERT INTO ` + listingTableName + `
		(trade_state, auction_house, seller, token_account, token_mint, metadata, price, token_size, remaining, bookkeeper, purchase_receipt, created_at, activated_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)

		ON CONFLICT (trade_state)
		DO UPDATE
			SET remaining = $9, bookkeeper = $10, purchase_receipt = $11, activated_at = $13, closed_at = $14
			WHERE ` + listingTableName + `.trade_state = $1

		RETURNING
			id, trade_state, auction_house, seller, token_account, token_mint, metadata, price, token_size, remaining, bookkeeper, purchase_receipt, created_at, activated_at, closed_at`

	return db.QueryRowxContext(
		ctx,
		query,
		m.TradeState,
		m.AuctionHouse,
		m.Seller,
		m.TokenAccount,
		m.TokenMint,
		m.Metadata,
		m.Price,
		m.TokenSize,
		m.Remaining,
		m.Bookkeeper,
		m.PurchaseReceipt,
		m.CreatedAt,
		m.ActivatedAt,
		m.ClosedAt,
	).StructScan(m)
}

func dbGetListing(ctx context.Context, db *sqlx.DB, tradeState string) (*listingModel, error) {
	res := &listingModel{}

	query := `SELECT
		id, trade_state, auction_house, seller, token_account, token_mint, metadata, price, token_size, remaining, bookkeeper, purchase_receipt, created_at, activated_at, closed_at
		FROM ` + listingTableName + `
		WHERE trade_state = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, tradeState)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, receipt.ErrReceiptNotFound)
	}
	return res, nil
}

func dbGetListingsByAuctionHouse(ctx context.Context, db *sqlx.DB, auctionHouse string, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*listingModel, error) {
	res := []*listingModel{}

	query := `SELECT
		id, trade_state, auction_house, seller, token_account, token_mint, metadata, price, token_size, remaining, bookkeeper, purchase_receipt, created_at, activated_at, closed_at
		FROM ` + listingTableName + `
		WHERE (auction_house = $1)
	`

	opts := []interface{}{auctionHouse}
	query, opts = q.PaginateQuery(query, opts, cursor, limit, direction)

	err := db.SelectContext(ctx, &res, query, opts...)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, receipt.ErrReceiptNotFound)
	}

	if len(res) == 0 {
		return nil, receipt.ErrReceiptNotFound
	}
	return res, nil
}

type bidModel struct {
	Id sql.NullInt64 `db:"id"`

	TradeState   string         `db:"trade_state"`
	AuctionHouse string         `db:"auction_house"`
	Buyer        string         `db:"buyer"`
	TokenAccount sql.NullString `db:"token_account"`
	TokenMint    string         `db:"token_mint"`
	Metadata     string         `db:"metadata"`
	Public       bool           `db:"public"`

	Price     int64 `db:"price"`
	TokenSize int64 `db:"token_size"`

	Bookkeeper      string         `db:"bookkeeper"`
	PurchaseReceipt sql.NullString `db:"purchase_receipt"`

	CreatedAt   time.Time    `db:"created_at"`
	ActivatedAt time.Time    `db:"activated_at"`
	ClosedAt    sql.NullTime `db:"closed_at"`
}

func toBidModel(obj *receipt.BidRecord) (*bidModel, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	createdAt := obj.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return &bidModel{
		TradeState:   obj.TradeState,
		AuctionHouse: obj.AuctionHouse,
		Buyer:        obj.Buyer,
		TokenAccount: toNullString(obj.TokenAccount),
		TokenMint:    obj.TokenMint,
		Metadata:     obj.Metadata,
		Public:       obj.Public,

		Price:     int64(obj.Price),
		TokenSize: int64(obj.TokenSize),

		Bookkeeper:      obj.Bookkeeper,
		PurchaseReceipt: toNullString(obj.PurchaseReceipt),

		CreatedAt:   createdAt.UTC(),
		ActivatedAt: obj.ActivatedAt.UTC(),
		ClosedAt:    toNullTime(obj.ClosedAt),
	}, nil
}

func fromBidModel(obj *bidModel) *receipt.BidRecord {
	return &receipt.BidRecord{
		Id: uint64(obj.Id.Int64),

		TradeState:   obj.TradeState,
		AuctionHouse: obj.AuctionHouse,
		Buyer:        obj.Buyer,
		TokenAccount: obj.TokenAccount.String,
		TokenMint:    obj.TokenMint,
		Metadata:     obj.Metadata,
		Public:       obj.Public,

		Price:     uint64(obj.Price),
		TokenSize: uint64(obj.TokenSize),

		Bookkeeper:      obj.Bookkeeper,
		PurchaseReceipt: obj.PurchaseReceipt.String,

		CreatedAt:   obj.CreatedAt.UTC(),
		ActivatedAt: obj.ActivatedAt.UTC(),
		ClosedAt:    fromNullTime(obj.ClosedAt),
	}
}

func (m *bidModel) dbSave(ctx context.Context, db *sqlx.DB) error {
	query := `INSERT INTO ` + bidTableName + `
		(trade_state, auction_house, buyer, token_account, token_mint, metadata, public, price, token_size, bookkeeper, purchase_receipt, created_at, activated_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)

		ON CONFLICT (trade_state)
		DO UPDATE
			SET bookkeeper = $10, purchase_receipt = $11, activated_at = $13, closed_at = $14
			WHERE ` + bidTableName + `.trade_state = $1

		RETURNING
			id, trade_state, auction_house, buyer, token_account, token_mint, metadata, public, price, token_size, bookkeeper, purchase_receipt, created_at, activated_at, closed_at`

	return db.QueryRowxContext(
		ctx,
		query,
		m.TradeState,
		m.AuctionHouse,
		m.Buyer,
		m.TokenAccount,
		m.TokenMint,
		m.Metadata,
		m.Public,
		m.Price,
		m.TokenSize,
		m.Bookkeeper,
		m.PurchaseReceipt,
		m.CreatedAt,
		m.ActivatedAt,
		m.ClosedAt,
	).StructScan(m)
}

func dbGetBid(ctx context.Context, db *sqlx.DB, tradeState string) (*bidModel, error) {
	res := &bidModel{}

	query := `SELECT
		id, trade_state, auction_house, buyer, token_account, token_mint, metadata, public, price, token_size, bookkeeper, purchase_receipt, created_at, activated_at, closed_at
		FROM ` + bidTableName + `
		WHERE trade_state = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, tradeState)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, receipt.ErrReceiptNotFound)
	}
	return res, nil
}

func dbGetBidsByAuctionHouse(ctx context.Context, db *sqlx.DB, auctionHouse string, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*bidModel, error) {
	res := []*bidModel{}

	query := `SELECT
		id, trade_state, auction_house, buyer, token_account, token_mint, metadata, public, price, token_size, bookkeeper, purchase_receipt, created_at, activated_at, closed_at
		FROM ` + bidTableName + `
		WHERE (auction_house = $1)
	`

	opts := []interface{}{auctionHouse}
	query, opts = q.PaginateQuery(query, opts, cursor, limit, direction)

	err := db.SelectContext(ctx, &res, query, opts...)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, receipt.ErrReceiptNotFound)
	}

	if len(res) == 0 {
		return nil, receipt.ErrReceiptNotFound
	}
	return res, nil
}

type purchaseModel struct {
	Id sql.NullInt64 `db:"id"`

	Address      string `db:"address"`
	AuctionHouse string `db:"auction_house"`
	Buyer        string `db:"buyer"`
	Seller       string `db:"seller"`
	TokenMint    string `db:"token_mint"`

	Price     int64 `db:"price"`
	TokenSize int64 `db:"token_size"`
	Fee       int64 `db:"fee"`

	Signature string `db:"signature"`
	Slot      int64  `db:"slot"`

	CreatedAt time.Time `db:"created_at"`
}

func toPurchaseModel(obj *receipt.PurchaseRecord) (*purchaseModel, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	createdAt := obj.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	return &purchaseModel{
		Address:      obj.Address,
		AuctionHouse: obj.AuctionHouse,
		Buyer:        obj.Buyer,
		Seller:       obj.Seller,
		TokenMint:    obj.TokenMint,

		Price:     int64(obj.Price),
		TokenSize: int64(obj.TokenSize),
		Fee:       int64(obj.Fee),

		Signature: obj.Signature,
		Slot:      int64(obj.Slot),

		CreatedAt: createdAt.UTC(),
	}, nil
}

func fromPurchaseModel(obj *purchaseModel) *receipt.PurchaseRecord {
	return &receipt.PurchaseRecord{
		Id: uint64(obj.Id.Int64),

		Address:      obj.Address,
		AuctionHouse: obj.AuctionHouse,
		Buyer:        obj.Buyer,
		Seller:       obj.Seller,
		TokenMint:    obj.TokenMint,

		Price:     uint64(obj.Price),
		TokenSize: uint64(obj.TokenSize),
		Fee:       uint64(obj.Fee),

		Signature: obj.Signature,
		Slot:      uint64(obj.Slot),

		CreatedAt: obj.CreatedAt.UTC(),
	}
}

func (m *purchaseModel) dbPut(ctx context.Context, db *sqlx.DB) error {
	query := `INSERT INTO ` + purchaseTableName + `
		(address, auction_house, buyer, seller, token_mint, price, token_size, fee, signature, slot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)

		RETURNING
			id, address, auction_house, buyer, seller, token_mint, price, token_size, fee, signature, slot, created_at`

	err := db.QueryRowxContext(
		ctx,
		query,
		m.Address,
		m.AuctionHouse,
		m.Buyer,
		m.Seller,
		m.TokenMint,
		m.Price,
		m.TokenSize,
		m.Fee,
		m.Signature,
		m.Slot,
		m.CreatedAt,
	).StructScan(m)
	return pgutil.CheckUniqueViolation(err, receipt.ErrReceiptExists)
}

func dbGetPurchase(ctx context.Context, db *sqlx.DB, address string) (*purchaseModel, error) {
	res := &purchaseModel{}

	query := `SELECT
		id, address, auction_house, buyer, seller, token_mint, price, token_size, fee, signature, slot, created_at
		FROM ` + purchaseTableName + `
		WHERE address = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, address)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, receipt.ErrReceiptNotFound)
	}
	return res, nil
}

func dbGetPurchasesByAuctionHouse(ctx context.Context, db *sqlx.DB, auctionHouse string, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*purchaseModel, error) {
	res := []*purchaseModel{}

	query := `SELECT
		id, address, auction_house, buyer, seller, token_mint, price, token_size, fee, signature, slot, created_at
		FROM ` + purchaseTableName + `
		WHERE (auction_house = $1)
	`

	opts := []interface{}{auctionHouse}
	query, opts = q.PaginateQuery(query, opts, cursor, limit, direction)

	err := db.SelectContext(ctx, &res, query, opts...)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, receipt.ErrReceiptNotFound)
	}

	if len(res) == 0 {
		return nil, receipt.ErrReceiptNotFound
	}
	return res, nil
}

func toNullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: len(value) > 0}
}

func toNullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: value.UTC(), Valid: true}
}

func fromNullTime(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time.UTC()
	return &t
}
