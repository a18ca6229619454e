package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/code-payments/auction-house-server/pkg/data/receipt"
	"github.com/code-payments/auction-house-server/pkg/database/query"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres-backed receipt.Store
func New(db *sql.DB) receipt.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// SaveListing implements receipt.Store.SaveListing
func (s *store) SaveListing(ctx context.Context, record *receipt.ListingRecord) error {
	model, err := toListingModel(record)
	if err != nil {
		return err
	}

	if err := model.dbSave(ctx, s.db); err != nil {
		return err
	}

	res := fromListingModel(model)
	record.Id = res.Id
	record.CreatedAt = res.CreatedAt
	return nil
}

// GetListing implements receipt.Store.GetListing
func (s *store) GetListing(ctx context.Context, tradeState string) (*receipt.ListingRecord, error) {
	model, err := dbGetListing(ctx, s.db, tradeState)
	if err != nil {
		return nil, err
	}
	return fromListingModel(model), nil
}

// GetListingsByAuctionHouse implements receipt.Store.GetListingsByAuctionHouse
func (s *store) GetListingsByAuctionHouse(ctx context.Context, auctionHouse string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*receipt.ListingRecord, error) {
	models, err := dbGetListingsByAuctionHouse(ctx, s.db, auctionHouse, cursor, limit, direction)
	if err != nil {
		return nil, err
	}

	res := make([]*receipt.ListingRecord, len(models))
	for i, model := range models {
		res[i] = fromListingModel(model)
	}
	return res, nil
}

// SaveBid implements receipt.Store.SaveBid
func (s *store) SaveBid(ctx context.Context, record *receipt.BidRecord) error {
	model, err := toBidModel(record)
	if err != nil {
		return err
	}

	if err := model.dbSave(ctx, s.db); err != nil {
		return err
	}

	res := fromBidModel(model)
	record.Id = res.Id
	record.CreatedAt = res.CreatedAt
	return nil
}

// GetBid implements receipt.Store.GetBid
func (s *store) GetBid(ctx context.Context, tradeState string) (*receipt.BidRecord, error) {
	model, err := dbGetBid(ctx, s.db, tradeState)
	if err != nil {
		return nil, err
	}
	return fromBidModel(model), nil
}

// GetBidsByAuctionHouse implements receipt.Store.GetBidsByAuctionHouse
func (s *store) GetBidsByAuctionHouse(ctx context.Context, auctionHouse string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*receipt.BidRecord, error) {
	models, err := dbGetBidsByAuctionHouse(ctx, s.db, auctionHouse, cursor, limit, direction)
	if err != nil {
		return nil, err
	}

	res := make([]*receipt.BidRecord, len(models))
	for i, model := range models {
		res[i] = fromBidModel(model)
	}
	return res, nil
}

// PutPurchase implements receipt.Store.PutPurchase
func (s *store) PutPurchase(ctx context.Context, record *receipt.PurchaseRecord) error {
	model, err := toPurchaseModel(record)
	if err != nil {
		return err
	}

	if err := model.dbPut(ctx, s.db); err != nil {
		return err
	}

	res := fromPurchaseModel(model)
	record.Id = res.Id
	record.CreatedAt = res.CreatedAt
	return nil
}

// GetPurchase implements receipt.Store.GetPurchase
func (s *store) GetPurchase(ctx context.Context, address string) (*receipt.PurchaseRecord, error) {
	model, err := dbGetPurchase(ctx, s.db, address)
	if err != nil {
		return nil, err
	}
	return fromPurchaseModel(model), nil
}

// GetPurchasesByAuctionHouse implements receipt.Store.GetPurchasesByAuctionHouse
func (s *store) GetPurchasesByAuctionHouse(ctx context.Context, auctionHouse string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*receipt.PurchaseRecord, error) {
	models, err := dbGetPurchasesByAuctionHouse(ctx, s.db, auctionHouse, cursor, limit, direction)
	if err != nil {
		return nil, err
	}

	res := make([]*receipt.PurchaseRecord, len(models))
	for i, model := range models {
		res[i] = fromPurchaseModel(model)
	}
	return res, nil
}
