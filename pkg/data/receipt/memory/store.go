package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/code-payments/auction-house-server/pkg/data/receipt"
	"github.com/code-payments/auction-house-server/pkg/database/query"
)

type store struct {
	mu sync.Mutex

	listings  []*receipt.ListingRecord
	bids      []*receipt.BidRecord
	purchases []*receipt.PurchaseRecord

	last uint64
}

// New returns a new in memory receipt.Store
func New() receipt.Store {
	return &store{}
}

// SaveListing implements receipt.Store.SaveListing
func (s *store) SaveListing(_ context.Context, data *receipt.ListingRecord) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.listings {
		if item.TradeState != data.TradeState {
			continue
		}

		data.Id = item.Id
		data.CreatedAt = item.CreatedAt
		*item = *data.Clone()
		return nil
	}

	s.last++
	data.Id = s.last
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}
	s.listings = append(s.listings, data.Clone())
	return nil
}

// GetListing implements receipt.Store.GetListing
func (s *store) GetListing(_ context.Context, tradeState string) (*receipt.ListingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.listings {
		if item.TradeState == tradeState {
			return item.Clone(), nil
		}
	}
	return nil, receipt.ErrReceiptNotFound
}

// GetListingsByAuctionHouse implements receipt.Store.GetListingsByAuctionHouse
func (s *store) GetListingsByAuctionHouse(_ context.Context, auctionHouse string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*receipt.ListingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []*receipt.ListingRecord
	for _, item := range page(s.listings, func(r *receipt.ListingRecord) uint64 { return r.Id }, cursor, limit, direction, func(r *receipt.ListingRecord) bool {
		return r.AuctionHouse == auctionHouse
	}) {
		res = append(res, item.Clone())
	}

	if len(res) == 0 {
		return nil, receipt.ErrReceiptNotFound
	}
	return res, nil
}

// SaveBid implements receipt.Store.SaveBid
func (s *store) SaveBid(_ context.Context, data *receipt.BidRecord) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.bids {
		if item.TradeState != data.TradeState {
			continue
		}

		data.Id = item.Id
		data.CreatedAt = item.CreatedAt
		*item = *data.Clone()
		return nil
	}

	s.last++
	data.Id = s.last
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}
	s.bids = append(s.bids, data.Clone())
	return nil
}

// GetBid implements receipt.Store.GetBid
func (s *store) GetBid(_ context.Context, tradeState string) (*receipt.BidRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.bids {
		if item.TradeState == tradeState {
			return item.Clone(), nil
		}
	}
	return nil, receipt.ErrReceiptNotFound
}

// GetBidsByAuctionHouse implements receipt.Store.GetBidsByAuctionHouse
func (s *store) GetBidsByAuctionHouse(_ context.Context, auctionHouse string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*receipt.BidRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []*receipt.BidRecord
	for _, item := range page(s.bids, func(r *receipt.BidRecord) uint64 { return r.Id }, cursor, limit, direction, func(r *receipt.BidRecord) bool {
		return r.AuctionHouse == auctionHouse
	}) {
		res = append(res, item.Clone())
	}

	if len(res) == 0 {
		return nil, receipt.ErrReceiptNotFound
	}
	return res, nil
}

// PutPurchase implements receipt.Store.PutPurchase
func (s *store) PutPurchase(_ context.Context, data *receipt.PurchaseRecord) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.purchases {
		if item.Address == data.Address {
			return receipt.ErrReceiptExists
		}
	}

	s.last++
	data.Id = s.last
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}
	s.purchases = append(s.purchases, data.Clone())
	return nil
}

// GetPurchase implements receipt.Store.GetPurchase
func (s *store) GetPurchase(_ context.Context, address string) (*receipt.PurchaseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.purchases {
		if item.Address == address {
			return item.Clone(), nil
		}
	}
	return nil, receipt.ErrReceiptNotFound
}

// GetPurchasesByAuctionHouse implements receipt.Store.GetPurchasesByAuctionHouse
func (s *store) GetPurchasesByAuctionHouse(_ context.Context, auctionHouse string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*receipt.PurchaseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []*receipt.PurchaseRecord
	for _, item := range page(s.purchases, func(r *receipt.PurchaseRecord) uint64 { return r.Id }, cursor, limit, direction, func(r *receipt.PurchaseRecord) bool {
		return r.AuctionHouse == auctionHouse
	}) {
		res = append(res, item.Clone())
	}

	if len(res) == 0 {
		return nil, receipt.ErrReceiptNotFound
	}
	return res, nil
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listings = nil
	s.bids = nil
	s.purchases = nil
	s.last = 0
}

// page applies cursor based paging over ids, the same way the postgres store
// pages over its serial ids
func page[T any](items []T, id func(T) uint64, cursor query.Cursor, limit uint64, direction query.Ordering, match func(T) bool) []T {
	var res []T
	for _, item := range items {
		if !match(item) {
			continue
		}

		if len(cursor) > 0 {
			start := cursor.ToUint64()
			if direction == query.Ascending && id(item) <= start {
				continue
			}
			if direction == query.Descending && id(item) >= start {
				continue
			}
		}

		res = append(res, item)
	}

	sort.Slice(res, func(i, j int) bool {
		if direction == query.Descending {
			return id(res[i]) > id(res[j])
		}
		return id(res[i]) < id(res[j])
	})

	if limit > 0 && uint64(len(res)) > limit {
		return res[:limit]
	}
	return res
}
