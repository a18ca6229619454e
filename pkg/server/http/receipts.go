package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/auction-house-server/pkg/data/receipt"
	"github.com/code-payments/auction-house-server/pkg/database/query"
)

type listingResponse struct {
	TradeState      string     `json:"trade_state"`
	AuctionHouse    string     `json:"auction_house"`
	Seller          string     `json:"seller"`
	TokenAccount    string     `json:"token_account"`
	TokenMint       string     `json:"token_mint"`
	Metadata        string     `json:"metadata,omitempty"`
	Price           uint64     `json:"price"`
	TokenSize       uint64     `json:"token_size"`
	Remaining       uint64     `json:"remaining"`
	Bookkeeper      string     `json:"bookkeeper"`
	PurchaseReceipt string     `json:"purchase_receipt,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ActivatedAt     time.Time  `json:"activated_at"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
}

type bidResponse struct {
	TradeState      string     `json:"trade_state"`
	AuctionHouse    string     `json:"auction_house"`
	Buyer           string     `json:"buyer"`
	TokenAccount    string     `json:"token_account,omitempty"`
	TokenMint       string     `json:"token_mint"`
	Metadata        string     `json:"metadata,omitempty"`
	Public          bool       `json:"public"`
	Price           uint64     `json:"price"`
	TokenSize       uint64     `json:"token_size"`
	Bookkeeper      string     `json:"bookkeeper"`
	PurchaseReceipt string     `json:"purchase_receipt,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ActivatedAt     time.Time  `json:"activated_at"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
}

type purchaseResponse struct {
	Address      string    `json:"address"`
	AuctionHouse string    `json:"auction_house"`
	Buyer        string    `json:"buyer"`
	Seller       string    `json:"seller"`
	TokenMint    string    `json:"token_mint"`
	Price        uint64    `json:"price"`
	TokenSize    uint64    `json:"token_size"`
	Fee          uint64    `json:"fee"`
	Signature    string    `json:"signature"`
	Slot         uint64    `json:"slot"`
	CreatedAt    time.Time `json:"created_at"`
}

type pageResponse[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

type pageRequest struct {
	auctionHouse string
	cursor       query.Cursor
	limit        uint64
	direction    query.Ordering
}

func (s *Server) getListings(c *gin.Context) {
	req, ok := parsePageRequest(c)
	if !ok {
		return
	}

	records, err := s.receipts.GetListingsByAuctionHouse(c.Request.Context(), req.auctionHouse, req.cursor, req.limit, req.direction)
	writePage(c, s, "getListings", records, err, func(r *receipt.ListingRecord) uint64 { return r.Id }, toListingResponse)
}

func (s *Server) getBids(c *gin.Context) {
	req, ok := parsePageRequest(c)
	if !ok {
		return
	}

	records, err := s.receipts.GetBidsByAuctionHouse(c.Request.Context(), req.auctionHouse, req.cursor, req.limit, req.direction)
	writePage(c, s, "getBids", records, err, func(r *receipt.BidRecord) uint64 { return r.Id }, toBidResponse)
}

func (s *Server) getPurchases(c *gin.Context) {
	req, ok := parsePageRequest(c)
	if !ok {
		return
	}

	records, err := s.receipts.GetPurchasesByAuctionHouse(c.Request.Context(), req.auctionHouse, req.cursor, req.limit, req.direction)
	writePage(c, s, "getPurchases", records, err, func(r *receipt.PurchaseRecord) uint64 { return r.Id }, toPurchaseResponse)
}

func (s *Server) getPurchase(c *gin.Context) {
	record, err := s.receipts.GetPurchase(c.Request.Context(), c.Param("address"))
	if err == receipt.ErrReceiptNotFound {
		notFound(c, err)
		return
	} else if err != nil {
		internalError(c, s.log.WithField("method", "getPurchase"), err)
		return
	}

	c.JSON(http.StatusOK, toPurchaseResponse(record))
}

func parsePageRequest(c *gin.Context) (*pageRequest, bool) {
	address, ok := parseAddress(c.Param("address"))
	if !ok {
		badRequest(c, errInvalidAddress)
		return nil, false
	}

	req := &pageRequest{
		auctionHouse: base58.Encode(address),
		limit:        defaultPageSize,
		direction:    query.ToOrderingWithFallback(c.Query("order"), query.Ascending),
	}

	if cursor := c.Query("cursor"); len(cursor) > 0 {
		parsed, err := query.ParseCursor(cursor)
		if err != nil {
			badRequest(c, err)
			return nil, false
		}
		req.cursor = parsed
	}

	if limit := c.Query("limit"); len(limit) > 0 {
		parsed, err := strconv.ParseUint(limit, 10, 64)
		if err != nil || parsed == 0 {
			badRequest(c, errors.New("limit must be a positive integer"))
			return nil, false
		}
		if parsed > maxPageSize {
			parsed = maxPageSize
		}
		req.limit = parsed
	}

	return req, true
}

// writePage responds with a page of records. An empty result is an empty
// page rather than a 404.
func writePage[R any, T any](c *gin.Context, s *Server, method string, records []R, err error, id func(R) uint64, convert func(R) T) {
	if err != nil && err != receipt.ErrReceiptNotFound {
		internalError(c, s.log.WithField("method", method), err)
		return
	}

	resp := &pageResponse[T]{
		Items: make([]T, 0, len(records)),
	}
	for _, record := range records {
		resp.Items = append(resp.Items, convert(record))
	}
	if len(records) > 0 {
		resp.NextCursor = query.ToCursor(id(records[len(records)-1])).ToBase58()
	}

	c.JSON(http.StatusOK, resp)
}

func toListingResponse(r *receipt.ListingRecord) *listingResponse {
	return &listingResponse{
		TradeState:      r.TradeState,
		AuctionHouse:    r.AuctionHouse,
		Seller:          r.Seller,
		TokenAccount:    r.TokenAccount,
		TokenMint:       r.TokenMint,
		Metadata:        r.Metadata,
		Price:           r.Price,
		TokenSize:       r.TokenSize,
		Remaining:       r.Remaining,
		Bookkeeper:      r.Bookkeeper,
		PurchaseReceipt: r.PurchaseReceipt,
		CreatedAt:       r.CreatedAt,
		ActivatedAt:     r.ActivatedAt,
		ClosedAt:        r.ClosedAt,
	}
}

func toBidResponse(r *receipt.BidRecord) *bidResponse {
	return &bidResponse{
		TradeState:      r.TradeState,
		AuctionHouse:    r.AuctionHouse,
		Buyer:           r.Buyer,
		TokenAccount:    r.TokenAccount,
		TokenMint:       r.TokenMint,
		Metadata:        r.Metadata,
		Public:          r.Public,
		Price:           r.Price,
		TokenSize:       r.TokenSize,
		Bookkeeper:      r.Bookkeeper,
		PurchaseReceipt: r.PurchaseReceipt,
		CreatedAt:       r.CreatedAt,
		ActivatedAt:     r.ActivatedAt,
		ClosedAt:        r.ClosedAt,
	}
}

func toPurchaseResponse(r *receipt.PurchaseRecord) *purchaseResponse {
	return &purchaseResponse{
		Address:      r.Address,
		AuctionHouse: r.AuctionHouse,
		Buyer:        r.Buyer,
		Seller:       r.Seller,
		TokenMint:    r.TokenMint,
		Price:        r.Price,
		TokenSize:    r.TokenSize,
		Fee:          r.Fee,
		Signature:    r.Signature,
		Slot:         r.Slot,
		CreatedAt:    r.CreatedAt,
	}
}
