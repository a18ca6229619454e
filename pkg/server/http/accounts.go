package http

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/auction-house-server/pkg/amount"
	"github.com/code-payments/auction-house-server/pkg/data/account"
	"github.com/code-payments/auction-house-server/pkg/data/receipt"
	"github.com/code-payments/auction-house-server/pkg/solana/token"

	auctionhouse_program "github.com/code-payments/auction-house-server/pkg/solana/auctionhouse"
)

var errInvalidAddress = errors.New("address must be a base58 encoded public key")

type accountResponse struct {
	Address       string         `json:"address"`
	Owner         string         `json:"owner"`
	Lamports      uint64         `json:"lamports"`
	Sol           string         `json:"sol"`
	Data          []byte         `json:"data"`
	Version       uint64         `json:"version"`
	LastUpdatedAt time.Time      `json:"last_updated_at"`
	Token         *tokenResponse `json:"token,omitempty"`
}

type tokenResponse struct {
	Mint     string `json:"mint"`
	Owner    string `json:"owner"`
	Amount   uint64 `json:"amount"`
	Delegate string `json:"delegate,omitempty"`

	DelegatedAmount uint64 `json:"delegated_amount,omitempty"`
}

type auctionHouseResponse struct {
	Address string `json:"address"`

	Authority    string `json:"authority"`
	Creator      string `json:"creator"`
	TreasuryMint string `json:"treasury_mint"`
	Native       bool   `json:"native"`

	FeeAccount                    string `json:"fee_account"`
	FeeAccountBalance             uint64 `json:"fee_account_balance"`
	Treasury                      string `json:"treasury"`
	TreasuryBalance               uint64 `json:"treasury_balance"`
	FeeWithdrawalDestination      string `json:"fee_withdrawal_destination"`
	TreasuryWithdrawalDestination string `json:"treasury_withdrawal_destination"`

	SellerFeeBasisPoints uint16 `json:"seller_fee_basis_points"`
	SellerFeePercent     string `json:"seller_fee_percent"`
	RequiresSignOff      bool   `json:"requires_sign_off"`
	CanChangeSalePrice   bool   `json:"can_change_sale_price"`

	Auctioneer *auctioneerResponse `json:"auctioneer,omitempty"`
}

type auctioneerResponse struct {
	Record    string   `json:"record"`
	Authority string   `json:"authority,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`
}

type tradeStateResponse struct {
	Address   string `json:"address"`
	Open      bool   `json:"open"`
	Bump      uint8  `json:"bump"`
	Remaining uint64 `json:"remaining"`
	Lamports  uint64 `json:"lamports"`

	Listing *listingResponse `json:"listing,omitempty"`
	Bid     *bidResponse     `json:"bid,omitempty"`
}

func (s *Server) getAccount(c *gin.Context) {
	record, ok := s.loadAccount(c)
	if !ok {
		return
	}

	resp := &accountResponse{
		Address:       record.Address,
		Owner:         record.Owner,
		Lamports:      record.Lamports,
		Sol:           amount.StrFromBaseUnits(record.Lamports, amount.NativeDecimals),
		Data:          record.Data,
		Version:       record.Version,
		LastUpdatedAt: record.LastUpdatedAt,
	}

	if record.Owner == base58.Encode(token.ProgramKey) {
		var tokenAccount token.Account
		if tokenAccount.Unmarshal(record.Data) {
			resp.Token = &tokenResponse{
				Mint:            base58.Encode(tokenAccount.Mint),
				Owner:           base58.Encode(tokenAccount.Owner),
				Amount:          tokenAccount.Amount,
				DelegatedAmount: tokenAccount.DelegatedAmount,
			}
			if len(tokenAccount.Delegate) > 0 {
				resp.Token.Delegate = base58.Encode(tokenAccount.Delegate)
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) getAuctionHouse(c *gin.Context) {
	log := s.log.WithField("method", "getAuctionHouse")

	record, ok := s.loadProgramAccount(c)
	if !ok {
		return
	}

	var house auctionhouse_program.AuctionHouseAccount
	if err := house.Unmarshal(record.Data); err != nil {
		notFound(c, errors.Wrap(err, "account is not an auction house"))
		return
	}

	balances, err := s.runtime.Accounts().GetBatch(
		c.Request.Context(),
		base58.Encode(house.AuctionHouseFeeAccount),
		base58.Encode(house.AuctionHouseTreasury),
	)
	if err != nil {
		internalError(c, log, err)
		return
	}

	resp := &auctionHouseResponse{
		Address:                       record.Address,
		Authority:                     base58.Encode(house.Authority),
		Creator:                       base58.Encode(house.Creator),
		TreasuryMint:                  base58.Encode(house.TreasuryMint),
		Native:                        house.IsNative(),
		FeeAccount:                    base58.Encode(house.AuctionHouseFeeAccount),
		Treasury:                      base58.Encode(house.AuctionHouseTreasury),
		FeeWithdrawalDestination:      base58.Encode(house.FeeWithdrawalDestination),
		TreasuryWithdrawalDestination: base58.Encode(house.TreasuryWithdrawalDestination),
		SellerFeeBasisPoints:          house.SellerFeeBasisPoints,
		SellerFeePercent:              amount.FromBaseUnits(uint64(house.SellerFeeBasisPoints), 2).String(),
		RequiresSignOff:               house.RequiresSignOff,
		CanChangeSalePrice:            house.CanChangeSalePrice,
	}

	if feeAccount, ok := balances[resp.FeeAccount]; ok {
		resp.FeeAccountBalance = feeAccount.Lamports
	}
	if treasury, ok := balances[resp.Treasury]; ok {
		resp.TreasuryBalance = treasury.Lamports
		if !house.IsNative() {
			var tokenAccount token.Account
			if tokenAccount.Unmarshal(treasury.Data) {
				resp.TreasuryBalance = tokenAccount.Amount
			}
		}
	}

	if house.HasAuctioneer {
		resp.Auctioneer = &auctioneerResponse{
			Record: base58.Encode(house.Auctioneer),
		}

		auctioneerRecord, err := s.runtime.Accounts().Get(c.Request.Context(), resp.Auctioneer.Record)
		if err == nil {
			var delegated auctionhouse_program.AuctioneerAccount
			if err := delegated.Unmarshal(auctioneerRecord.Data); err == nil {
				resp.Auctioneer.Authority = base58.Encode(delegated.AuctioneerAuthority)
				for _, scope := range delegated.Scopes.List() {
					resp.Auctioneer.Scopes = append(resp.Auctioneer.Scopes, scope.String())
				}
			}
		} else if err != account.ErrAccountNotFound {
			internalError(c, log, err)
			return
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) getTradeState(c *gin.Context) {
	log := s.log.WithField("method", "getTradeState")

	record, ok := s.loadProgramAccount(c)
	if !ok {
		return
	}

	var tradeState auctionhouse_program.TradeStateAccount
	if err := tradeState.Unmarshal(record.Data); err != nil {
		notFound(c, errors.Wrap(err, "account is not a trade state"))
		return
	}

	resp := &tradeStateResponse{
		Address:   record.Address,
		Open:      auctionhouse_program.IsTradeStateOpen(record.Data),
		Bump:      tradeState.Bump,
		Remaining: tradeState.Remaining,
		Lamports:  record.Lamports,
	}

	listing, err := s.receipts.GetListing(c.Request.Context(), record.Address)
	switch err {
	case nil:
		resp.Listing = toListingResponse(listing)
	case receipt.ErrReceiptNotFound:
		bid, err := s.receipts.GetBid(c.Request.Context(), record.Address)
		if err == nil {
			resp.Bid = toBidResponse(bid)
		} else if err != receipt.ErrReceiptNotFound {
			internalError(c, log, err)
			return
		}
	default:
		internalError(c, log, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) loadAccount(c *gin.Context) (*account.Record, bool) {
	address, ok := parseAddress(c.Param("address"))
	if !ok {
		badRequest(c, errInvalidAddress)
		return nil, false
	}

	record, err := s.runtime.Accounts().Get(c.Request.Context(), base58.Encode(address))
	if err == account.ErrAccountNotFound {
		notFound(c, err)
		return nil, false
	} else if err != nil {
		internalError(c, s.log.WithField("method", "loadAccount"), err)
		return nil, false
	}

	return record, true
}

func (s *Server) loadProgramAccount(c *gin.Context) (*account.Record, bool) {
	record, ok := s.loadAccount(c)
	if !ok {
		return nil, false
	}

	owner, err := base58.Decode(record.Owner)
	if err != nil || !bytes.Equal(owner, auctionhouse_program.PROGRAM_ID) {
		notFound(c, errors.New("account is not owned by the auction house program"))
		return nil, false
	}

	return record, true
}
