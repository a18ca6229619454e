package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/code-payments/auction-house-server/pkg/amount"
	"github.com/code-payments/auction-house-server/pkg/auctionhouse"
)

type quoteResponse struct {
	SellerFeeBasisPoints uint16 `json:"seller_fee_basis_points"`
	Decimals             uint8  `json:"decimals"`

	Price    uint64 `json:"price"`
	Fee      uint64 `json:"fee"`
	Proceeds uint64 `json:"proceeds"`

	PriceUi    string `json:"price_ui"`
	FeeUi      string `json:"fee_ui"`
	ProceedsUi string `json:"proceeds_ui"`
}

// getQuote splits a sale price into the house fee and seller proceeds. The
// price is a decimal amount in the treasury mint's units.
func (s *Server) getQuote(c *gin.Context) {
	decimals := uint64(amount.NativeDecimals)
	if value := c.Query("decimals"); len(value) > 0 {
		parsed, err := strconv.ParseUint(value, 10, 8)
		if err != nil || parsed > amount.MaxDecimals {
			badRequest(c, errors.New("invalid decimals"))
			return
		}
		decimals = parsed
	}

	bps, err := strconv.ParseUint(c.Query("bps"), 10, 16)
	if err != nil {
		badRequest(c, errors.New("invalid bps"))
		return
	}

	price, err := amount.StrToBaseUnits(c.Query("price"), uint8(decimals))
	if err != nil {
		badRequest(c, errors.Wrap(err, "invalid price"))
		return
	}

	fee, proceeds, err := auctionhouse.ComputeFee(price, uint16(bps))
	if err != nil {
		badRequest(c, err)
		return
	}

	c.JSON(http.StatusOK, &quoteResponse{
		SellerFeeBasisPoints: uint16(bps),
		Decimals:             uint8(decimals),
		Price:                price,
		Fee:                  fee,
		Proceeds:             proceeds,
		PriceUi:              amount.StrFromBaseUnits(price, uint8(decimals)),
		FeeUi:                amount.StrFromBaseUnits(fee, uint8(decimals)),
		ProceedsUi:           amount.StrFromBaseUnits(proceeds, uint8(decimals)),
	})
}
