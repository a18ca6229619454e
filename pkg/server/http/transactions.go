package http

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/auction-house-server/pkg/data/account"
	"github.com/code-payments/auction-house-server/pkg/runtime"
	"github.com/code-payments/auction-house-server/pkg/solana"

	auctionhouse_program "github.com/code-payments/auction-house-server/pkg/solana/auctionhouse"
)

type submitTransactionRequest struct {
	// Transaction is the base64 encoded wire format of a signed transaction
	Transaction string `json:"transaction" binding:"required"`
}

type submitTransactionResponse struct {
	Id         string    `json:"id"`
	Signature  string    `json:"signature"`
	Slot       uint64    `json:"slot"`
	ExecutedAt time.Time `json:"executed_at"`
	Events     []string  `json:"events"`
}

func (s *Server) submitTransaction(c *gin.Context) {
	log := s.log.WithField("method", "submitTransaction")

	var req submitTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	raw, err := base64.StdEncoding.DecodeString(req.Transaction)
	if err != nil {
		badRequest(c, errors.Wrap(err, "transaction is not base64 encoded"))
		return
	}

	var tx solana.Transaction
	if err := tx.Unmarshal(raw); err != nil {
		badRequest(c, errors.Wrap(err, "invalid transaction"))
		return
	}

	if len(tx.Signatures) > 0 {
		log = log.WithField("signature", base58.Encode(tx.Signature()))
	}

	result, err := s.runtime.Submit(c.Request.Context(), &tx)
	if err != nil {
		status, resp := transactionError(err)
		if status == http.StatusInternalServerError {
			log.WithError(err).Warn("failure submitting transaction")
		} else {
			log.WithError(err).Debug("transaction rejected")
		}

		_ = c.Error(err)
		c.AbortWithStatusJSON(status, resp)
		return
	}

	events := make([]string, len(result.Events))
	for i, event := range result.Events {
		events[i] = event.EventName()
	}

	log.WithFields(logrus.Fields{
		"id":   result.Id.String(),
		"slot": result.Slot,
	}).Debug("transaction committed")

	c.JSON(http.StatusOK, &submitTransactionResponse{
		Id:         result.Id.String(),
		Signature:  base58.Encode(result.Signature),
		Slot:       result.Slot,
		ExecutedAt: result.ExecutedAt,
		Events:     events,
	})
}

// transactionError maps a submission failure to a response. Program errors
// keep their code and name so clients can match on them.
func transactionError(err error) (int, *errorResponse) {
	resp := &errorResponse{
		Name:    "TransactionError",
		Message: err.Error(),
	}

	switch {
	case errors.Is(err, runtime.ErrRateLimited):
		resp.Name = "RateLimited"
		return http.StatusTooManyRequests, resp
	case errors.Is(err, account.ErrStaleAccountState):
		resp.Name = "StaleAccountState"
		return http.StatusConflict, resp
	case errors.Is(err, solana.ErrMissingSignature), errors.Is(err, solana.ErrInvalidSignature):
		resp.Name = "SignatureError"
		return http.StatusBadRequest, resp
	case errors.Is(err, runtime.ErrEmptyTransaction), errors.Is(err, runtime.ErrInvalidArgument):
		return http.StatusBadRequest, resp
	}

	ixErr, ok := runtime.GetInstructionError(err)
	if !ok {
		resp.Name = "Internal"
		return http.StatusInternalServerError, resp
	}

	index := ixErr.Index
	resp.Instruction = &index
	resp.Name = "InstructionError"
	resp.Message = ixErr.Err.Error()

	var programErr *auctionhouse_program.ProgramError
	if errors.As(err, &programErr) {
		resp.Code = programErr.Code
		resp.Name = programErr.Name
		resp.Message = programErr.Message
	}

	return http.StatusBadRequest, resp
}
