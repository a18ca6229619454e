// Package http exposes the runtime and receipt stores over a JSON API.
package http

import (
	"crypto/ed25519"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/auction-house-server/pkg/data/receipt"
	"github.com/code-payments/auction-house-server/pkg/runtime"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Server serves transaction submission and account lookups
type Server struct {
	log *logrus.Entry

	runtime  *runtime.Runtime
	receipts receipt.Store
}

// NewServer returns a Server over rt and its receipt store
func NewServer(rt *runtime.Runtime, receipts receipt.Store) *Server {
	return &Server{
		log:      logrus.StandardLogger().WithField("type", "server/http"),
		runtime:  rt,
		receipts: receipts,
	}
}

// Register installs the API routes on router
func (s *Server) Register(router gin.IRouter) {
	v1 := router.Group("/v1")

	v1.POST("/transactions", s.submitTransaction)

	v1.GET("/accounts/:address", s.getAccount)
	v1.GET("/auction-houses/:address", s.getAuctionHouse)
	v1.GET("/trade-states/:address", s.getTradeState)

	v1.GET("/auction-houses/:address/listings", s.getListings)
	v1.GET("/auction-houses/:address/bids", s.getBids)
	v1.GET("/auction-houses/:address/purchases", s.getPurchases)
	v1.GET("/purchases/:address", s.getPurchase)

	v1.GET("/quote", s.getQuote)
}

type errorResponse struct {
	Code        uint32 `json:"code,omitempty"`
	Name        string `json:"name"`
	Message     string `json:"message"`
	Instruction *int   `json:"instruction,omitempty"`
}

func abortWithError(c *gin.Context, status int, name string, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, &errorResponse{
		Name:    name,
		Message: err.Error(),
	})
}

func badRequest(c *gin.Context, err error) {
	abortWithError(c, http.StatusBadRequest, "InvalidRequest", err)
}

func notFound(c *gin.Context, err error) {
	abortWithError(c, http.StatusNotFound, "NotFound", err)
}

func internalError(c *gin.Context, log *logrus.Entry, err error) {
	log.WithError(err).Warn("failure serving request")
	abortWithError(c, http.StatusInternalServerError, "Internal", err)
}

func parseAddress(value string) (ed25519.PublicKey, bool) {
	decoded, err := base58.Decode(value)
	if err != nil || len(decoded) != ed25519.PublicKeySize {
		return nil, false
	}
	return decoded, true
}
