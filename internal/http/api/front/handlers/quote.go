package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/oracle"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/plans"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/settle"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/tokens"
	"github.com/gin-gonic/gin"
)

// QuoteFrontHandler prices plans in payment currencies.
type QuoteFrontHandler struct {
	engine *settle.Engine
}

// NewQuoteFrontHandler constructs a QuoteFrontHandler.
func NewQuoteFrontHandler(engine *settle.Engine) *QuoteFrontHandler {
	return &QuoteFrontHandler{engine: engine}
}

// writeQuoteError maps quote errors to HTTP responses.
func writeQuoteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, plans.ErrPlanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "plan not found", "code": "plan_not_found"})
	case errors.Is(err, tokens.ErrTokenNotAccepted):
		c.JSON(http.StatusBadRequest, gin.H{"error": "currency not accepted", "code": "token_not_accepted"})
	case errors.Is(err, tokens.ErrInvalidAddress):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid currency address", "code": "invalid_address"})
	case errors.Is(err, oracle.ErrPriceFeedUnset):
		c.JSON(http.StatusConflict, gin.H{"error": "no price feed for currency", "code": "price_feed_unset"})
	case errors.Is(err, oracle.ErrStalePrice):
		c.JSON(http.StatusConflict, gin.H{"error": "price feed unavailable or stale", "code": "stale_price"})
	case errors.Is(err, settle.ErrQuoteUnderflow):
		c.JSON(http.StatusConflict, gin.H{"error": "plan price too small for this currency", "code": "quote_underflow"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "quote failed"})
	}
}

// Get returns the currency amount currently required to buy a plan.
func (h *QuoteFrontHandler) Get(c *gin.Context) {
	planID, errParse := strconv.ParseUint(strings.TrimSpace(c.Query("plan_id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan_id"})
		return
	}
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	quote, errQuote := h.engine.QuotePlan(c.Request.Context(), planID, token)
	if errQuote != nil {
		writeQuoteError(c, errQuote)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"plan_id":        quote.PlanID,
		"token":          quote.Token,
		"amount":         quote.Amount.String(),
		"token_decimals": quote.TokenDecimals,
		"free":           quote.Free,
	})
}
