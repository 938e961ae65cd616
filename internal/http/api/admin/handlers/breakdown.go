package handlers

import (
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/oracle"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/plans"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/settle"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/tokens"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// QuoteBreakdownHandler exposes the full conversion arithmetic behind a
// quote so operators can audit pricing.
type QuoteBreakdownHandler struct {
	engine *settle.Engine
}

// NewQuoteBreakdownHandler constructs a quote breakdown handler.
func NewQuoteBreakdownHandler(engine *settle.Engine) *QuoteBreakdownHandler {
	return &QuoteBreakdownHandler{engine: engine}
}

// Get prices a plan in a currency and returns every term of the conversion.
func (h *QuoteBreakdownHandler) Get(c *gin.Context) {
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
		switch {
		case errors.Is(errQuote, plans.ErrPlanNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
		case errors.Is(errQuote, tokens.ErrTokenNotAccepted):
			c.JSON(http.StatusBadRequest, gin.H{"error": "currency not accepted"})
		case errors.Is(errQuote, oracle.ErrPriceFeedUnset):
			c.JSON(http.StatusConflict, gin.H{"error": "price feed unset"})
		case errors.Is(errQuote, oracle.ErrStalePrice):
			c.JSON(http.StatusConflict, gin.H{"error": "price feed stale"})
		case errors.Is(errQuote, settle.ErrQuoteUnderflow):
			c.JSON(http.StatusConflict, gin.H{"error": "quoted amount underflows to zero"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "quote failed"})
		}
		return
	}

	priceDisplay := decimal.NewFromBigInt(new(big.Int).SetUint64(quote.PriceUsd), -int32(quote.UsdDecimals))
	out := gin.H{
		"plan_id":        quote.PlanID,
		"token":          quote.Token,
		"amount":         quote.Amount.String(),
		"price_usd":      quote.PriceUsd,
		"price_usd_text": priceDisplay.String(),
		"usd_decimals":   quote.UsdDecimals,
		"feed_id":        quote.FeedID,
		"token_decimals": quote.TokenDecimals,
		"free":           quote.Free,
	}
	if quote.Answer != nil {
		out["answer"] = quote.Answer.String()
		out["feed_decimals"] = quote.FeedDecimals
		answerDisplay := decimal.NewFromBigInt(quote.Answer, -int32(quote.FeedDecimals))
		out["answer_text"] = answerDisplay.String()
		amountDisplay := decimal.NewFromBigInt(quote.Amount, -int32(quote.TokenDecimals))
		out["amount_text"] = amountDisplay.String()
	}
	c.JSON(http.StatusOK, out)
}
