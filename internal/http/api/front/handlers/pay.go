package handlers

import (
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/invoices"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/ratelimit"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/settle"
	"github.com/gin-gonic/gin"
)

// PayFrontHandler settles subscription payments.
type PayFrontHandler struct {
	engine  *settle.Engine
	limiter *ratelimit.Manager
}

// NewPayFrontHandler constructs a PayFrontHandler.
func NewPayFrontHandler(engine *settle.Engine, limiter *ratelimit.Manager) *PayFrontHandler {
	return &PayFrontHandler{engine: engine, limiter: limiter}
}

// allowPayment applies the per-user payment rate limit.
func (h *PayFrontHandler) allowPayment(c *gin.Context, user string) bool {
	if h.limiter == nil {
		return true
	}
	limit := ratelimit.DefaultSettingsLimit()
	key := ratelimit.KeyForPayment(user, limit)
	if key == "" {
		return true
	}
	result, errAllow := h.limiter.Allow(c.Request.Context(), key, limit)
	if errAllow != nil {
		// Limiter trouble never blocks payments.
		return true
	}
	if !result.Allowed {
		retryAfter := int64(time.Until(result.Reset).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many payment attempts"})
		return false
	}
	return true
}

// parseAmount parses a non-negative base-10 amount.
func parseAmount(raw string) (*big.Int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok || amount.Sign() < 0 {
		return nil, false
	}
	return amount, true
}

// writePayError maps settlement errors to HTTP responses.
func writePayError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, settle.ErrPlanInactive):
		c.JSON(http.StatusConflict, gin.H{"error": "plan not purchasable", "code": "plan_inactive"})
	case errors.Is(err, invoices.ErrInvoiceAlreadyUsed):
		c.JSON(http.StatusConflict, gin.H{"error": "invoice already used", "code": "invoice_already_used"})
	case errors.Is(err, settle.ErrInsufficientPayment):
		c.JSON(http.StatusBadRequest, gin.H{"error": "payment does not cover the quoted amount", "code": "insufficient_payment"})
	case errors.Is(err, settle.ErrSlippageExceeded):
		c.JSON(http.StatusConflict, gin.H{"error": "quoted amount exceeds your maximum", "code": "slippage_exceeded"})
	case errors.Is(err, settle.ErrTransferFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "transfer failed", "code": "transfer_failed"})
	case errors.Is(err, settle.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment request", "code": "invalid_argument"})
	default:
		writeQuoteError(c, err)
	}
}

// formatReceipt shapes a settlement receipt for API responses.
func formatReceipt(receipt *settle.Receipt) gin.H {
	return gin.H{
		"payment_id": receipt.PaymentID,
		"user":       receipt.User,
		"plan_id":    receipt.PlanID,
		"invoice_id": receipt.InvoiceID,
		"token":      receipt.Token,
		"method":     receipt.Method,
		"amount":     receipt.Amount.String(),
		"refund":     receipt.Refund.String(),
		"expires_at": receipt.ExpiresAt.UTC(),
	}
}

// payNativeRequest captures the payload for a native-currency payment.
type payNativeRequest struct {
	User      string `json:"user"`       // Paying user identity.
	PlanID    uint64 `json:"plan_id"`    // Plan to purchase.
	InvoiceID string `json:"invoice_id"` // Caller-supplied idempotency token.
	Value     string `json:"value"`      // Attached value in base units.
}

// PayNative settles a native-currency payment, refunding any excess.
func (h *PayFrontHandler) PayNative(c *gin.Context) {
	var body payNativeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	value, ok := parseAmount(body.Value)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid value"})
		return
	}
	if !h.allowPayment(c, body.User) {
		return
	}

	receipt, errPay := h.engine.PayWithNative(c.Request.Context(), settle.NativePayment{
		User:      body.User,
		PlanID:    body.PlanID,
		InvoiceID: body.InvoiceID,
		Value:     value,
	})
	if errPay != nil {
		writePayError(c, errPay)
		return
	}
	c.JSON(http.StatusOK, formatReceipt(receipt))
}

// payTokenRequest captures the payload for a token payment.
type payTokenRequest struct {
	User      string `json:"user"`       // Paying user identity.
	PlanID    uint64 `json:"plan_id"`    // Plan to purchase.
	InvoiceID string `json:"invoice_id"` // Caller-supplied idempotency token.
	Token     string `json:"token"`      // Settlement currency address.
	MaxAmount string `json:"max_amount"` // Slippage bound in base units.
}

// PayToken settles a token payment for exactly the quoted amount.
func (h *PayFrontHandler) PayToken(c *gin.Context) {
	var body payTokenRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.MaxAmount) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_amount is required"})
		return
	}
	maxAmount, ok := parseAmount(body.MaxAmount)
	if !ok || maxAmount.Sign() == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid max_amount"})
		return
	}
	if !h.allowPayment(c, body.User) {
		return
	}

	receipt, errPay := h.engine.PayWithToken(c.Request.Context(), settle.TokenPayment{
		User:      body.User,
		PlanID:    body.PlanID,
		InvoiceID: body.InvoiceID,
		Token:     body.Token,
		MaxAmount: maxAmount,
	})
	if errPay != nil {
		writePayError(c, errPay)
		return
	}
	c.JSON(http.StatusOK, formatReceipt(receipt))
}

// History returns the caller's settled payments, newest first.
func (h *PayFrontHandler) History(c *gin.Context) {
	user := strings.TrimSpace(c.Param("user"))
	if user == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user"})
		return
	}
	var planID *uint64
	if raw := strings.TrimSpace(c.Query("plan_id")); raw != "" {
		parsed, errParse := strconv.ParseUint(raw, 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan_id"})
			return
		}
		planID = &parsed
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	rows, errList := h.engine.Payments(c.Request.Context(), user, planID, limit)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list payments failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"payment_id": row.PaymentID,
			"plan_id":    row.PlanID,
			"invoice_id": row.InvoiceID,
			"token":      row.Token,
			"method":     row.Method,
			"amount":     row.Amount,
			"refund":     row.Refund,
			"expires_at": row.ExpiresAt,
			"created_at": row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "payments": out})
}
