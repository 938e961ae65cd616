package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PaymentHandler exposes settled payments and transfer journal entries.
type PaymentHandler struct {
	db *gorm.DB // Database handle for payment records.
}

// NewPaymentHandler constructs a payment handler.
func NewPaymentHandler(db *gorm.DB) *PaymentHandler {
	return &PaymentHandler{db: db}
}

func parseLimit(c *gin.Context) int {
	limit, errParse := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if errParse != nil || limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}

// List returns settled payments, newest first, with optional user and plan
// filters.
func (h *PaymentHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.Payment{})
	if user := strings.TrimSpace(c.Query("user")); user != "" {
		q = q.Where("\"user\" = ?", user)
	}
	if planRaw := strings.TrimSpace(c.Query("plan_id")); planRaw != "" {
		planID, errParse := strconv.ParseUint(planRaw, 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan_id"})
			return
		}
		q = q.Where("plan_id = ?", planID)
	}

	var rows []models.Payment
	if errFind := q.Order("created_at DESC, id DESC").Limit(parseLimit(c)).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list payments failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"payment_id": row.PaymentID,
			"user":       row.User,
			"plan_id":    row.PlanID,
			"invoice_id": row.InvoiceID,
			"token":      row.Token,
			"method":     row.Method,
			"amount":     row.Amount,
			"refund":     row.Refund,
			"expires_at": row.ExpiresAt,
			"metadata":   json.RawMessage(row.Metadata),
			"created_at": row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"payments": out})
}

// Transfers returns treasury journal entries, newest first, optionally
// filtered by payment id.
func (h *PaymentHandler) Transfers(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.Transfer{})
	if paymentID := strings.TrimSpace(c.Query("payment_id")); paymentID != "" {
		q = q.Where("payment_id = ?", paymentID)
	}

	var rows []models.Transfer
	if errFind := q.Order("created_at DESC, id DESC").Limit(parseLimit(c)).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list transfers failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"transfer_id": row.TransferID,
			"payment_id":  row.PaymentID,
			"from":        row.FromAddr,
			"to":          row.ToAddr,
			"token":       row.Token,
			"amount":      row.Amount,
			"kind":        row.Kind,
			"created_at":  row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"transfers": out})
}
