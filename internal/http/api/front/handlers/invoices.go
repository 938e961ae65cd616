package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/invoices"
	"github.com/gin-gonic/gin"
)

// InvoiceFrontHandler serves invoice consumption lookups.
type InvoiceFrontHandler struct {
	tracker *invoices.Tracker
}

// NewInvoiceFrontHandler constructs an InvoiceFrontHandler.
func NewInvoiceFrontHandler(tracker *invoices.Tracker) *InvoiceFrontHandler {
	return &InvoiceFrontHandler{tracker: tracker}
}

// Status reports whether an invoice id has already been consumed for a
// (user, plan) pair, so payers can check before submitting a payment.
func (h *InvoiceFrontHandler) Status(c *gin.Context) {
	user := strings.TrimSpace(c.Param("user"))
	if user == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user"})
		return
	}
	planID, errParse := strconv.ParseUint(c.Param("plan_id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan_id"})
		return
	}
	invoiceID := strings.TrimSpace(c.Param("invoice_id"))
	if invoiceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice_id"})
		return
	}

	consumed, errLookup := h.tracker.Consumed(c.Request.Context(), user, planID, invoiceID)
	if errLookup != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":       user,
		"plan_id":    planID,
		"invoice_id": invoiceID,
		"consumed":   consumed,
	})
}
