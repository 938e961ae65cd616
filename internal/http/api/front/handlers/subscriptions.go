package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/ledger"
	"github.com/gin-gonic/gin"
)

// SubscriptionFrontHandler serves per-user subscription state.
type SubscriptionFrontHandler struct {
	ledger *ledger.Ledger
}

// NewSubscriptionFrontHandler constructs a SubscriptionFrontHandler.
func NewSubscriptionFrontHandler(l *ledger.Ledger) *SubscriptionFrontHandler {
	return &SubscriptionFrontHandler{ledger: l}
}

// Get reports expiry and activity for a (user, plan) pair. Unknown pairs
// are reported as inactive rather than missing.
func (h *SubscriptionFrontHandler) Get(c *gin.Context) {
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

	expiry, errExpiry := h.ledger.ExpiresAt(c.Request.Context(), user, planID)
	if errExpiry != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	now := time.Now().UTC()
	out := gin.H{
		"user":    user,
		"plan_id": planID,
		"active":  expiry.After(now),
	}
	if !expiry.IsZero() {
		out["expires_at"] = expiry.UTC()
	}
	c.JSON(http.StatusOK, out)
}
