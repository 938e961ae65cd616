package handlers

import (
	"errors"
	"net/http"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/owner"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/tokens"
	"github.com/gin-gonic/gin"
)

// TokenHandler manages the accepted-currency registry.
type TokenHandler struct {
	registry *tokens.Registry
}

// NewTokenHandler constructs a token handler.
func NewTokenHandler(registry *tokens.Registry) *TokenHandler {
	return &TokenHandler{registry: registry}
}

// setTokenRequest captures the payload for registering or toggling a currency.
type setTokenRequest struct {
	Address   string `json:"address"`    // Currency address, or "native".
	Symbol    string `json:"symbol"`     // Display symbol.
	Accept    bool   `json:"accept"`     // Acceptance flag.
	PriceFeed string `json:"price_feed"` // Oracle feed id; optional when disabling.
	Decimals  uint8  `json:"decimals"`   // Currency decimal precision.
}

// formatToken shapes a currency row for API responses.
func formatToken(row *models.AcceptedToken) gin.H {
	return gin.H{
		"address":    row.Address,
		"symbol":     row.Symbol,
		"accepted":   row.Accepted,
		"price_feed": row.PriceFeed,
		"decimals":   row.Decimals,
		"updated_at": row.UpdatedAt,
	}
}

// Set registers a currency or toggles its acceptance.
func (h *TokenHandler) Set(c *gin.Context) {
	var body setTokenRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	row, errSet := h.registry.SetAccepted(c.Request.Context(), actorFrom(c), tokens.SetParams{
		Address:   body.Address,
		Symbol:    body.Symbol,
		Accept:    body.Accept,
		PriceFeed: body.PriceFeed,
		Decimals:  body.Decimals,
	})
	if errSet != nil {
		switch {
		case errors.Is(errSet, owner.ErrUnauthorized):
			c.JSON(http.StatusForbidden, gin.H{"error": "not an owner account"})
		case errors.Is(errSet, tokens.ErrPriceFeedRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": "price feed is required to accept a currency"})
		case errors.Is(errSet, tokens.ErrInvalidAddress):
			c.JSON(http.StatusBadRequest, gin.H{"error": "address is required"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "set currency failed"})
		}
		return
	}
	c.JSON(http.StatusOK, formatToken(row))
}

// List returns all registered currencies including disabled ones.
func (h *TokenHandler) List(c *gin.Context) {
	rows, errList := h.registry.List(c.Request.Context())
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list currencies failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatToken(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"tokens": out})
}
