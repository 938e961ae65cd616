package handlers

import (
	"net/http"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/tokens"
	"github.com/gin-gonic/gin"
)

// TokenFrontHandler serves accepted-currency front endpoints.
type TokenFrontHandler struct {
	registry *tokens.Registry
}

// NewTokenFrontHandler constructs a TokenFrontHandler.
func NewTokenFrontHandler(registry *tokens.Registry) *TokenFrontHandler {
	return &TokenFrontHandler{registry: registry}
}

// List returns currently accepted currencies.
func (h *TokenFrontHandler) List(c *gin.Context) {
	rows, errList := h.registry.List(c.Request.Context())
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list currencies failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		if !row.Accepted {
			continue
		}
		out = append(out, gin.H{
			"address":  row.Address,
			"symbol":   row.Symbol,
			"decimals": row.Decimals,
		})
	}
	c.JSON(http.StatusOK, gin.H{"tokens": out})
}

// Get reports acceptance and the bound price feed for one currency.
func (h *TokenFrontHandler) Get(c *gin.Context) {
	row, errGet := h.registry.Get(c.Request.Context(), c.Param("address"))
	if errGet != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
		return
	}
	if row == nil {
		c.JSON(http.StatusOK, gin.H{"accepted": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"address":    row.Address,
		"symbol":     row.Symbol,
		"accepted":   row.Accepted,
		"price_feed": row.PriceFeed,
		"decimals":   row.Decimals,
	})
}
