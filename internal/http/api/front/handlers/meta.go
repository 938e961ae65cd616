package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/ledger"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/plans"
	internalsettings "github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/settings"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/settle"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/tokens"
	"github.com/gin-gonic/gin"
)

// MetaFrontHandler serves service metadata and account inspection.
type MetaFrontHandler struct {
	plans  *plans.Registry
	tokens *tokens.Registry
	ledger *ledger.Ledger
	engine *settle.Engine
}

// NewMetaFrontHandler constructs a MetaFrontHandler.
func NewMetaFrontHandler(p *plans.Registry, t *tokens.Registry, l *ledger.Ledger, e *settle.Engine) *MetaFrontHandler {
	return &MetaFrontHandler{plans: p, tokens: t, ledger: l, engine: e}
}

// Meta reports the service name, settlement parameters, and accepted
// currency count.
func (h *MetaFrontHandler) Meta(c *gin.Context) {
	siteName := internalsettings.DefaultSiteName
	if raw, ok := internalsettings.DBConfigValue(internalsettings.SiteNameKey); ok {
		var name string
		if errUnmarshal := json.Unmarshal(raw, &name); errUnmarshal == nil && strings.TrimSpace(name) != "" {
			siteName = strings.TrimSpace(name)
		}
	}

	rows, errList := h.tokens.List(c.Request.Context())
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	accepted := 0
	for _, row := range rows {
		if row.Accepted {
			accepted++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"name":            siteName,
		"treasury":        h.engine.Treasury(),
		"usd_decimals":    h.engine.UsdDecimals(),
		"accepted_tokens": accepted,
	})
}

// Inspect returns the subscription state of one user across every active
// plan in a single call.
func (h *MetaFrontHandler) Inspect(c *gin.Context) {
	user := strings.TrimSpace(c.Query("user"))
	if user == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user is required"})
		return
	}
	var planFilter *uint64
	if raw := strings.TrimSpace(c.Query("plan_id")); raw != "" {
		parsed, errParse := strconv.ParseUint(raw, 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan_id"})
			return
		}
		planFilter = &parsed
	}

	rows, errList := h.plans.List(c.Request.Context(), true)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	now := time.Now().UTC()
	out := make([]gin.H, 0, len(rows))
	for _, plan := range rows {
		if planFilter != nil && plan.ID != *planFilter {
			continue
		}
		expiry, errExpiry := h.ledger.ExpiresAt(c.Request.Context(), user, plan.ID)
		if errExpiry != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		entry := gin.H{
			"plan_id":   plan.ID,
			"plan_name": plan.Name,
			"active":    expiry.After(now),
		}
		if !expiry.IsZero() {
			entry["expires_at"] = expiry.UTC()
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "subscriptions": out})
}
