package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/stats"
	"github.com/gin-gonic/gin"
)

// StatsHandler exposes payment revenue aggregates.
type StatsHandler struct {
	stats *stats.Service
}

// NewStatsHandler constructs a stats handler.
func NewStatsHandler(svc *stats.Service) *StatsHandler {
	return &StatsHandler{stats: svc}
}

// Summary returns payment totals per plan and currency. The window is set
// with either since=RFC3339 or days=N; omitting both covers all payments.
func (h *StatsHandler) Summary(c *gin.Context) {
	var since time.Time
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		parsed, errParse := time.Parse(time.RFC3339, raw)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since, want RFC3339"})
			return
		}
		since = parsed.UTC()
	} else if raw := strings.TrimSpace(c.Query("days")); raw != "" {
		days, errParse := strconv.Atoi(raw)
		if errParse != nil || days <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days"})
			return
		}
		since = time.Now().UTC().AddDate(0, 0, -days)
	}

	summary, errSummary := h.stats.Summary(c.Request.Context(), since)
	if errSummary != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "aggregate payments failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"since":    formatSince(summary.Since),
		"payments": summary.Payments,
		"tokens":   formatTokenRevenue(summary.Tokens),
		"plans":    formatPlanRevenue(summary.Plans),
	})
}

func formatSince(since time.Time) any {
	if since.IsZero() {
		return nil
	}
	return since
}

func formatTokenRevenue(entries []stats.TokenRevenue) []gin.H {
	out := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		out = append(out, gin.H{
			"token":    entry.Token,
			"payments": entry.Payments,
			"charged":  entry.Charged.String(),
			"refunded": entry.Refunded.String(),
		})
	}
	return out
}

func formatPlanRevenue(entries []stats.PlanRevenue) []gin.H {
	out := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		out = append(out, gin.H{
			"plan_id":  entry.PlanID,
			"payments": entry.Payments,
			"tokens":   formatTokenRevenue(entry.Tokens),
		})
	}
	return out
}
