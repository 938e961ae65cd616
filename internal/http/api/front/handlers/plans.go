package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/plans"
	"github.com/gin-gonic/gin"
)

// PlanFrontHandler serves plan-related front endpoints.
type PlanFrontHandler struct {
	registry *plans.Registry
}

// NewPlanFrontHandler constructs a PlanFrontHandler.
func NewPlanFrontHandler(registry *plans.Registry) *PlanFrontHandler {
	return &PlanFrontHandler{registry: registry}
}

func formatFrontPlan(plan *models.Plan) gin.H {
	return gin.H{
		"id":          plan.ID,
		"name":        plan.Name,
		"description": plan.Description,
		"price_usd":   plan.PriceUsd,
		"duration":    plan.Duration,
		"features":    json.RawMessage(plan.Features),
		"free":        plan.Free,
	}
}

// List returns purchasable plans.
func (h *PlanFrontHandler) List(c *gin.Context) {
	rows, errList := h.registry.List(c.Request.Context(), true)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list plans failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatFrontPlan(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"plans": out})
}

// Get returns a single plan, including inactive ones so existing
// subscribers can still read their plan terms.
func (h *PlanFrontHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	plan, errGet := h.registry.Get(c.Request.Context(), id)
	if errGet != nil {
		if errors.Is(errGet, plans.ErrPlanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	out := formatFrontPlan(plan)
	out["active"] = plan.Active
	c.JSON(http.StatusOK, out)
}

// Active reports whether a plan exists and is payable. Unknown plans are
// reported inactive rather than missing.
func (h *PlanFrontHandler) Active(c *gin.Context) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	active, errActive := h.registry.IsActive(c.Request.Context(), id)
	if errActive != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "active": active})
}
