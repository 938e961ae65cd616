package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/owner"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/plans"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

// PlanHandler manages admin CRUD endpoints for plans.
type PlanHandler struct {
	registry *plans.Registry
}

// NewPlanHandler constructs a plan handler.
func NewPlanHandler(registry *plans.Registry) *PlanHandler {
	return &PlanHandler{registry: registry}
}

// actorFrom extracts the authenticated admin username for authorization.
func actorFrom(c *gin.Context) string {
	if v, ok := c.Get("adminUsername"); ok {
		if username, okStr := v.(string); okStr {
			return username
		}
	}
	return ""
}

// normalizePlanFeatures validates the features JSON payload.
func normalizePlanFeatures(raw json.RawMessage) (datatypes.JSON, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return datatypes.JSON([]byte("[]")), nil
	}
	var features []string
	if errUnmarshal := json.Unmarshal(raw, &features); errUnmarshal != nil {
		return nil, errors.New("invalid features")
	}
	cleaned := make([]string, 0, len(features))
	for _, feature := range features {
		if f := strings.TrimSpace(feature); f != "" {
			cleaned = append(cleaned, f)
		}
	}
	rawFeatures, errMarshal := json.Marshal(cleaned)
	if errMarshal != nil {
		return nil, errMarshal
	}
	return datatypes.JSON(rawFeatures), nil
}

// createPlanRequest captures the payload for creating a plan.
type createPlanRequest struct {
	ID          *uint64         `json:"id"`          // Caller-assigned plan id; 0 is valid, absence is not.
	Name        string          `json:"name"`        // Plan name.
	Description string          `json:"description"` // Plan description.
	PriceUsd    uint64          `json:"price_usd"`   // USD price in fixed-point units.
	Duration    uint64          `json:"duration"`    // Access duration in seconds.
	Features    json.RawMessage `json:"features"`    // Feature list payload.
	Free        bool            `json:"free"`        // Explicit free-tier flag.
}

// writePlanError maps registry errors to HTTP responses.
func writePlanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, owner.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "not an owner account"})
	case errors.Is(err, plans.ErrPlanAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "plan already exists"})
	case errors.Is(err, plans.ErrPlanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
	case errors.Is(err, plans.ErrInvalidDuration):
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration must be positive"})
	case errors.Is(err, plans.ErrZeroPriceNotFree):
		c.JSON(http.StatusBadRequest, gin.H{"error": "zero price requires the free flag"})
	case errors.Is(err, plans.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "plan operation failed"})
	}
}

// formatPlan shapes a plan for API responses.
func formatPlan(plan *models.Plan) gin.H {
	return gin.H{
		"id":          plan.ID,
		"name":        plan.Name,
		"description": plan.Description,
		"price_usd":   plan.PriceUsd,
		"duration":    plan.Duration,
		"features":    json.RawMessage(plan.Features),
		"active":      plan.Active,
		"free":        plan.Free,
		"created_at":  plan.CreatedAt,
		"updated_at":  plan.UpdatedAt,
	}
}

// Create validates input and registers a new plan.
func (h *PlanHandler) Create(c *gin.Context) {
	var body createPlanRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.ID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}
	features, errFeatures := normalizePlanFeatures(body.Features)
	if errFeatures != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid features"})
		return
	}

	plan, errCreate := h.registry.Create(c.Request.Context(), actorFrom(c), plans.CreateParams{
		ID:          *body.ID,
		Name:        body.Name,
		Description: body.Description,
		PriceUsd:    body.PriceUsd,
		Duration:    body.Duration,
		Features:    features,
		Free:        body.Free,
	})
	if errCreate != nil {
		writePlanError(c, errCreate)
		return
	}
	c.JSON(http.StatusCreated, formatPlan(plan))
}

// updatePlanRequest captures the full mutable field set for a plan update.
type updatePlanRequest struct {
	Name        string          `json:"name"`        // Plan name.
	Description string          `json:"description"` // Plan description.
	PriceUsd    uint64          `json:"price_usd"`   // USD price in fixed-point units.
	Duration    uint64          `json:"duration"`    // Access duration in seconds.
	Features    json.RawMessage `json:"features"`    // Feature list payload.
	Active      bool            `json:"active"`      // Purchasable flag.
	Free        bool            `json:"free"`        // Explicit free-tier flag.
}

// Update replaces all mutable fields of a plan.
func (h *PlanHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updatePlanRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	features, errFeatures := normalizePlanFeatures(body.Features)
	if errFeatures != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid features"})
		return
	}

	plan, errUpdate := h.registry.Update(c.Request.Context(), actorFrom(c), id, plans.UpdateParams{
		Name:        body.Name,
		Description: body.Description,
		PriceUsd:    body.PriceUsd,
		Duration:    body.Duration,
		Features:    features,
		Active:      body.Active,
		Free:        body.Free,
	})
	if errUpdate != nil {
		writePlanError(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, formatPlan(plan))
}

// setActive flips only the active flag, keeping other fields intact.
func (h *PlanHandler) setActive(c *gin.Context, active bool) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	plan, errGet := h.registry.Get(c.Request.Context(), id)
	if errGet != nil {
		writePlanError(c, errGet)
		return
	}
	updated, errUpdate := h.registry.Update(c.Request.Context(), actorFrom(c), id, plans.UpdateParams{
		Name:        plan.Name,
		Description: plan.Description,
		PriceUsd:    plan.PriceUsd,
		Duration:    plan.Duration,
		Features:    plan.Features,
		Active:      active,
		Free:        plan.Free,
	})
	if errUpdate != nil {
		writePlanError(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, formatPlan(updated))
}

// Enable marks a plan purchasable.
func (h *PlanHandler) Enable(c *gin.Context) { h.setActive(c, true) }

// Disable stops new purchases of a plan. Existing subscriptions keep their
// remaining time.
func (h *PlanHandler) Disable(c *gin.Context) { h.setActive(c, false) }

// Get returns a plan by id.
func (h *PlanHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	plan, errGet := h.registry.Get(c.Request.Context(), id)
	if errGet != nil {
		writePlanError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, formatPlan(plan))
}

// List returns all plans, including inactive ones.
func (h *PlanHandler) List(c *gin.Context) {
	rows, errList := h.registry.List(c.Request.Context(), false)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list plans failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatPlan(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"plans": out})
}
