// Package plans owns the subscription plan catalog. Plans are created and
// updated only by the owner and are never deleted, only deactivated.
package plans

import (
	"context"
	"errors"
	"strings"
	"time"

	dbutil "github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/db"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/owner"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	// ErrPlanNotFound indicates the plan id is not registered.
	ErrPlanNotFound = errors.New("plans: plan not found")
	// ErrPlanAlreadyExists indicates the plan id is already registered.
	ErrPlanAlreadyExists = errors.New("plans: plan already exists")
	// ErrInvalidDuration indicates a zero duration.
	ErrInvalidDuration = errors.New("plans: invalid duration")
	// ErrZeroPriceNotFree indicates a zero USD price without the explicit
	// free-tier flag.
	ErrZeroPriceNotFree = errors.New("plans: zero price requires explicit free flag")
	// ErrInvalidName indicates an empty plan name.
	ErrInvalidName = errors.New("plans: invalid name")
)

// Registry manages the plan catalog.
type Registry struct {
	db   *gorm.DB
	auth *owner.Authorizer
}

// NewRegistry constructs a Registry.
func NewRegistry(db *gorm.DB, auth *owner.Authorizer) *Registry {
	return &Registry{db: db, auth: auth}
}

// CreateParams holds inputs for plan creation.
type CreateParams struct {
	ID          uint64
	Name        string
	Description string
	PriceUsd    uint64
	Duration    uint64
	Features    datatypes.JSON
	Free        bool
}

// Create registers a new plan. The actor must be an owner account.
func (r *Registry) Create(ctx context.Context, actor string, p CreateParams) (*models.Plan, error) {
	if errAuth := r.auth.Authorize(ctx, actor); errAuth != nil {
		return nil, errAuth
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if p.Duration == 0 {
		return nil, ErrInvalidDuration
	}
	if p.PriceUsd == 0 && !p.Free {
		return nil, ErrZeroPriceNotFree
	}

	features := p.Features
	if len(features) == 0 {
		features = datatypes.JSON([]byte("[]"))
	}

	now := time.Now().UTC()
	plan := models.Plan{
		ID:          p.ID,
		Name:        name,
		Description: strings.TrimSpace(p.Description),
		PriceUsd:    p.PriceUsd,
		Duration:    p.Duration,
		Features:    features,
		Active:      true,
		Free:        p.Free,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if errCreate := r.db.WithContext(ctx).Create(&plan).Error; errCreate != nil {
		if dbutil.IsUniqueViolation(errCreate) {
			return nil, ErrPlanAlreadyExists
		}
		return nil, errCreate
	}
	return &plan, nil
}

// UpdateParams holds the full mutable field set for a plan update.
type UpdateParams struct {
	Name        string
	Description string
	PriceUsd    uint64
	Duration    uint64
	Features    datatypes.JSON
	Active      bool
	Free        bool
}

// Update replaces all mutable fields of an existing plan atomically.
func (r *Registry) Update(ctx context.Context, actor string, id uint64, p UpdateParams) (*models.Plan, error) {
	if errAuth := r.auth.Authorize(ctx, actor); errAuth != nil {
		return nil, errAuth
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if p.Duration == 0 {
		return nil, ErrInvalidDuration
	}
	if p.PriceUsd == 0 && !p.Free {
		return nil, ErrZeroPriceNotFree
	}

	features := p.Features
	if len(features) == 0 {
		features = datatypes.JSON([]byte("[]"))
	}

	res := r.db.WithContext(ctx).
		Model(&models.Plan{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"name":        name,
			"description": strings.TrimSpace(p.Description),
			"price_usd":   p.PriceUsd,
			"duration":    p.Duration,
			"features":    features,
			"active":      p.Active,
			"free":        p.Free,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrPlanNotFound
	}
	return r.Get(ctx, id)
}

// Get returns a plan by id.
func (r *Registry) Get(ctx context.Context, id uint64) (*models.Plan, error) {
	var plan models.Plan
	if errFind := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, errFind
	}
	return &plan, nil
}

// IsActive reports whether the plan exists and is marked active.
func (r *Registry) IsActive(ctx context.Context, id uint64) (bool, error) {
	plan, err := r.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			return false, nil
		}
		return false, err
	}
	return plan.Active, nil
}

// List returns plans, optionally restricted to active ones.
func (r *Registry) List(ctx context.Context, onlyActive bool) ([]models.Plan, error) {
	q := r.db.WithContext(ctx).Model(&models.Plan{})
	if onlyActive {
		q = q.Where("active = ?", true)
	}
	var rows []models.Plan
	if errFind := q.Order("id ASC").Find(&rows).Error; errFind != nil {
		return nil, errFind
	}
	return rows, nil
}
