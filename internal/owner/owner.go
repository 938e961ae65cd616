// Package owner checks the privileged identity allowed to mutate plan and
// currency state. The caller identity is passed explicitly into every
// administrative operation rather than held as ambient state.
package owner

import (
	"context"
	"errors"
	"strings"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"gorm.io/gorm"
)

// ErrUnauthorized indicates the actor is not an active owner account.
var ErrUnauthorized = errors.New("owner: unauthorized")

// Authorizer resolves actor identities against owner accounts.
type Authorizer struct {
	db *gorm.DB
}

// NewAuthorizer constructs an Authorizer.
func NewAuthorizer(db *gorm.DB) *Authorizer {
	return &Authorizer{db: db}
}

// Authorize returns nil when the actor names an active owner account.
func (a *Authorizer) Authorize(ctx context.Context, actor string) error {
	if a == nil || a.db == nil {
		return ErrUnauthorized
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrUnauthorized
	}
	var count int64
	if errCount := a.db.WithContext(ctx).
		Model(&models.Admin{}).
		Where("username = ? AND active = ?", actor, true).
		Count(&count).Error; errCount != nil {
		return errCount
	}
	if count == 0 {
		return ErrUnauthorized
	}
	return nil
}
