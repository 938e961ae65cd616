// Package ledger tracks per-user, per-plan subscription expiries. Renewals
// are additive: paying before expiry extends from the current expiry, paying
// after expiry extends from the payment time.
package ledger

import (
	"context"
	"errors"
	"time"

	dbutil "github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/db"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger reads and extends subscription expiries.
type Ledger struct {
	db *gorm.DB
}

// NewLedger constructs a Ledger.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// ExpiresAt returns the expiry for a subscription, or the zero time when the
// user never subscribed to the plan.
func (l *Ledger) ExpiresAt(ctx context.Context, user string, planID uint64) (time.Time, error) {
	var sub models.Subscription
	errFind := l.db.WithContext(ctx).
		First(&sub, "\"user\" = ? AND plan_id = ?", user, planID).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return time.Time{}, nil
		}
		return time.Time{}, errFind
	}
	return sub.ExpiresAt, nil
}

// IsActive reports whether the subscription expiry is strictly after now.
func (l *Ledger) IsActive(ctx context.Context, user string, planID uint64, now time.Time) (bool, error) {
	expiry, err := l.ExpiresAt(ctx, user, planID)
	if err != nil {
		return false, err
	}
	return expiry.After(now), nil
}

// Extend adds duration seconds to the subscription, anchored at the later of
// now and the current expiry, and returns the new expiry. It must run inside
// the payment transaction; the subscription row is locked for the duration.
//
// A row lock cannot serialize two first payments, since FOR UPDATE locks
// nothing when no row exists yet. Extend therefore seeds a zero-expiry row
// with ON CONFLICT DO NOTHING before taking the lock: the insert loser no-ops
// without aborting the transaction, and both payments queue on the same row.
func Extend(ctx context.Context, tx *gorm.DB, user string, planID uint64, durationSeconds uint64, now time.Time) (time.Time, error) {
	now = now.UTC()
	duration := time.Duration(durationSeconds) * time.Second

	seed := models.Subscription{User: user, PlanID: planID, CreatedAt: now, UpdatedAt: now}
	if errSeed := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user"}, {Name: "plan_id"}},
			DoNothing: true,
		}).
		Create(&seed).Error; errSeed != nil {
		return time.Time{}, errSeed
	}

	var sub models.Subscription
	if errFind := dbutil.WithUpdateLock(tx.WithContext(ctx)).
		First(&sub, "\"user\" = ? AND plan_id = ?", user, planID).Error; errFind != nil {
		return time.Time{}, errFind
	}

	base := now
	if sub.ExpiresAt.After(base) {
		base = sub.ExpiresAt
	}
	newExpiry := base.Add(duration)
	if errSave := tx.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", sub.ID).
		Updates(map[string]any{"expires_at": newExpiry, "updated_at": now}).Error; errSave != nil {
		return time.Time{}, errSave
	}
	return newExpiry, nil
}
