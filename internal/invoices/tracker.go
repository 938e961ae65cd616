// Package invoices enforces payment idempotency. An invoice id is consumed
// exactly once per (user, plan) pair; a replay fails before any money moves.
package invoices

import (
	"context"
	"errors"
	"time"

	dbutil "github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/db"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"gorm.io/gorm"
)

// ErrInvoiceAlreadyUsed indicates a replayed invoice id.
var ErrInvoiceAlreadyUsed = errors.New("invoices: invoice already used")

// Tracker records consumed invoices.
type Tracker struct {
	db *gorm.DB
}

// NewTracker constructs a Tracker.
func NewTracker(db *gorm.DB) *Tracker {
	return &Tracker{db: db}
}

// Consume marks the invoice as used inside the payment transaction. The
// unique index on (user, plan_id, invoice_id) is the arbiter: of two
// concurrent payments with the same tuple exactly one insert succeeds.
func Consume(ctx context.Context, tx *gorm.DB, user string, planID uint64, invoiceID string, now time.Time) error {
	row := models.Invoice{
		User:       user,
		PlanID:     planID,
		InvoiceID:  invoiceID,
		ConsumedAt: now.UTC(),
	}
	if errCreate := tx.WithContext(ctx).Create(&row).Error; errCreate != nil {
		if dbutil.IsUniqueViolation(errCreate) {
			return ErrInvoiceAlreadyUsed
		}
		return errCreate
	}
	return nil
}

// Consumed reports whether the invoice id has been used for the pair.
func (t *Tracker) Consumed(ctx context.Context, user string, planID uint64, invoiceID string) (bool, error) {
	var count int64
	errCount := t.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("\"user\" = ? AND plan_id = ? AND invoice_id = ?", user, planID, invoiceID).
		Count(&count).Error
	if errCount != nil {
		return false, errCount
	}
	return count > 0, nil
}
