package models

import "time"

// Invoice marks a payment intent as consumed. Uniqueness is scoped to the
// (user, plan, invoice) tuple; inserting a duplicate fails the payment.
type Invoice struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	User      string `gorm:"type:varchar(128);not null;uniqueIndex:idx_invoices_user_plan_invoice"` // Paying user identity.
	PlanID    uint64 `gorm:"not null;uniqueIndex:idx_invoices_user_plan_invoice"`                   // Related plan ID.
	InvoiceID string `gorm:"type:varchar(128);not null;uniqueIndex:idx_invoices_user_plan_invoice"` // Caller-supplied idempotency token.

	ConsumedAt time.Time `gorm:"not null"` // When the invoice was consumed.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
