package models

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentMethod identifies how a payment was settled.
type PaymentMethod string

// PaymentMethod constants define settlement paths.
const (
	// PaymentMethodNative settles with the chain-native currency.
	PaymentMethodNative PaymentMethod = "native"
	// PaymentMethodToken settles with an accepted token via allowance.
	PaymentMethodToken PaymentMethod = "token"
)

// Payment records a settled subscription purchase.
type Payment struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	PaymentID string `gorm:"type:varchar(64);not null;uniqueIndex"` // External payment identifier.

	User      string `gorm:"type:varchar(128);not null;index"` // Paying user identity.
	PlanID    uint64 `gorm:"not null;index"`                   // Purchased plan ID.
	Plan      Plan   `gorm:"foreignKey:PlanID"`                // Purchased plan record.
	InvoiceID string `gorm:"type:varchar(128);not null"`       // Consumed invoice identifier.

	Token  string        `gorm:"type:varchar(128);not null"` // Settlement currency address.
	Method PaymentMethod `gorm:"type:varchar(16);not null"`  // Settlement path.

	Amount string `gorm:"type:numeric(78,0);not null"`           // Settled amount in currency base units.
	Refund string `gorm:"type:numeric(78,0);not null;default:0"` // Refunded native overpayment, if any.

	ExpiresAt time.Time `gorm:"not null"` // Subscription expiry after this payment.

	Metadata datatypes.JSON `gorm:"type:jsonb"` // Quote context (feed answer, decimals) captured at settlement.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
