package models

import "time"

// TransferKind classifies a treasury transfer.
type TransferKind string

// TransferKind constants define transfer directions.
const (
	// TransferKindCharge moves funds from the payer to the treasury.
	TransferKindCharge TransferKind = "charge"
	// TransferKindRefund returns native overpayment to the payer.
	TransferKindRefund TransferKind = "refund"
)

// Transfer is a journal row written by the ledger-transfer capability.
type Transfer struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TransferID string `gorm:"type:varchar(64);not null;uniqueIndex"` // External transfer identifier.
	PaymentID  string `gorm:"type:varchar(64);not null;index"`       // Related payment identifier.

	FromAddr string `gorm:"type:varchar(128);not null"` // Source identity.
	ToAddr   string `gorm:"type:varchar(128);not null"` // Destination identity.

	Token  string       `gorm:"type:varchar(128);not null"`  // Currency address.
	Amount string       `gorm:"type:numeric(78,0);not null"` // Amount in currency base units.
	Kind   TransferKind `gorm:"type:varchar(16);not null"`   // Transfer direction.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
