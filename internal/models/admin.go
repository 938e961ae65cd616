package models

import "time"

// Admin represents an owner account authorized to mutate plans and tokens.
type Admin struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	Password string `gorm:"type:text;not null"`             // Hashed password.

	TOTPSecret string `gorm:"type:text"` // TOTP secret for MFA; empty disables the second factor.

	Active bool `gorm:"not null;default:true"` // Whether the account can sign in.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
