package models

import "time"

// Subscription records the expiry of a user's access to a plan.
// Rows are created on first successful payment and never deleted;
// an expired subscription is simply inactive.
type Subscription struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	User   string `gorm:"type:varchar(128);not null;uniqueIndex:idx_subscriptions_user_plan"` // Subscriber identity.
	PlanID uint64 `gorm:"not null;uniqueIndex:idx_subscriptions_user_plan"`                   // Related plan ID.

	ExpiresAt time.Time `gorm:"not null"` // Access expiry timestamp.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
