package models

import (
	"time"

	"gorm.io/datatypes"
)

// Plan represents a subscription plan priced in USD.
type Plan struct {
	ID uint64 `gorm:"primaryKey;autoIncrement:false"` // Caller-assigned plan identifier; 0 is a valid id.

	Name        string `gorm:"type:varchar(255);not null"` // Plan name.
	Description string `gorm:"type:text"`                  // Plan description.

	PriceUsd uint64 `gorm:"type:numeric(20,0);not null;default:0"` // Price scaled by the configured USD decimals.
	Duration uint64 `gorm:"not null"`                              // Validity duration in seconds.

	Features datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"` // Feature description list.

	Active bool `gorm:"not null;default:true"`  // Whether the plan is payable.
	Free   bool `gorm:"not null;default:false"` // Explicit free-tier flag; required when price_usd is 0.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
