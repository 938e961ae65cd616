package models

import "time"

// NativeTokenAddress is the sentinel address for the chain-native currency.
const NativeTokenAddress = "native"

// AcceptedToken represents a currency whitelisted for settlement.
type AcceptedToken struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Address string `gorm:"type:varchar(128);not null;uniqueIndex"` // Currency identifier; NativeTokenAddress for the native currency.
	Symbol  string `gorm:"type:varchar(32)"`                       // Display symbol.

	Accepted  bool   `gorm:"not null;default:false"` // Whether the currency is eligible for payment.
	PriceFeed string `gorm:"type:varchar(128)"`      // Bound oracle feed identifier; empty means unset.
	Decimals  uint8  `gorm:"not null;default:18"`    // Currency decimal precision.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
