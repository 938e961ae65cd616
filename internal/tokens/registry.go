// Package tokens owns the accepted-currency registry. Each currency maps to
// an oracle price feed id and carries its own decimal precision. The native
// currency is registered under the models.NativeTokenAddress sentinel.
package tokens

import (
	"context"
	"errors"
	"strings"
	"time"

	dbutil "github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/db"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/owner"
	"gorm.io/gorm"
)

var (
	// ErrPriceFeedRequired indicates an attempt to accept a currency without
	// assigning a price feed.
	ErrPriceFeedRequired = errors.New("tokens: price feed required to accept currency")
	// ErrTokenNotAccepted indicates the currency is unknown or disabled.
	ErrTokenNotAccepted = errors.New("tokens: currency not accepted")
	// ErrInvalidAddress indicates an empty currency address.
	ErrInvalidAddress = errors.New("tokens: invalid address")
)

// NormalizeAddress canonicalizes a currency address for lookups.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Registry manages accepted payment currencies.
type Registry struct {
	db   *gorm.DB
	auth *owner.Authorizer
}

// NewRegistry constructs a Registry.
func NewRegistry(db *gorm.DB, auth *owner.Authorizer) *Registry {
	return &Registry{db: db, auth: auth}
}

// SetParams holds inputs for registering or toggling a currency.
type SetParams struct {
	Address string
	Symbol  string
	Accept  bool
	// PriceFeed is the oracle feed id. It may be left empty when disabling
	// a currency, in which case the stored feed is retained.
	PriceFeed string
	Decimals  uint8
}

// SetAccepted registers a currency or toggles its acceptance. Accepting a
// currency requires a price feed, either in the request or already stored.
// Disabling keeps the stored feed so the currency can be re-enabled later.
func (r *Registry) SetAccepted(ctx context.Context, actor string, p SetParams) (*models.AcceptedToken, error) {
	if errAuth := r.auth.Authorize(ctx, actor); errAuth != nil {
		return nil, errAuth
	}
	address := NormalizeAddress(p.Address)
	if address == "" {
		return nil, ErrInvalidAddress
	}
	feed := strings.TrimSpace(p.PriceFeed)

	var result *models.AcceptedToken
	errTx := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.AcceptedToken
		errFind := dbutil.WithUpdateLock(tx).
			First(&existing, "address = ?", address).Error
		if errFind != nil && !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return errFind
		}
		found := errFind == nil

		if feed == "" && found {
			feed = existing.PriceFeed
		}
		if p.Accept && feed == "" {
			return ErrPriceFeedRequired
		}

		now := time.Now().UTC()
		row := models.AcceptedToken{
			Address:   address,
			Symbol:    strings.TrimSpace(p.Symbol),
			Accepted:  p.Accept,
			PriceFeed: feed,
			Decimals:  p.Decimals,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if found {
			row.ID = existing.ID
			row.CreatedAt = existing.CreatedAt
			if row.Symbol == "" {
				row.Symbol = existing.Symbol
			}
			if p.Decimals == 0 {
				row.Decimals = existing.Decimals
			}
			if errSave := tx.Model(&models.AcceptedToken{}).
				Where("id = ?", existing.ID).
				Updates(map[string]any{
					"symbol":     row.Symbol,
					"accepted":   row.Accepted,
					"price_feed": row.PriceFeed,
					"decimals":   row.Decimals,
					"updated_at": row.UpdatedAt,
				}).Error; errSave != nil {
				return errSave
			}
		} else {
			if row.Decimals == 0 {
				row.Decimals = 18
			}
			if errCreate := tx.Create(&row).Error; errCreate != nil {
				return errCreate
			}
		}
		result = &row
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return result, nil
}

// Get returns the currency row for an address, or nil when unregistered.
func (r *Registry) Get(ctx context.Context, address string) (*models.AcceptedToken, error) {
	address = NormalizeAddress(address)
	if address == "" {
		return nil, ErrInvalidAddress
	}
	var row models.AcceptedToken
	if errFind := r.db.WithContext(ctx).First(&row, "address = ?", address).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errFind
	}
	return &row, nil
}

// RequireAccepted returns the currency row for an address, failing with
// ErrTokenNotAccepted when the currency is unknown or disabled.
func (r *Registry) RequireAccepted(ctx context.Context, address string) (*models.AcceptedToken, error) {
	row, err := r.Get(ctx, address)
	if err != nil {
		return nil, err
	}
	if row == nil || !row.Accepted {
		return nil, ErrTokenNotAccepted
	}
	return row, nil
}

// List returns all registered currencies.
func (r *Registry) List(ctx context.Context) ([]models.AcceptedToken, error) {
	var rows []models.AcceptedToken
	if errFind := r.db.WithContext(ctx).Order("address ASC").Find(&rows).Error; errFind != nil {
		return nil, errFind
	}
	return rows, nil
}
