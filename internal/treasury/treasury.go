// Package treasury moves funds between accounts. The default implementation
// journals transfers as database rows inside the payment transaction; a
// custodial or chain-backed implementation can replace it behind the
// Transferer interface.
package treasury

import (
	"context"
	"errors"
	"math/big"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrInvalidAmount indicates a nil or negative transfer amount.
var ErrInvalidAmount = errors.New("treasury: invalid transfer amount")

// Transfer describes a single movement of funds.
type Transfer struct {
	PaymentID string
	From      string
	To        string
	Token     string
	Amount    *big.Int
	Kind      models.TransferKind
}

// Transferer executes a transfer within the enclosing transaction. A
// returned error aborts the whole payment.
type Transferer interface {
	Transfer(ctx context.Context, tx *gorm.DB, t Transfer) error
}

// Journal records transfers as rows. Zero-amount transfers are dropped
// silently so free plans produce no journal entries.
type Journal struct{}

// NewJournal constructs a Journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Transfer implements Transferer.
func (j *Journal) Transfer(ctx context.Context, tx *gorm.DB, t Transfer) error {
	if t.Amount == nil || t.Amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if t.Amount.Sign() == 0 {
		return nil
	}
	row := models.Transfer{
		TransferID: uuid.NewString(),
		PaymentID:  t.PaymentID,
		FromAddr:   t.From,
		ToAddr:     t.To,
		Token:      t.Token,
		Amount:     t.Amount.String(),
		Kind:       t.Kind,
	}
	return tx.WithContext(ctx).Create(&row).Error
}
