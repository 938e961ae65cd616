// Package settle is the settlement engine. It prices plans in payment
// currencies via the oracle adapter and executes idempotent, transactional
// payments that extend subscription expiries.
package settle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/decimals"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/events"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/invoices"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/ledger"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/oracle"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/plans"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/tokens"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/treasury"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Config holds the engine's settlement parameters.
type Config struct {
	// Treasury is the account credited by charges.
	Treasury string
	// UsdDecimals is the decimal precision of plan USD prices.
	UsdDecimals int
}

// Engine prices and settles subscription payments.
type Engine struct {
	db       *gorm.DB
	cfg      Config
	plans    *plans.Registry
	tokens   *tokens.Registry
	oracle   *oracle.Adapter
	transfer treasury.Transferer
	events   *events.Dispatcher
	nowFn    func() time.Time
}

// NewEngine constructs an Engine.
func NewEngine(db *gorm.DB, cfg Config, planReg *plans.Registry, tokenReg *tokens.Registry, adapter *oracle.Adapter, transferer treasury.Transferer, dispatcher *events.Dispatcher) *Engine {
	return &Engine{
		db:       db,
		cfg:      cfg,
		plans:    planReg,
		tokens:   tokenReg,
		oracle:   adapter,
		transfer: transferer,
		events:   dispatcher,
		nowFn:    time.Now,
	}
}

// WithClock overrides the engine clock for deterministic tests.
func (e *Engine) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		e.nowFn = nowFn
	}
}

// Treasury returns the account credited by charges.
func (e *Engine) Treasury() string {
	return e.cfg.Treasury
}

// UsdDecimals returns the decimal precision of plan USD prices.
func (e *Engine) UsdDecimals() int {
	return e.cfg.UsdDecimals
}

// Quote holds a priced plan together with the oracle context it was priced
// under, so callers can audit the conversion.
type Quote struct {
	PlanID        uint64
	Token         string
	Amount        *big.Int
	PriceUsd      uint64
	UsdDecimals   int
	FeedID        string
	Answer        *big.Int
	FeedDecimals  uint8
	TokenDecimals uint8
	Free          bool
}

// QuotePlan prices the plan in the given currency at the current oracle
// rate. The oracle read happens here, outside any database transaction.
func (e *Engine) QuotePlan(ctx context.Context, planID uint64, token string) (*Quote, error) {
	plan, err := e.plans.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	currency, err := e.tokens.RequireAccepted(ctx, token)
	if err != nil {
		return nil, err
	}

	q := &Quote{
		PlanID:        planID,
		Token:         currency.Address,
		PriceUsd:      plan.PriceUsd,
		UsdDecimals:   e.cfg.UsdDecimals,
		FeedID:        currency.PriceFeed,
		TokenDecimals: currency.Decimals,
		Free:          plan.Free,
	}
	if plan.PriceUsd == 0 {
		q.Amount = new(big.Int)
		return q, nil
	}

	sample, err := e.oracle.Quote(ctx, currency.PriceFeed)
	if err != nil {
		return nil, err
	}
	amount, err := decimals.TokenAmount(
		new(big.Int).SetUint64(plan.PriceUsd), e.cfg.UsdDecimals,
		sample.Answer, int(sample.Decimals), int(currency.Decimals),
	)
	if err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return nil, ErrQuoteUnderflow
	}
	q.Amount = amount
	q.Answer = sample.Answer
	q.FeedDecimals = sample.Decimals
	return q, nil
}

// Receipt summarizes a settled payment.
type Receipt struct {
	PaymentID string
	User      string
	PlanID    uint64
	InvoiceID string
	Token     string
	Method    models.PaymentMethod
	Amount    *big.Int
	Refund    *big.Int
	ExpiresAt time.Time
}

// NativePayment is a payment funded with the chain-native currency. Value is
// the amount attached to the call; any excess over the quote is refunded.
type NativePayment struct {
	User      string
	PlanID    uint64
	InvoiceID string
	Value     *big.Int
}

// PayWithNative settles a native-currency payment.
func (e *Engine) PayWithNative(ctx context.Context, p NativePayment) (*Receipt, error) {
	if p.Value == nil || p.Value.Sign() < 0 {
		return nil, fmt.Errorf("%w: missing payment value", ErrInvalidArgument)
	}
	return e.pay(ctx, p.User, p.PlanID, p.InvoiceID, models.NativeTokenAddress, models.PaymentMethodNative,
		func(quoted *big.Int) (*big.Int, error) {
			if p.Value.Cmp(quoted) < 0 {
				return nil, ErrInsufficientPayment
			}
			return new(big.Int).Sub(p.Value, quoted), nil
		})
}

// TokenPayment is a payment funded with an accepted token. MaxAmount bounds
// the charge against price movement between quoting and paying; zero or nil
// disables the bound.
type TokenPayment struct {
	User      string
	PlanID    uint64
	InvoiceID string
	Token     string
	MaxAmount *big.Int
}

// PayWithToken settles a token payment for exactly the quoted amount.
func (e *Engine) PayWithToken(ctx context.Context, p TokenPayment) (*Receipt, error) {
	if tokens.NormalizeAddress(p.Token) == models.NativeTokenAddress {
		return nil, fmt.Errorf("%w: token payment with native currency", ErrInvalidArgument)
	}
	return e.pay(ctx, p.User, p.PlanID, p.InvoiceID, p.Token, models.PaymentMethodToken,
		func(quoted *big.Int) (*big.Int, error) {
			if p.MaxAmount != nil && p.MaxAmount.Sign() > 0 && quoted.Cmp(p.MaxAmount) > 0 {
				return nil, ErrSlippageExceeded
			}
			return new(big.Int), nil
		})
}

// pay runs the shared settlement path. bound validates the quoted amount
// against the caller's funds and returns the refund due, if any.
func (e *Engine) pay(ctx context.Context, user string, planID uint64, invoiceID, token string, method models.PaymentMethod, bound func(quoted *big.Int) (*big.Int, error)) (*Receipt, error) {
	user = strings.TrimSpace(user)
	invoiceID = strings.TrimSpace(invoiceID)
	if user == "" {
		return nil, fmt.Errorf("%w: missing user", ErrInvalidArgument)
	}
	if invoiceID == "" {
		return nil, fmt.Errorf("%w: missing invoice id", ErrInvalidArgument)
	}

	plan, err := e.plans.Get(ctx, planID)
	if err != nil {
		if errors.Is(err, plans.ErrPlanNotFound) {
			return nil, ErrPlanInactive
		}
		return nil, err
	}
	if !plan.Active {
		return nil, ErrPlanInactive
	}

	quote, err := e.QuotePlan(ctx, planID, token)
	if err != nil {
		return nil, err
	}
	refund, err := bound(quote.Amount)
	if err != nil {
		return nil, err
	}

	now := e.nowFn().UTC()
	receipt := &Receipt{
		PaymentID: uuid.NewString(),
		User:      user,
		PlanID:    planID,
		InvoiceID: invoiceID,
		Token:     quote.Token,
		Method:    method,
		Amount:    quote.Amount,
		Refund:    refund,
	}

	errTx := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errConsume := invoices.Consume(ctx, tx, user, planID, invoiceID, now); errConsume != nil {
			return errConsume
		}

		expiry, errExtend := ledger.Extend(ctx, tx, user, planID, plan.Duration, now)
		if errExtend != nil {
			return errExtend
		}
		receipt.ExpiresAt = expiry

		if errCharge := e.transfer.Transfer(ctx, tx, treasury.Transfer{
			PaymentID: receipt.PaymentID,
			From:      user,
			To:        e.cfg.Treasury,
			Token:     quote.Token,
			Amount:    quote.Amount,
			Kind:      models.TransferKindCharge,
		}); errCharge != nil {
			return fmt.Errorf("%w: %v", ErrTransferFailed, errCharge)
		}
		if refund.Sign() > 0 {
			if errRefund := e.transfer.Transfer(ctx, tx, treasury.Transfer{
				PaymentID: receipt.PaymentID,
				From:      e.cfg.Treasury,
				To:        user,
				Token:     quote.Token,
				Amount:    refund,
				Kind:      models.TransferKindRefund,
			}); errRefund != nil {
				return fmt.Errorf("%w: %v", ErrTransferFailed, errRefund)
			}
		}

		metadata, errMeta := quoteMetadata(quote)
		if errMeta != nil {
			return errMeta
		}
		payment := models.Payment{
			PaymentID: receipt.PaymentID,
			User:      user,
			PlanID:    planID,
			InvoiceID: invoiceID,
			Token:     quote.Token,
			Method:    method,
			Amount:    quote.Amount.String(),
			Refund:    refund.String(),
			ExpiresAt: expiry,
			Metadata:  metadata,
		}
		return tx.Omit("Plan").Create(&payment).Error
	})
	if errTx != nil {
		return nil, errTx
	}

	e.events.PaymentRecorded(ctx, events.PaymentEvent{
		PaymentID: receipt.PaymentID,
		User:      user,
		PlanID:    planID,
		InvoiceID: invoiceID,
		Token:     quote.Token,
		Method:    string(method),
		Amount:    quote.Amount.String(),
		Refund:    refund.String(),
		ExpiresAt: receipt.ExpiresAt,
		At:        now,
	})
	return receipt, nil
}

// Payments returns the settled payment history for a user, newest first,
// optionally restricted to one plan. A nil planID means no plan filter;
// plan id 0 is a real plan.
func (e *Engine) Payments(ctx context.Context, user string, planID *uint64, limit int) ([]models.Payment, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := e.db.WithContext(ctx).Model(&models.Payment{}).Where("\"user\" = ?", user)
	if planID != nil {
		q = q.Where("plan_id = ?", *planID)
	}
	var rows []models.Payment
	if errFind := q.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; errFind != nil {
		return nil, errFind
	}
	return rows, nil
}

func quoteMetadata(q *Quote) (datatypes.JSON, error) {
	answer := ""
	if q.Answer != nil {
		answer = q.Answer.String()
	}
	raw, err := json.Marshal(map[string]any{
		"feed_id":        q.FeedID,
		"answer":         answer,
		"feed_decimals":  q.FeedDecimals,
		"token_decimals": q.TokenDecimals,
		"usd_decimals":   q.UsdDecimals,
		"price_usd":      q.PriceUsd,
	})
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
