// Package stats aggregates settled payments for admin reporting.
package stats

import (
	"context"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"gorm.io/gorm"
)

// Service aggregates payment records.
type Service struct {
	db *gorm.DB
}

// NewService constructs a Service backed by GORM.
func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// TokenRevenue totals settled payments for one currency. Amounts stay in the
// currency's base units; charged is gross of refunds.
type TokenRevenue struct {
	Token    string
	Payments int64
	Charged  *big.Int
	Refunded *big.Int
}

// PlanRevenue totals settled payments for one plan, broken down by currency.
type PlanRevenue struct {
	PlanID   uint64
	Payments int64
	Tokens   []TokenRevenue
}

// Summary reports payment totals since a cutoff.
type Summary struct {
	Since    time.Time
	Payments int64
	Plans    []PlanRevenue
	Tokens   []TokenRevenue
}

// Summary aggregates payments created at or after since. A zero since covers
// all payments. Amounts are summed in Go because they exceed 64-bit range and
// are stored as base-10 strings.
func (s *Service) Summary(ctx context.Context, since time.Time) (Summary, error) {
	out := Summary{Since: since}
	if s == nil || s.db == nil {
		return out, nil
	}

	// paymentRow carries only the columns the aggregation needs.
	type paymentRow struct {
		PlanID uint64 `gorm:"column:plan_id"`
		Token  string `gorm:"column:token"`
		Amount string `gorm:"column:amount"`
		Refund string `gorm:"column:refund"`
	}

	q := s.db.WithContext(ctx).Model(&models.Payment{}).
		Select("plan_id", "token", "amount", "refund")
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	var rows []paymentRow
	if errFind := q.Find(&rows).Error; errFind != nil {
		return out, errFind
	}

	byToken := make(map[string]*TokenRevenue)
	byPlan := make(map[uint64]map[string]*TokenRevenue)
	for _, row := range rows {
		out.Payments++
		amount := parseAmount(row.Amount)
		refund := parseAmount(row.Refund)

		accumulate(byToken, row.Token, amount, refund)

		planTokens := byPlan[row.PlanID]
		if planTokens == nil {
			planTokens = make(map[string]*TokenRevenue)
			byPlan[row.PlanID] = planTokens
		}
		accumulate(planTokens, row.Token, amount, refund)
	}

	out.Tokens = sortTokens(byToken)
	for planID, planTokens := range byPlan {
		plan := PlanRevenue{PlanID: planID, Tokens: sortTokens(planTokens)}
		for _, token := range plan.Tokens {
			plan.Payments += token.Payments
		}
		out.Plans = append(out.Plans, plan)
	}
	sort.Slice(out.Plans, func(i, j int) bool { return out.Plans[i].PlanID < out.Plans[j].PlanID })
	return out, nil
}

// accumulate folds one payment into the per-token totals.
func accumulate(totals map[string]*TokenRevenue, token string, amount, refund *big.Int) {
	token = strings.TrimSpace(token)
	entry := totals[token]
	if entry == nil {
		entry = &TokenRevenue{
			Token:    token,
			Charged:  new(big.Int),
			Refunded: new(big.Int),
		}
		totals[token] = entry
	}
	entry.Payments++
	entry.Charged.Add(entry.Charged, amount)
	entry.Refunded.Add(entry.Refunded, refund)
}

// parseAmount reads a stored base-10 amount, treating malformed values as zero.
func parseAmount(raw string) *big.Int {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return new(big.Int)
	}
	return amount
}

// sortTokens flattens and orders per-token totals by token address.
func sortTokens(totals map[string]*TokenRevenue) []TokenRevenue {
	out := make([]TokenRevenue, 0, len(totals))
	for _, entry := range totals {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}
