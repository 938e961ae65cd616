package settle

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/events"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/invoices"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/ledger"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/oracle"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/owner"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/plans"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/testutil"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/tokens"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/treasury"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type engineFixture struct {
	db     *gorm.DB
	engine *Engine
	feed   *oracle.StaticFeed
	ledger *ledger.Ledger
	track  *invoices.Tracker
}

// newFixture builds an engine over sqlite with one active plan (id 1,
// $1.00, 30 days), a native currency at 18 decimals and a token "0xusdc"
// at 6 decimals, both priced by a static feed at $0.20 (8 decimals).
func newFixture(t *testing.T) *engineFixture {
	t.Helper()
	conn := testutil.OpenSQLite(t,
		&models.Admin{}, &models.Plan{}, &models.AcceptedToken{},
		&models.Subscription{}, &models.Invoice{}, &models.Payment{}, &models.Transfer{},
	)
	if err := conn.Create(&models.Admin{Username: "owner", Password: "x", Active: true}).Error; err != nil {
		t.Fatalf("seed owner: %v", err)
	}
	auth := owner.NewAuthorizer(conn)
	planReg := plans.NewRegistry(conn, auth)
	tokenReg := tokens.NewRegistry(conn, auth)
	ctx := context.Background()

	if _, err := planReg.Create(ctx, "owner", plans.CreateParams{
		ID: 1, Name: "Pro", PriceUsd: 100_000_000, Duration: 2_592_000,
	}); err != nil {
		t.Fatalf("create plan: %v", err)
	}

	feed := oracle.NewStaticFeed(big.NewInt(20_000_000), 8, testNow)
	adapter := oracle.NewAdapter(time.Hour)
	adapter.WithClock(func() time.Time { return testNow })
	adapter.Register("spot-usd", feed)

	if _, err := tokenReg.SetAccepted(ctx, "owner", tokens.SetParams{
		Address: models.NativeTokenAddress, Symbol: "NAT", Accept: true, PriceFeed: "spot-usd", Decimals: 18,
	}); err != nil {
		t.Fatalf("accept native: %v", err)
	}
	if _, err := tokenReg.SetAccepted(ctx, "owner", tokens.SetParams{
		Address: "0xusdc", Symbol: "USDC", Accept: true, PriceFeed: "spot-usd", Decimals: 6,
	}); err != nil {
		t.Fatalf("accept token: %v", err)
	}

	engine := NewEngine(conn, Config{Treasury: "treasury", UsdDecimals: 8},
		planReg, tokenReg, adapter, treasury.NewJournal(), events.NewDispatcher())
	engine.WithClock(func() time.Time { return testNow })

	return &engineFixture{
		db:     conn,
		engine: engine,
		feed:   feed,
		ledger: ledger.NewLedger(conn),
		track:  invoices.NewTracker(conn),
	}
}

func bigFromString(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad big int literal %q", s)
	}
	return v
}

func (f *engineFixture) transferCount(t *testing.T, kind models.TransferKind) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&models.Transfer{}).Where("kind = ?", kind).Count(&n).Error; err != nil {
		t.Fatalf("count transfers: %v", err)
	}
	return n
}

func TestQuotePlanConvertsAtOracleRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// $1.00 at $0.20 per native unit is 5 units, scaled to 18 decimals.
	q, err := f.engine.QuotePlan(ctx, 1, models.NativeTokenAddress)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if want := bigFromString(t, "5000000000000000000"); q.Amount.Cmp(want) != 0 {
		t.Fatalf("native quote = %s, want %s", q.Amount, want)
	}

	// Same price in the 6-decimal token.
	q, err = f.engine.QuotePlan(ctx, 1, "0xusdc")
	if err != nil {
		t.Fatalf("token quote: %v", err)
	}
	if want := big.NewInt(5_000_000); q.Amount.Cmp(want) != 0 {
		t.Fatalf("token quote = %s, want %s", q.Amount, want)
	}
}

func TestQuotePlanErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.QuotePlan(ctx, 999, models.NativeTokenAddress); !errors.Is(err, plans.ErrPlanNotFound) {
		t.Fatalf("unknown plan: %v", err)
	}
	if _, err := f.engine.QuotePlan(ctx, 1, "0xdead"); !errors.Is(err, tokens.ErrTokenNotAccepted) {
		t.Fatalf("unknown token: %v", err)
	}

	// A price old enough to fall outside the freshness window is rejected.
	f.feed.Set(big.NewInt(20_000_000), 8, testNow.Add(-2*time.Hour))
	if _, err := f.engine.QuotePlan(ctx, 1, models.NativeTokenAddress); !errors.Is(err, oracle.ErrStalePrice) {
		t.Fatalf("stale price: %v", err)
	}
}

func TestQuotePlanUnderflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A dust-priced plan against a strong rate floors to zero units.
	auth := owner.NewAuthorizer(f.db)
	planReg := plans.NewRegistry(f.db, auth)
	if _, err := planReg.Create(ctx, "owner", plans.CreateParams{
		ID: 2, Name: "Dust", PriceUsd: 1, Duration: 60,
	}); err != nil {
		t.Fatalf("create dust plan: %v", err)
	}

	if _, err := f.engine.QuotePlan(ctx, 2, "0xusdc"); !errors.Is(err, ErrQuoteUnderflow) {
		t.Fatalf("got %v, want %v", err, ErrQuoteUnderflow)
	}
}

func TestPayWithNativeExact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quoted := bigFromString(t, "5000000000000000000")

	receipt, err := f.engine.PayWithNative(ctx, NativePayment{
		User: "alice", PlanID: 1, InvoiceID: "inv-001", Value: quoted,
	})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if receipt.Amount.Cmp(quoted) != 0 || receipt.Refund.Sign() != 0 {
		t.Fatalf("unexpected receipt: amount=%s refund=%s", receipt.Amount, receipt.Refund)
	}
	if want := testNow.Add(2_592_000 * time.Second); !receipt.ExpiresAt.Equal(want) {
		t.Fatalf("expiry = %v, want %v", receipt.ExpiresAt, want)
	}

	active, err := f.ledger.IsActive(ctx, "alice", 1, testNow.Add(time.Hour))
	if err != nil || !active {
		t.Fatalf("subscription should be active: %v (err %v)", active, err)
	}
	if n := f.transferCount(t, models.TransferKindCharge); n != 1 {
		t.Fatalf("charge transfers = %d, want 1", n)
	}
	if n := f.transferCount(t, models.TransferKindRefund); n != 0 {
		t.Fatalf("refund transfers = %d, want 0", n)
	}

	var payment models.Payment
	if err := f.db.First(&payment, "payment_id = ?", receipt.PaymentID).Error; err != nil {
		t.Fatalf("payment row: %v", err)
	}
	if payment.Method != models.PaymentMethodNative || payment.Amount != quoted.String() {
		t.Fatalf("unexpected payment row: %+v", payment)
	}
}

func TestPayWithNativeRefundsOverpayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	value := bigFromString(t, "7000000000000000000")

	receipt, err := f.engine.PayWithNative(ctx, NativePayment{
		User: "alice", PlanID: 1, InvoiceID: "inv-001", Value: value,
	})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if want := bigFromString(t, "2000000000000000000"); receipt.Refund.Cmp(want) != 0 {
		t.Fatalf("refund = %s, want %s", receipt.Refund, want)
	}
	if n := f.transferCount(t, models.TransferKindRefund); n != 1 {
		t.Fatalf("refund transfers = %d, want 1", n)
	}
}

func TestPayWithNativeInsufficient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.PayWithNative(ctx, NativePayment{
		User: "alice", PlanID: 1, InvoiceID: "inv-001", Value: big.NewInt(1),
	})
	if !errors.Is(err, ErrInsufficientPayment) {
		t.Fatalf("got %v, want %v", err, ErrInsufficientPayment)
	}

	// The failed attempt must not burn the invoice.
	used, err := f.track.Consumed(ctx, "alice", 1, "inv-001")
	if err != nil || used {
		t.Fatalf("invoice should stay unused: %v (err %v)", used, err)
	}
}

func TestPayReplayRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quoted := bigFromString(t, "5000000000000000000")

	if _, err := f.engine.PayWithNative(ctx, NativePayment{
		User: "alice", PlanID: 1, InvoiceID: "inv-001", Value: quoted,
	}); err != nil {
		t.Fatalf("first pay: %v", err)
	}
	_, err := f.engine.PayWithNative(ctx, NativePayment{
		User: "alice", PlanID: 1, InvoiceID: "inv-001", Value: quoted,
	})
	if !errors.Is(err, invoices.ErrInvoiceAlreadyUsed) {
		t.Fatalf("replay: got %v, want %v", err, invoices.ErrInvoiceAlreadyUsed)
	}

	// The same invoice id is fine for a different user.
	if _, err := f.engine.PayWithNative(ctx, NativePayment{
		User: "bob", PlanID: 1, InvoiceID: "inv-001", Value: quoted,
	}); err != nil {
		t.Fatalf("other user same invoice: %v", err)
	}
}

func TestPayWithTokenChargesQuotedAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	receipt, err := f.engine.PayWithToken(ctx, TokenPayment{
		User: "alice", PlanID: 1, InvoiceID: "inv-001", Token: "0xUSDC", MaxAmount: big.NewInt(6_000_000),
	})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if want := big.NewInt(5_000_000); receipt.Amount.Cmp(want) != 0 {
		t.Fatalf("amount = %s, want %s", receipt.Amount, want)
	}
	if receipt.Refund.Sign() != 0 {
		t.Fatalf("token payments never refund, got %s", receipt.Refund)
	}
}

func TestPayWithTokenSlippage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The rate halves after the caller fetched their quote, doubling the
	// required amount past their stated maximum.
	f.feed.Set(big.NewInt(10_000_000), 8, testNow)
	_, err := f.engine.PayWithToken(ctx, TokenPayment{
		User: "alice", PlanID: 1, InvoiceID: "inv-001", Token: "0xusdc", MaxAmount: big.NewInt(6_000_000),
	})
	if !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("got %v, want %v", err, ErrSlippageExceeded)
	}
	used, err := f.track.Consumed(ctx, "alice", 1, "inv-001")
	if err != nil || used {
		t.Fatalf("invoice should stay unused after slippage: %v (err %v)", used, err)
	}
}

func TestPayInactivePlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	planReg := plans.NewRegistry(f.db, owner.NewAuthorizer(f.db))
	if _, err := planReg.Update(ctx, "owner", 1, plans.UpdateParams{
		Name: "Pro", PriceUsd: 100_000_000, Duration: 2_592_000, Active: false,
	}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err := f.engine.PayWithNative(ctx, NativePayment{
		User: "alice", PlanID: 1, InvoiceID: "inv-001", Value: bigFromString(t, "5000000000000000000"),
	})
	if !errors.Is(err, ErrPlanInactive) {
		t.Fatalf("got %v, want %v", err, ErrPlanInactive)
	}
	_, err = f.engine.PayWithNative(ctx, NativePayment{
		User: "alice", PlanID: 404, InvoiceID: "inv-002", Value: big.NewInt(1),
	})
	if !errors.Is(err, ErrPlanInactive) {
		t.Fatalf("missing plan: got %v, want %v", err, ErrPlanInactive)
	}
}

func TestRenewalIsAdditive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quoted := bigFromString(t, "5000000000000000000")

	first, err := f.engine.PayWithNative(ctx, NativePayment{
		User: "alice", PlanID: 1, InvoiceID: "inv-001", Value: quoted,
	})
	if err != nil {
		t.Fatalf("first pay: %v", err)
	}
	second, err := f.engine.PayWithNative(ctx, NativePayment{
		User: "alice", PlanID: 1, InvoiceID: "inv-002", Value: quoted,
	})
	if err != nil {
		t.Fatalf("second pay: %v", err)
	}
	if want := first.ExpiresAt.Add(2_592_000 * time.Second); !second.ExpiresAt.Equal(want) {
		t.Fatalf("renewal expiry = %v, want %v", second.ExpiresAt, want)
	}
}

type failingTransferer struct{}

func (failingTransferer) Transfer(context.Context, *gorm.DB, treasury.Transfer) error {
	return errors.New("custodian unavailable")
}

func TestTransferFailureRollsBackPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.engine.transfer = failingTransferer{}

	_, err := f.engine.PayWithNative(ctx, NativePayment{
		User: "alice", PlanID: 1, InvoiceID: "inv-001", Value: bigFromString(t, "5000000000000000000"),
	})
	if !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("got %v, want %v", err, ErrTransferFailed)
	}

	used, errUsed := f.track.Consumed(ctx, "alice", 1, "inv-001")
	if errUsed != nil || used {
		t.Fatalf("invoice should roll back: %v (err %v)", used, errUsed)
	}
	expiry, errExpiry := f.ledger.ExpiresAt(ctx, "alice", 1)
	if errExpiry != nil || !expiry.IsZero() {
		t.Fatalf("subscription should roll back: %v (err %v)", expiry, errExpiry)
	}
	var n int64
	if errCount := f.db.Model(&models.Payment{}).Count(&n).Error; errCount != nil || n != 0 {
		t.Fatalf("payment rows = %d (err %v), want 0", n, errCount)
	}
}

func TestFreePlanSettlesWithoutTransfers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	planReg := plans.NewRegistry(f.db, owner.NewAuthorizer(f.db))
	if _, err := planReg.Create(ctx, "owner", plans.CreateParams{
		ID: 3, Name: "Trial", PriceUsd: 0, Duration: 604_800, Free: true,
	}); err != nil {
		t.Fatalf("create free plan: %v", err)
	}

	receipt, err := f.engine.PayWithNative(ctx, NativePayment{
		User: "alice", PlanID: 3, InvoiceID: "inv-001", Value: new(big.Int),
	})
	if err != nil {
		t.Fatalf("free pay: %v", err)
	}
	if receipt.Amount.Sign() != 0 {
		t.Fatalf("free plan amount = %s, want 0", receipt.Amount)
	}
	if n := f.transferCount(t, models.TransferKindCharge); n != 0 {
		t.Fatalf("free plan wrote %d charge transfers", n)
	}
	active, err := f.ledger.IsActive(ctx, "alice", 3, testNow.Add(time.Hour))
	if err != nil || !active {
		t.Fatalf("free subscription should be active: %v (err %v)", active, err)
	}
}

func TestPaymentsHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	quoted := bigFromString(t, "5000000000000000000")

	for _, inv := range []string{"inv-001", "inv-002"} {
		if _, err := f.engine.PayWithNative(ctx, NativePayment{
			User: "alice", PlanID: 1, InvoiceID: inv, Value: quoted,
		}); err != nil {
			t.Fatalf("pay %s: %v", inv, err)
		}
	}
	if _, err := f.engine.PayWithNative(ctx, NativePayment{
		User: "bob", PlanID: 1, InvoiceID: "inv-001", Value: quoted,
	}); err != nil {
		t.Fatalf("pay bob: %v", err)
	}

	rows, err := f.engine.Payments(ctx, "alice", nil, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("history rows = %d, want 2", len(rows))
	}
	for _, row := range rows {
		if row.User != "alice" {
			t.Fatalf("history leaked row for %q", row.User)
		}
	}
}

func TestQuoteAndPayPlanZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	planReg := plans.NewRegistry(f.db, owner.NewAuthorizer(f.db))
	if _, err := planReg.Create(ctx, "owner", plans.CreateParams{
		ID: 0, Name: "Default", PriceUsd: 100_000_000, Duration: 2_592_000,
	}); err != nil {
		t.Fatalf("create plan 0: %v", err)
	}

	quote, err := f.engine.QuotePlan(ctx, 0, models.NativeTokenAddress)
	if err != nil {
		t.Fatalf("quote plan 0: %v", err)
	}
	if want := bigFromString(t, "5000000000000000000"); quote.Amount.Cmp(want) != 0 {
		t.Fatalf("quote amount = %s, want %s", quote.Amount, want)
	}

	receipt, err := f.engine.PayWithNative(ctx, NativePayment{
		User: "alice", PlanID: 0, InvoiceID: "inv-0", Value: quote.Amount,
	})
	if err != nil {
		t.Fatalf("pay plan 0: %v", err)
	}
	if receipt.PlanID != 0 {
		t.Fatalf("receipt plan id = %d, want 0", receipt.PlanID)
	}
	expiry, err := f.ledger.ExpiresAt(ctx, "alice", 0)
	if err != nil || expiry.IsZero() {
		t.Fatalf("plan 0 subscription missing: %v (err %v)", expiry, err)
	}
}
