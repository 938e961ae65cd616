package stats

import (
	"context"
	"testing"
	"time"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/testutil"
)

func seedPayment(t *testing.T, svc *Service, planID uint64, token, amount, refund string, createdAt time.Time) {
	t.Helper()
	row := models.Payment{
		PaymentID: "pay-" + token + "-" + amount + "-" + refund,
		User:      "0xalice",
		PlanID:    planID,
		InvoiceID: "inv-" + amount,
		Token:     token,
		Method:    models.PaymentMethodNative,
		Amount:    amount,
		Refund:    refund,
		ExpiresAt: createdAt.Add(30 * 24 * time.Hour),
		CreatedAt: createdAt,
	}
	if errCreate := svc.db.Omit("Plan").Create(&row).Error; errCreate != nil {
		t.Fatalf("seed payment: %v", errCreate)
	}
}

func TestSummaryAggregatesByPlanAndToken(t *testing.T) {
	conn := testutil.OpenSQLite(t, &models.Payment{})
	svc := NewService(conn)

	now := time.Now().UTC()
	seedPayment(t, svc, 1, "native", "5000000000000000000", "1000000000000000000", now)
	seedPayment(t, svc, 1, "native", "5000000000000000000", "0", now)
	seedPayment(t, svc, 1, "0xusdc", "5000000", "0", now)
	seedPayment(t, svc, 2, "0xusdc", "12000000", "0", now)

	summary, err := svc.Summary(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Payments != 4 {
		t.Fatalf("expected 4 payments, got %d", summary.Payments)
	}

	if len(summary.Tokens) != 2 {
		t.Fatalf("expected 2 token entries, got %d", len(summary.Tokens))
	}
	usdc := summary.Tokens[0]
	if usdc.Token != "0xusdc" || usdc.Charged.String() != "17000000" {
		t.Fatalf("unexpected usdc totals: %+v", usdc)
	}
	native := summary.Tokens[1]
	if native.Token != "native" || native.Charged.String() != "10000000000000000000" {
		t.Fatalf("unexpected native totals: %+v", native)
	}
	if native.Refunded.String() != "1000000000000000000" {
		t.Fatalf("unexpected native refunds: %s", native.Refunded)
	}

	if len(summary.Plans) != 2 {
		t.Fatalf("expected 2 plan entries, got %d", len(summary.Plans))
	}
	if summary.Plans[0].PlanID != 1 || summary.Plans[0].Payments != 3 {
		t.Fatalf("unexpected plan 1 totals: %+v", summary.Plans[0])
	}
	if summary.Plans[1].PlanID != 2 || summary.Plans[1].Payments != 1 {
		t.Fatalf("unexpected plan 2 totals: %+v", summary.Plans[1])
	}
}

func TestSummaryHonorsCutoff(t *testing.T) {
	conn := testutil.OpenSQLite(t, &models.Payment{})
	svc := NewService(conn)

	now := time.Now().UTC()
	seedPayment(t, svc, 1, "native", "100", "0", now.Add(-48*time.Hour))
	seedPayment(t, svc, 1, "native", "200", "0", now)

	summary, err := svc.Summary(context.Background(), now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Payments != 1 {
		t.Fatalf("expected 1 payment after cutoff, got %d", summary.Payments)
	}
	if summary.Tokens[0].Charged.String() != "200" {
		t.Fatalf("expected only recent payment counted, got %s", summary.Tokens[0].Charged)
	}
}
