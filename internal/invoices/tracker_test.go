package invoices

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/testutil"
	"gorm.io/gorm"
)

func TestConsumeRejectsReplay(t *testing.T) {
	conn := testutil.OpenSQLite(t, &models.Invoice{})
	ctx := context.Background()
	now := time.Now()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return Consume(ctx, tx, "alice", 1, "inv-001", now)
	})
	if err != nil {
		t.Fatalf("first consume: %v", err)
	}

	err = conn.Transaction(func(tx *gorm.DB) error {
		return Consume(ctx, tx, "alice", 1, "inv-001", now)
	})
	if !errors.Is(err, ErrInvoiceAlreadyUsed) {
		t.Fatalf("replay: got %v, want %v", err, ErrInvoiceAlreadyUsed)
	}
}

func TestConsumeScopedToUserAndPlan(t *testing.T) {
	conn := testutil.OpenSQLite(t, &models.Invoice{})
	ctx := context.Background()
	now := time.Now()

	cases := []struct {
		user string
		plan uint64
	}{
		{"alice", 1}, // original
		{"bob", 1},   // same invoice id, other user
		{"alice", 2}, // same invoice id, other plan
	}
	for _, c := range cases {
		err := conn.Transaction(func(tx *gorm.DB) error {
			return Consume(ctx, tx, c.user, c.plan, "inv-001", now)
		})
		if err != nil {
			t.Fatalf("consume %s/%d: %v", c.user, c.plan, err)
		}
	}
}

func TestConsumeRollbackLeavesInvoiceUnused(t *testing.T) {
	conn := testutil.OpenSQLite(t, &models.Invoice{})
	ctx := context.Background()
	tracker := NewTracker(conn)

	failed := errors.New("downstream failure")
	err := conn.Transaction(func(tx *gorm.DB) error {
		if errConsume := Consume(ctx, tx, "alice", 1, "inv-002", time.Now()); errConsume != nil {
			return errConsume
		}
		return failed
	})
	if !errors.Is(err, failed) {
		t.Fatalf("transaction error: %v", err)
	}

	used, err := tracker.Consumed(ctx, "alice", 1, "inv-002")
	if err != nil {
		t.Fatalf("consumed: %v", err)
	}
	if used {
		t.Fatalf("rolled-back invoice must stay unused")
	}

	err = conn.Transaction(func(tx *gorm.DB) error {
		return Consume(ctx, tx, "alice", 1, "inv-002", time.Now())
	})
	if err != nil {
		t.Fatalf("retry after rollback: %v", err)
	}
}
