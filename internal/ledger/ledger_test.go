package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/testutil"
	"gorm.io/gorm"
)

func TestExpiresAtUnknownSubscription(t *testing.T) {
	conn := testutil.OpenSQLite(t, &models.Subscription{})
	l := NewLedger(conn)

	expiry, err := l.ExpiresAt(context.Background(), "alice", 1)
	if err != nil {
		t.Fatalf("expires_at: %v", err)
	}
	if !expiry.IsZero() {
		t.Fatalf("expected zero expiry, got %v", expiry)
	}
}

func TestExtendCreatesAndRenews(t *testing.T) {
	conn := testutil.OpenSQLite(t, &models.Subscription{})
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// First payment anchors at now.
	var first time.Time
	err := conn.Transaction(func(tx *gorm.DB) error {
		var errExtend error
		first, errExtend = Extend(ctx, tx, "alice", 1, 3600, now)
		return errExtend
	})
	if err != nil {
		t.Fatalf("first extend: %v", err)
	}
	if want := now.Add(time.Hour); !first.Equal(want) {
		t.Fatalf("first expiry = %v, want %v", first, want)
	}

	// Renewal before expiry is additive from the current expiry.
	var second time.Time
	err = conn.Transaction(func(tx *gorm.DB) error {
		var errExtend error
		second, errExtend = Extend(ctx, tx, "alice", 1, 3600, now.Add(10*time.Minute))
		return errExtend
	})
	if err != nil {
		t.Fatalf("second extend: %v", err)
	}
	if want := first.Add(time.Hour); !second.Equal(want) {
		t.Fatalf("renewal expiry = %v, want %v", second, want)
	}

	// Renewal after expiry anchors at the payment time, not the old expiry.
	late := second.Add(48 * time.Hour)
	var third time.Time
	err = conn.Transaction(func(tx *gorm.DB) error {
		var errExtend error
		third, errExtend = Extend(ctx, tx, "alice", 1, 3600, late)
		return errExtend
	})
	if err != nil {
		t.Fatalf("third extend: %v", err)
	}
	if want := late.Add(time.Hour); !third.Equal(want) {
		t.Fatalf("late renewal expiry = %v, want %v", third, want)
	}
}

func TestExtendIsolatedPerPlanAndUser(t *testing.T) {
	conn := testutil.OpenSQLite(t, &models.Subscription{})
	l := NewLedger(conn)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, c := range []struct {
		user string
		plan uint64
	}{{"alice", 1}, {"alice", 2}, {"bob", 1}} {
		err := conn.Transaction(func(tx *gorm.DB) error {
			_, errExtend := Extend(ctx, tx, c.user, c.plan, 3600, now)
			return errExtend
		})
		if err != nil {
			t.Fatalf("extend %s/%d: %v", c.user, c.plan, err)
		}
	}

	expiry, err := l.ExpiresAt(ctx, "bob", 2)
	if err != nil {
		t.Fatalf("expires_at: %v", err)
	}
	if !expiry.IsZero() {
		t.Fatalf("bob/2 should have no subscription, got %v", expiry)
	}
	active, err := l.IsActive(ctx, "alice", 2, now.Add(30*time.Minute))
	if err != nil || !active {
		t.Fatalf("alice/2 should be active: %v (err %v)", active, err)
	}
	active, err = l.IsActive(ctx, "alice", 2, now.Add(2*time.Hour))
	if err != nil || active {
		t.Fatalf("alice/2 should be expired: %v (err %v)", active, err)
	}
}

func TestExtendAfterConcurrentFirstPayment(t *testing.T) {
	conn := testutil.OpenSQLite(t, &models.Subscription{})
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Another first payment already committed the row for this pair.
	existing := models.Subscription{
		User: "alice", PlanID: 1,
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now, UpdatedAt: now,
	}
	if err := conn.Create(&existing).Error; err != nil {
		t.Fatalf("seed subscription: %v", err)
	}

	var expiry time.Time
	err := conn.Transaction(func(tx *gorm.DB) error {
		var errExtend error
		expiry, errExtend = Extend(ctx, tx, "alice", 1, 3600, now.Add(time.Minute))
		return errExtend
	})
	if err != nil {
		t.Fatalf("extend over existing row: %v", err)
	}
	if want := now.Add(2 * time.Hour); !expiry.Equal(want) {
		t.Fatalf("expiry = %v, want %v", expiry, want)
	}

	var count int64
	if err := conn.Model(&models.Subscription{}).
		Where("\"user\" = ? AND plan_id = ?", "alice", 1).
		Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("subscription rows = %d, want 1", count)
	}
}
