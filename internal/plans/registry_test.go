package plans

import (
	"context"
	"errors"
	"testing"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/owner"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/testutil"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	conn := testutil.OpenSQLite(t)
	if err := conn.AutoMigrate(&models.Admin{}, &models.Plan{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := conn.Create(&models.Admin{Username: "owner", Password: "x", Active: true}).Error; err != nil {
		t.Fatalf("seed owner: %v", err)
	}
	return NewRegistry(conn, owner.NewAuthorizer(conn))
}

func TestCreateAndGet(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	plan, err := r.Create(ctx, "owner", CreateParams{
		ID: 1, Name: "Pro", PriceUsd: 100_000_000, Duration: 2_592_000,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !plan.Active {
		t.Fatalf("new plan should start active")
	}

	got, err := r.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Pro" || got.PriceUsd != 100_000_000 || got.Duration != 2_592_000 {
		t.Fatalf("unexpected plan: %+v", got)
	}
}

func TestCreateValidation(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		actor   string
		params  CreateParams
		wantErr error
	}{
		{"duplicate id", "owner", CreateParams{ID: 7, Name: "A", PriceUsd: 1, Duration: 60}, ErrPlanAlreadyExists},
		{"zero duration", "owner", CreateParams{ID: 8, Name: "B", PriceUsd: 1, Duration: 0}, ErrInvalidDuration},
		{"empty name", "owner", CreateParams{ID: 9, Name: "  ", PriceUsd: 1, Duration: 60}, ErrInvalidName},
		{"zero price without free flag", "owner", CreateParams{ID: 10, Name: "C", PriceUsd: 0, Duration: 60}, ErrZeroPriceNotFree},
		{"not owner", "intruder", CreateParams{ID: 11, Name: "D", PriceUsd: 1, Duration: 60}, owner.ErrUnauthorized},
	}

	if _, err := r.Create(ctx, "owner", CreateParams{ID: 7, Name: "A", PriceUsd: 1, Duration: 60}); err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	for _, tc := range cases {
		if _, err := r.Create(ctx, tc.actor, tc.params); !errors.Is(err, tc.wantErr) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.wantErr)
		}
	}
}

func TestCreateAllowsFreePlan(t *testing.T) {
	r := newTestRegistry(t)
	plan, err := r.Create(context.Background(), "owner", CreateParams{
		ID: 1, Name: "Trial", PriceUsd: 0, Duration: 604_800, Free: true,
	})
	if err != nil {
		t.Fatalf("create free plan: %v", err)
	}
	if !plan.Free || plan.PriceUsd != 0 {
		t.Fatalf("unexpected free plan: %+v", plan)
	}
}

func TestUpdate(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	if _, err := r.Create(ctx, "owner", CreateParams{ID: 1, Name: "Pro", PriceUsd: 100, Duration: 60}); err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := r.Update(ctx, "owner", 1, UpdateParams{
		Name: "Pro Max", PriceUsd: 200, Duration: 120, Active: false,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Pro Max" || updated.PriceUsd != 200 || updated.Duration != 120 || updated.Active {
		t.Fatalf("unexpected plan after update: %+v", updated)
	}

	if _, err := r.Update(ctx, "owner", 99, UpdateParams{Name: "X", PriceUsd: 1, Duration: 60, Active: true}); !errors.Is(err, ErrPlanNotFound) {
		t.Fatalf("update missing plan: got %v, want %v", err, ErrPlanNotFound)
	}
	if _, err := r.Update(ctx, "intruder", 1, UpdateParams{Name: "X", PriceUsd: 1, Duration: 60, Active: true}); !errors.Is(err, owner.ErrUnauthorized) {
		t.Fatalf("update by non-owner: got %v, want %v", err, owner.ErrUnauthorized)
	}
}

func TestIsActive(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	if _, err := r.Create(ctx, "owner", CreateParams{ID: 1, Name: "Pro", PriceUsd: 100, Duration: 60}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if active, err := r.IsActive(ctx, 1); err != nil || !active {
		t.Fatalf("expected active, got %v err %v", active, err)
	}
	if active, err := r.IsActive(ctx, 42); err != nil || active {
		t.Fatalf("missing plan should be inactive, got %v err %v", active, err)
	}
	if _, err := r.Update(ctx, "owner", 1, UpdateParams{Name: "Pro", PriceUsd: 100, Duration: 60, Active: false}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if active, err := r.IsActive(ctx, 1); err != nil || active {
		t.Fatalf("deactivated plan should be inactive, got %v err %v", active, err)
	}
}

func TestListFiltersInactive(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	if _, err := r.Create(ctx, "owner", CreateParams{ID: 1, Name: "A", PriceUsd: 1, Duration: 60}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := r.Create(ctx, "owner", CreateParams{ID: 2, Name: "B", PriceUsd: 1, Duration: 60}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := r.Update(ctx, "owner", 2, UpdateParams{Name: "B", PriceUsd: 1, Duration: 60, Active: false}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	all, err := r.List(ctx, false)
	if err != nil || len(all) != 2 {
		t.Fatalf("list all: %v (len %d)", err, len(all))
	}
	active, err := r.List(ctx, true)
	if err != nil || len(active) != 1 || active[0].ID != 1 {
		t.Fatalf("list active: %v (%+v)", err, active)
	}
}

func TestCreatePlanWithZeroID(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	plan, err := r.Create(ctx, "owner", CreateParams{
		ID: 0, Name: "Default", PriceUsd: 100_000_000, Duration: 2_592_000,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if plan.ID != 0 {
		t.Fatalf("stored id = %d, want 0", plan.ID)
	}

	got, err := r.Get(ctx, 0)
	if err != nil {
		t.Fatalf("get plan 0: %v", err)
	}
	if got.Name != "Default" {
		t.Fatalf("unexpected plan: %+v", got)
	}
	active, err := r.IsActive(ctx, 0)
	if err != nil || !active {
		t.Fatalf("plan 0 should be active: %v (err %v)", active, err)
	}
	if _, err := r.Create(ctx, "owner", CreateParams{
		ID: 0, Name: "Default", PriceUsd: 1, Duration: 60,
	}); !errors.Is(err, ErrPlanAlreadyExists) {
		t.Fatalf("duplicate id 0: got %v, want ErrPlanAlreadyExists", err)
	}
}
