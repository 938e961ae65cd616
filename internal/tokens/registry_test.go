package tokens

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
	if err := conn.AutoMigrate(&models.Admin{}, &models.AcceptedToken{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := conn.Create(&models.Admin{Username: "owner", Password: "x", Active: true}).Error; err != nil {
		t.Fatalf("seed owner: %v", err)
	}
	return NewRegistry(conn, owner.NewAuthorizer(conn))
}

func TestSetAcceptedRequiresFeed(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.SetAccepted(context.Background(), "owner", SetParams{
		Address: "0xAbC", Symbol: "USDC", Accept: true,
	})
	if !errors.Is(err, ErrPriceFeedRequired) {
		t.Fatalf("got %v, want %v", err, ErrPriceFeedRequired)
	}
}

func TestSetAcceptedNormalizesAddress(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	row, err := r.SetAccepted(ctx, "owner", SetParams{
		Address: "  0xABCD  ", Symbol: "USDC", Accept: true, PriceFeed: "usdc-usd", Decimals: 6,
	})
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if row.Address != "0xabcd" {
		t.Fatalf("address not normalized: %q", row.Address)
	}

	got, err := r.RequireAccepted(ctx, "0xAbCd")
	if err != nil {
		t.Fatalf("lookup by mixed case: %v", err)
	}
	if got.PriceFeed != "usdc-usd" || got.Decimals != 6 {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestDisableRetainsFeed(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	if _, err := r.SetAccepted(ctx, "owner", SetParams{
		Address: "0xabcd", Symbol: "USDC", Accept: true, PriceFeed: "usdc-usd", Decimals: 6,
	}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := r.SetAccepted(ctx, "owner", SetParams{Address: "0xabcd", Accept: false}); err != nil {
		t.Fatalf("disable: %v", err)
	}

	if _, err := r.RequireAccepted(ctx, "0xabcd"); !errors.Is(err, ErrTokenNotAccepted) {
		t.Fatalf("disabled currency should not be accepted: %v", err)
	}
	row, err := r.Get(ctx, "0xabcd")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if row.PriceFeed != "usdc-usd" || row.Symbol != "USDC" || row.Decimals != 6 {
		t.Fatalf("disable should retain metadata: %+v", row)
	}

	// Re-enable without restating the feed.
	reEnabled, err := r.SetAccepted(ctx, "owner", SetParams{Address: "0xabcd", Accept: true})
	if err != nil {
		t.Fatalf("re-enable: %v", err)
	}
	if !reEnabled.Accepted || reEnabled.PriceFeed != "usdc-usd" {
		t.Fatalf("re-enable should reuse stored feed: %+v", reEnabled)
	}
}

func TestRequireAcceptedUnknown(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.RequireAccepted(context.Background(), "0xdead"); !errors.Is(err, ErrTokenNotAccepted) {
		t.Fatalf("got %v, want %v", err, ErrTokenNotAccepted)
	}
}

func TestSetAcceptedUnauthorized(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.SetAccepted(context.Background(), "intruder", SetParams{
		Address: "0xabcd", Accept: true, PriceFeed: "usdc-usd",
	})
	if !errors.Is(err, owner.ErrUnauthorized) {
		t.Fatalf("got %v, want %v", err, owner.ErrUnauthorized)
	}
}

func TestNativeSentinelRegistration(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	if _, err := r.SetAccepted(ctx, "owner", SetParams{
		Address: models.NativeTokenAddress, Symbol: "ETH", Accept: true, PriceFeed: "eth-usd", Decimals: 18,
	}); err != nil {
		t.Fatalf("register native: %v", err)
	}
	row, err := r.RequireAccepted(ctx, models.NativeTokenAddress)
	if err != nil {
		t.Fatalf("native lookup: %v", err)
	}
	if row.Decimals != 18 || row.PriceFeed != "eth-usd" {
		t.Fatalf("unexpected native row: %+v", row)
	}
}
