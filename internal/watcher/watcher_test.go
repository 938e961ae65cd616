package watcher

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/oracle"
	internalsettings "github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/settings"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/testutil"
	"gorm.io/datatypes"
)

func TestPollSettingsReloadsSnapshot(t *testing.T) {
	conn := testutil.OpenSQLite(t, &models.Setting{})

	now := time.Now().UTC()
	setting := models.Setting{
		Key:       internalsettings.SiteNameKey,
		Value:     datatypes.JSON(`"Watcher Test"`),
		UpdatedAt: now,
	}
	if errCreate := conn.Create(&setting).Error; errCreate != nil {
		t.Fatalf("create setting: %v", errCreate)
	}

	w := New(conn, nil)
	w.pollSettings(context.Background(), true)

	raw, ok := internalsettings.DBConfigValue(internalsettings.SiteNameKey)
	if !ok {
		t.Fatalf("expected site name in snapshot")
	}
	if string(raw) != `"Watcher Test"` {
		t.Fatalf("unexpected snapshot value: %s", raw)
	}

	// Unchanged table is a no-op without force.
	w.pollSettings(context.Background(), false)
	if !w.hasSettingsLatest {
		t.Fatalf("expected change detection state to be retained")
	}
}

func TestApplyPriceOverrides(t *testing.T) {
	adapter := oracle.NewAdapter(time.Hour)
	static := oracle.NewStaticFeed(big.NewInt(100), 8, time.Now().UTC())
	adapter.Register("spot-usd", static)
	adapter.Register("live-usd", oracle.NewHTTPFeed(nil, "https://feeds.example/price", ""))

	w := New(nil, adapter)
	w.applyPriceOverrides([]byte(`{
		"spot-usd": {"answer": "25000000", "decimals": 8},
		"live-usd": {"answer": "1", "decimals": 8},
		"unknown":  {"answer": "1", "decimals": 8}
	}`))

	sample, err := static.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if sample.Answer.Cmp(big.NewInt(25000000)) != 0 {
		t.Fatalf("expected override applied, got %s", sample.Answer)
	}
	if sample.Decimals != 8 {
		t.Fatalf("expected decimals 8, got %d", sample.Decimals)
	}
}

func TestApplyPriceOverridesRejectsInvalidAnswer(t *testing.T) {
	adapter := oracle.NewAdapter(time.Hour)
	static := oracle.NewStaticFeed(big.NewInt(100), 8, time.Now().UTC())
	adapter.Register("spot-usd", static)

	w := New(nil, adapter)
	w.applyPriceOverrides([]byte(`{"spot-usd": {"answer": "-5", "decimals": 8}}`))

	sample, err := static.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if sample.Answer.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected original answer retained, got %s", sample.Answer)
	}
}
