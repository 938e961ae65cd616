// Package watcher polls the database for settings changes and keeps the
// in-process settings snapshot and manual price overrides current, so other
// processes' writes take effect without a restart.
package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/oracle"
	internalsettings "github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Default timings for the watcher loop.
const (
	// defaultPollInterval controls how often the settings snapshot is checked.
	defaultPollInterval = 2 * time.Second
	// defaultQueryTimeout bounds DB query duration.
	defaultQueryTimeout = 10 * time.Second
)

// priceOverride is one manual feed override stored in settings.
type priceOverride struct {
	Answer   string `json:"answer"`
	Decimals uint8  `json:"decimals"`
}

// Watcher refreshes the settings snapshot when the settings table changes.
type Watcher struct {
	db     *gorm.DB
	oracle *oracle.Adapter

	pollInterval time.Duration

	settingsLatestAt  time.Time
	settingsLatestKey string
	hasSettingsLatest bool
}

// New constructs a Watcher. The oracle adapter may be nil when no price
// overrides should be applied.
func New(db *gorm.DB, adapter *oracle.Adapter) *Watcher {
	return &Watcher{
		db:           db,
		oracle:       adapter,
		pollInterval: defaultPollInterval,
	}
}

// Start launches the poll loop until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	if w == nil || w.db == nil {
		return
	}
	go w.run(ctx)
}

func (w *Watcher) run(ctx context.Context) {
	w.pollSettings(ctx, true)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollSettings(ctx, false)
		}
	}
}

// pollSettings reloads the settings snapshot when changes are detected.
func (w *Watcher) pollSettings(ctx context.Context, force bool) {
	if w == nil || w.db == nil {
		return
	}
	qctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	// latestRow captures the newest setting timestamp for change detection.
	type latestRow struct {
		Key       string     `gorm:"column:key"`        // Latest settings key.
		UpdatedAt *time.Time `gorm:"column:updated_at"` // Latest settings update time.
	}
	var latest latestRow
	hasLatest := false
	errLatest := w.db.WithContext(qctx).
		Model(&models.Setting{}).
		Select("key", "updated_at").
		Order("updated_at DESC, key DESC").
		Limit(1).
		Take(&latest).Error
	if errLatest != nil {
		if errors.Is(errLatest, context.Canceled) {
			return
		}
		if errors.Is(errLatest, gorm.ErrRecordNotFound) {
			hasLatest = false
		} else {
			log.WithError(errLatest).Warn("settings watcher: query latest row failed")
			return
		}
	} else {
		hasLatest = true
	}

	latestKey := strings.TrimSpace(latest.Key)
	latestAt := time.Time{}
	if hasLatest && latest.UpdatedAt != nil {
		latestAt = latest.UpdatedAt.UTC()
	}

	if !force {
		if !hasLatest || latest.UpdatedAt == nil {
			if !w.hasSettingsLatest {
				return
			}
		} else if w.hasSettingsLatest && latestAt.Equal(w.settingsLatestAt) && latestKey == w.settingsLatestKey {
			return
		}
	}

	log.Infof("settings watcher: settings changed, reloading (latest_updated_at=%s latest_key=%s)", latestAt.Format(time.RFC3339Nano), latestKey)

	var rows []models.Setting
	if errFind := w.db.WithContext(qctx).
		Select("key", "value", "updated_at").
		Order("key ASC").
		Find(&rows).Error; errFind != nil {
		if errors.Is(errFind, context.Canceled) {
			return
		}
		log.WithError(errFind).Warn("settings watcher: query settings failed")
		return
	}

	values := make(map[string]json.RawMessage, len(rows))
	maxUpdatedAt := time.Time{}
	maxUpdatedKey := ""
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		values[key] = json.RawMessage(row.Value)

		rowUpdatedAt := row.UpdatedAt.UTC()
		if rowUpdatedAt.After(maxUpdatedAt) || (rowUpdatedAt.Equal(maxUpdatedAt) && key > maxUpdatedKey) {
			maxUpdatedAt = rowUpdatedAt
			maxUpdatedKey = key
		}
	}

	internalsettings.StoreDBConfig(maxUpdatedAt, values)
	w.applyPriceOverrides(values[internalsettings.PriceOverridesKey])

	if !hasLatest || latest.UpdatedAt == nil || latestKey == "" {
		w.settingsLatestAt = time.Time{}
		w.settingsLatestKey = ""
		w.hasSettingsLatest = false
		return
	}
	w.settingsLatestAt = latestAt
	w.settingsLatestKey = latestKey
	w.hasSettingsLatest = true
}

// applyPriceOverrides pushes stored price overrides into static feeds.
// Overrides only affect feeds already registered as static; they never
// shadow live HTTP feeds.
func (w *Watcher) applyPriceOverrides(raw json.RawMessage) {
	if w == nil || w.oracle == nil || len(raw) == 0 {
		return
	}
	var overrides map[string]priceOverride
	if errUnmarshal := json.Unmarshal(raw, &overrides); errUnmarshal != nil {
		log.WithError(errUnmarshal).Warn("settings watcher: parse price overrides failed")
		return
	}

	now := time.Now().UTC()
	for feedID, override := range overrides {
		feed := w.oracle.Feed(feedID)
		if feed == nil {
			continue
		}
		static, ok := feed.(*oracle.StaticFeed)
		if !ok {
			log.Warnf("settings watcher: price override for %q ignored, feed is not static", feedID)
			continue
		}
		answer, okParse := new(big.Int).SetString(strings.TrimSpace(override.Answer), 10)
		if !okParse || answer.Sign() <= 0 {
			log.Warnf("settings watcher: price override for %q has invalid answer %q", feedID, override.Answer)
			continue
		}
		static.Set(answer, override.Decimals, now)
	}
}
