package settings

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"gorm.io/gorm"
)

var (
	mu        sync.RWMutex
	snapshot  = map[string]json.RawMessage{}
	updatedAt time.Time
)

// StoreDBConfig replaces the in-process settings snapshot.
func StoreDBConfig(maxUpdatedAt time.Time, values map[string]json.RawMessage) {
	next := make(map[string]json.RawMessage, len(values))
	for key, raw := range values {
		val := make(json.RawMessage, len(raw))
		copy(val, raw)
		next[key] = val
	}
	mu.Lock()
	snapshot = next
	updatedAt = maxUpdatedAt
	mu.Unlock()
}

// LoadFromDB rebuilds the snapshot from the settings table. Called at
// startup; admin edits refresh it through StoreDBConfig.
func LoadFromDB(conn *gorm.DB) error {
	var rows []models.Setting
	if errFind := conn.Order("key ASC").Find(&rows).Error; errFind != nil {
		return errFind
	}
	values := make(map[string]json.RawMessage, len(rows))
	maxUpdatedAt := time.Time{}
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		values[key] = json.RawMessage(row.Value)
		if row.UpdatedAt.UTC().After(maxUpdatedAt) {
			maxUpdatedAt = row.UpdatedAt.UTC()
		}
	}
	StoreDBConfig(maxUpdatedAt, values)
	return nil
}

// DBConfigValue returns the raw JSON value stored under key.
func DBConfigValue(key string) (json.RawMessage, bool) {
	mu.RLock()
	raw, ok := snapshot[key]
	mu.RUnlock()
	if !ok || len(raw) == 0 {
		return nil, false
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out, true
}

// DBConfigUpdatedAt returns the newest updated_at seen in the snapshot.
func DBConfigUpdatedAt() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return updatedAt
}
