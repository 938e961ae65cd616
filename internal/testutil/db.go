// Package testutil provides shared test fixtures.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenSQLite opens a fresh in-memory SQLite database scoped to the test and
// migrates the given models. Each test gets its own named shared-cache
// database so pooled connections see the same data.
func OpenSQLite(t *testing.T, dst ...any) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(dst) > 0 {
		if err := conn.AutoMigrate(dst...); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}
	return conn
}
