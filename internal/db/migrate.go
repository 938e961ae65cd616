package db

import (
	"fmt"

	"github.com/Ashwin-Selvaraj/blockchain-subscription-manager/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite:
		return migrateSQLite(conn)
	case DialectPostgres, "":
		return migratePostgres(conn)
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}
}

// autoMigrate applies the shared schema.
func autoMigrate(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(
		&models.Admin{},
		&models.Plan{},
		&models.AcceptedToken{},
		&models.Subscription{},
		&models.Invoice{},
		&models.Payment{},
		&models.Transfer{},
		&models.Setting{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	return nil
}

// migratePostgres applies PostgreSQL-specific schema updates and indexes.
func migratePostgres(conn *gorm.DB) error {
	if errAutoMigrate := autoMigrate(conn); errAutoMigrate != nil {
		return errAutoMigrate
	}
	if errPaymentsIdx := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_payments_user_created ON payments ("user", created_at)
	`).Error; errPaymentsIdx != nil {
		return fmt.Errorf("db: create payments index: %w", errPaymentsIdx)
	}
	return nil
}

// migrateSQLite applies SQLite schema updates.
func migrateSQLite(conn *gorm.DB) error {
	return autoMigrate(conn)
}
