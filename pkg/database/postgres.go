package database

import (
	"fmt"
	"time"

	"github.com/Eursukkul/ticketing-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func NewPostgresDB(dsn string, pool PoolConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates the schema. The CHECK constraints on events come from the
// model tags; the indexes below cannot be expressed there.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Event{}, &models.Reservation{}, &models.Ticket{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	// At most one active ticket per reservation token.
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_active_reservation
		ON tickets (reservation_token)
		WHERE status = 'active'
	`).Error; err != nil {
		return fmt.Errorf("create ticket index: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_reservations_reclaim
		ON reservations (updated_at)
		WHERE state IN ('reserved', 'stranded')
	`).Error; err != nil {
		return fmt.Errorf("create reservation index: %w", err)
	}
	return nil
}
