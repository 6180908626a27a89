// internal/database/connection.go
package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ecocart/storefront-api/internal/config"
	"github.com/ecocart/storefront-api/internal/models"
)

// schemaStatements run after AutoMigrate. Failures are logged and skipped so
// a missing privilege on one index does not block startup.
var schemaStatements = []string{
	"CREATE INDEX IF NOT EXISTS idx_products_category_key_deleted ON products(category_key, deleted)",
	"CREATE INDEX IF NOT EXISTS idx_products_brand_key_deleted ON products(brand_key, deleted)",
	"CREATE INDEX IF NOT EXISTS idx_products_effective_price ON products((COALESCE(discount_price, price)), id)",
	"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",
	"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC)",
	"CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status, payment_status)",
	"ALTER TABLE products DROP CONSTRAINT IF EXISTS chk_products_stock_non_negative",
	"ALTER TABLE products ADD CONSTRAINT chk_products_stock_non_negative CHECK (stock >= 0)",
}

// Initialize opens the PostgreSQL pool described by cfg and verifies it with
// a ping.
func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.LogLevel == "silent" {
		level = logger.Silent
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pool, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql pool: %w", err)
	}
	tunePool(pool, cfg)

	if err := pool.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"host": cfg.Host,
		"db":   cfg.Database,
	}).Info("Connected to PostgreSQL")
	return db, nil
}

func tunePool(pool *sql.DB, cfg config.DatabaseConfig) {
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)
}

func Close(db *gorm.DB) {
	pool, err := db.DB()
	if err == nil {
		err = pool.Close()
	}
	if err != nil {
		logrus.WithError(err).Error("Closing PostgreSQL pool failed")
		return
	}
	logrus.Info("PostgreSQL pool closed")
}

// RunMigrations brings the products, orders and users tables up to date.
func RunMigrations(db *gorm.DB) error {
	logrus.Info("Migrating PostgreSQL schema")

	if err := db.AutoMigrate(&models.Product{}, &models.Order{}, &models.User{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	for _, stmt := range schemaStatements {
		if err := db.Exec(stmt).Error; err != nil {
			logrus.WithError(err).WithField("statement", stmt).Warn("Schema statement skipped")
		}
	}

	logrus.Info("PostgreSQL schema ready")
	return nil
}

// WithTransaction commits when fn returns nil and rolls back on error or
// panic.
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	return db.Transaction(fn)
}
