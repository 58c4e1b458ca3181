package database

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stratum/internal/shared/config"
	appLogger "stratum/internal/shared/logger"
)

var (
	db   *gorm.DB
	dbMu sync.RWMutex
)

// Init opens the catalog database connection. The catalog holds the
// tenant registry and migration job queue, never tenant data; tenant
// databases are reached through the pool manager instead.
func Init(cfg *config.DatabaseConfig) error {
	database, err := open(cfg)
	if err != nil {
		return err
	}

	dbMu.Lock()
	db = database
	dbMu.Unlock()

	appLogger.Info("catalog database connection established",
		"database", cfg.Database)
	return nil
}

func open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	database, err := gorm.Open(mysql.New(mysql.Config{
		DSN: cfg.GetDSN(),
		// The catalog schema is managed by goose; skip the version
		// probe gorm would otherwise issue on connect.
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger:      newCatalogQueryLogger(),
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to catalog database: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping catalog database: %w", err)
	}
	return database, nil
}

// Get returns the shared catalog connection.
func Get() *gorm.DB {
	dbMu.RLock()
	defer dbMu.RUnlock()
	return db
}

// Close releases the catalog connection. Safe to call before Init.
func Close() error {
	dbMu.RLock()
	current := db
	dbMu.RUnlock()

	if current == nil {
		return nil
	}

	sqlDB, err := current.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close catalog database connection: %w", err)
	}

	appLogger.Info("catalog database connection closed")
	return nil
}

func newCatalogQueryLogger() logger.Interface {
	return logger.New(catalogQueryWriter{}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Info,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// catalogQueryWriter routes gorm's query log through the structured
// logger at a level matching its severity, and drops the noisy schema
// introspection queries issued at startup.
type catalogQueryWriter struct{}

func (catalogQueryWriter) Printf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	lower := strings.ToLower(msg)
	if strings.Contains(lower, "information_schema.schemata") ||
		strings.Contains(lower, "select version()") {
		return
	}

	switch {
	case strings.Contains(lower, "error"):
		appLogger.Error("catalog query error", "details", msg)
	case strings.Contains(lower, "slow sql"):
		appLogger.Warn("slow catalog query", "details", msg)
	default:
		appLogger.Debug("catalog query", "details", msg)
	}
}
