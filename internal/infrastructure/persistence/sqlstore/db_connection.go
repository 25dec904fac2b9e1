// Package sqlstore provides the SQL-backed request log store. SQLite is the
// default for a single node; Postgres is available through the same gorm model.
package sqlstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/turtacn/statusservice/internal/config"
	"github.com/turtacn/statusservice/internal/domain/models"
	"github.com/turtacn/statusservice/pkg/constants"
	"github.com/turtacn/statusservice/pkg/logger"
)

// DBConnection owns the gorm handle of the log store.
type DBConnection struct {
	db     *gorm.DB
	driver constants.LogStoreDriver
	logger logger.Logger
}

// NewDBConnection opens the configured database, applies pool settings and
// migrates the request log table.
func NewDBConnection(ctx context.Context, cfg *config.LogStoreConfig, log logger.Logger) (*DBConnection, error) {
	driver := constants.LogStoreDriver(cfg.Driver)

	var dialector gorm.Dialector
	switch driver {
	case constants.LogStoreDriverSQLite:
		if dir := filepath.Dir(cfg.DSN); cfg.DSN != ":memory:" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create log store dir %s: %w", dir, err)
			}
		}
		dialector = sqlite.Open(cfg.DSN)
	case constants.LogStoreDriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported log store driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Error(ctx, "Failed to open log store", err, logger.String("driver", cfg.Driver))
		return nil, fmt.Errorf("open log store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("log store handle: %w", err)
	}
	if driver == constants.LogStoreDriverSQLite {
		// One writer at a time; readers share the same connection.
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
			log.Warn(ctx, "Could not enable WAL on log store", logger.Error(err))
		}
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.WithContext(ctx).AutoMigrate(&models.RequestLog{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate log store: %w", err)
	}

	log.Info(ctx, "Log store ready", logger.String("driver", cfg.Driver))
	return &DBConnection{db: db, driver: driver, logger: log}, nil
}

// DB returns the gorm handle.
func (c *DBConnection) DB() *gorm.DB {
	return c.db
}

// Ping verifies the database answers within five seconds.
func (c *DBConnection) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return sqlDB.PingContext(pingCtx)
}

// Close closes the underlying pool.
func (c *DBConnection) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	c.logger.Info(context.Background(), "Closing log store", logger.String("driver", string(c.driver)))
	return sqlDB.Close()
}
