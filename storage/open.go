package storage

import (
	"context"
	"fmt"
	"time"

	"eduquest/config"
	"eduquest/logger"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open returns the Storage selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (Storage, error) {
	if cfg.Driver == config.DriverMemory {
		log.Info("storage: using in-memory store")
		return NewMemStorage(), nil
	}

	dialector, err := dialectorFor(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", cfg.Driver, err)
	}

	gs := NewGormStorage(db)
	if cfg.Driver != config.DriverSQLite {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(25)
			sqlDB.SetMaxIdleConns(5)
			sqlDB.SetConnMaxLifetime(time.Hour)
		}
	}
	if cfg.AutoMigrate {
		if err := gs.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("storage: migrate: %w", err)
		}
		log.Info("storage: migrations applied", "driver", cfg.Driver)
	}
	return gs, nil
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case config.DriverPostgres:
		return postgres.Open(dsn), nil
	case config.DriverSQLite:
		return sqlite.Open(dsn), nil
	case config.DriverMySQL:
		return mysql.Open(dsn), nil
	}
	return nil, fmt.Errorf("storage: unknown driver %q", driver)
}
