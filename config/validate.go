package config

import (
	"fmt"
	"time"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
)

// Validate performs business-rule validation on the loaded configuration.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite, DriverMySQL:
		if c.Database.DSN == "" {
			return fmt.Errorf("database: DB_DSN is required for driver %q", c.Database.Driver)
		}
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth: JWT_SECRET is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("database: unknown driver %q", c.Database.Driver)
	}

	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = "dev-only-insecure-secret"
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth: token ttl must be > 0 (got %s)", c.Auth.TokenTTL)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server: invalid port %d", c.Server.Port)
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler: timezone %q: %w", c.Scheduler.Timezone, err)
	}
	return nil
}
