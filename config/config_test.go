package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "0 0 * * *", cfg.Scheduler.DailyRefreshCron)
	assert.Equal(t, 168*time.Hour, cfg.Auth.TokenTTL)
	assert.NotEmpty(t, cfg.Auth.JWTSecret)
	assert.False(t, cfg.Storage.Enabled())
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "PORT=9090\nDB_DRIVER=sqlite\nDB_DSN=file::memory:\nJWT_SECRET=s3cr3t\nTZ_NAME=Europe/Berlin\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Cleanup(func() {
		for _, k := range []string{"PORT", "DB_DRIVER", "DB_DSN", "JWT_SECRET", "TZ_NAME"} {
			os.Unsetenv(k)
		}
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "s3cr3t", cfg.Auth.JWTSecret)
	assert.Equal(t, "Europe/Berlin", cfg.Scheduler.Location().String())
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Server:    ServerConfig{Port: 8080},
			Database:  DatabaseConfig{Driver: DriverMemory},
			Auth:      AuthConfig{TokenTTL: time.Hour},
			Scheduler: SchedulerConfig{Timezone: "UTC"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "memory ok", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "oracle" }, wantErr: "unknown driver"},
		{name: "postgres needs dsn", mutate: func(c *Config) {
			c.Database.Driver = DriverPostgres
			c.Auth.JWTSecret = "x"
		}, wantErr: "DB_DSN"},
		{name: "postgres needs secret", mutate: func(c *Config) {
			c.Database.Driver = DriverPostgres
			c.Database.DSN = "postgres://localhost"
		}, wantErr: "JWT_SECRET"},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "invalid port"},
		{name: "bad timezone", mutate: func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }, wantErr: "timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestServerOrigins(t *testing.T) {
	s := ServerConfig{AllowedOrigins: "https://a.dev, https://b.dev,,"}
	assert.Equal(t, []string{"https://a.dev", "https://b.dev"}, s.Origins())
}
