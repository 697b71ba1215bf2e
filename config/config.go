package config

import (
	"strings"
	"time"
	_ "time/tzdata"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Scheduler SchedulerConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port            int           `env:"PORT"                    env-default:"8080"`
	BodyLimitMB     int           `env:"SERVER_BODY_LIMIT_MB"    env-default:"4"`
	AllowedOrigins  string        `env:"CORS_ALLOWED_ORIGINS"    env-default:"*"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	AuthRateLimit   int           `env:"AUTH_RATE_LIMIT"         env-default:"20"`
}

// DatabaseConfig selects the storage backend. Driver "memory" keeps all state
// in process and needs no DSN.
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER" env-default:"memory"`
	DSN    string `env:"DB_DSN"`
	// AutoMigrate runs gorm AutoMigrate at startup for relational drivers.
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" env-default:"true"`
}

type AuthConfig struct {
	JWTSecret    string        `env:"JWT_SECRET"`
	JWTIssuer    string        `env:"JWT_ISSUER"     env-default:"eduquest"`
	TokenTTL     time.Duration `env:"JWT_TOKEN_TTL"  env-default:"168h"`
	ServiceToken string        `env:"SERVICE_TOKEN"`
}

// RedisConfig enables the shared leaderboard cache when Addr is set.
type RedisConfig struct {
	Addr           string        `env:"REDIS_ADDR"`
	Password       string        `env:"REDIS_PASSWORD"`
	DB             int           `env:"REDIS_DB"              env-default:"0"`
	LeaderboardTTL time.Duration `env:"LEADERBOARD_CACHE_TTL" env-default:"30s"`
}

// StorageConfig holds Cloudflare R2 credentials for exports.
type StorageConfig struct {
	R2AccountID string `env:"R2_ACCOUNT_ID"`
	R2AccessKey string `env:"R2_ACCESS_KEY"`
	R2SecretKey string `env:"R2_SECRET_KEY"`
	R2Bucket    string `env:"R2_BUCKET"`
	CDNBaseURL  string `env:"CDN_BASE_URL"`
}

func (s StorageConfig) Enabled() bool {
	return s.R2AccountID != "" && s.R2AccessKey != "" && s.R2SecretKey != "" && s.R2Bucket != ""
}

type SchedulerConfig struct {
	Enabled            bool   `env:"SCHEDULER_ENABLED"    env-default:"true"`
	DailyRefreshCron   string `env:"DAILY_REFRESH_CRON"   env-default:"0 0 * * *"`
	ChallengeSweepCron string `env:"CHALLENGE_SWEEP_CRON" env-default:"0 * * * *"`
	Timezone           string `env:"TZ_NAME"              env-default:"UTC"`
}

// Location resolves Timezone, falling back to UTC.
func (s SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" env-default:"info"`
	Mode  string `env:"LOG_MODE"  env-default:"dev"`
}

func (s ServerConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
