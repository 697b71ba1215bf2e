package cmd

import (
	"context"
	"fmt"

	"eduquest/cache"
	"eduquest/config"
	"eduquest/logger"
	"eduquest/services"
	"eduquest/storage"
	"eduquest/utils"
)

// runtime is everything a command needs after configuration is loaded.
type runtime struct {
	cfg   *config.Config
	log   *logger.Logger
	store storage.Storage
	svc   *services.Services

	closers []func() error
}

func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}

// bootstrap opens storage and the optional backends, then wires services.
// Redis and R2 are optional: without them the leaderboard cache stays in
// process and exports are disabled.
func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, log: log}

	rt.store, err = storage.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, rt.store.Close)

	var lbCache cache.Cache = cache.NewMemory()
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn("redis unavailable, using in-process cache", "addr", cfg.Redis.Addr, "error", err)
		} else {
			lbCache = rc
			rt.closers = append(rt.closers, rc.Close)
			log.Info("leaderboard cache: redis", "addr", cfg.Redis.Addr)
		}
	}

	deps := services.Deps{
		Store:    rt.store,
		Log:      log,
		Location: cfg.Scheduler.Location(),
		Cache:    lbCache,
		Auth: services.AuthOptions{
			Secret: cfg.Auth.JWTSecret,
			Issuer: cfg.Auth.JWTIssuer,
			TTL:    cfg.Auth.TokenTTL,
		},
		LeaderboardTTL: cfg.Redis.LeaderboardTTL,
	}
	if cfg.Storage.Enabled() {
		up, err := utils.NewR2Uploader(ctx, cfg.Storage)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("r2: %w", err)
		}
		deps.Uploader = up
		log.Info("exports enabled", "bucket", cfg.Storage.R2Bucket)
	}

	rt.svc = services.New(deps)
	return rt, nil
}

// Close releases backends in reverse order of acquisition.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.log.Warn("close failed", "error", err)
		}
	}
	rt.log.Sync()
}
