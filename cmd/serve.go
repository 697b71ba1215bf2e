package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"eduquest/handlers"
	"eduquest/workers"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, log := rt.cfg, rt.log

	app := handlers.NewApp(handlers.AppOptions{
		Server:       cfg.Server,
		ServiceToken: cfg.Auth.ServiceToken,
	}, rt.svc, rt.store, log)

	var sched *workers.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = workers.NewScheduler(cfg.Scheduler, rt.svc.Quests, rt.svc.Social, log)
		if err != nil {
			return err
		}
		sched.Start()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Info("http server listening", "addr", addr, "driver", cfg.Database.Driver)
		if err := app.Listen(addr); err != nil {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout.String())
		if sched != nil {
			if err := sched.Shutdown(); err != nil {
				log.Warn("scheduler shutdown", "error", err)
			}
		}
		return app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout)
	})
	return g.Wait()
}
