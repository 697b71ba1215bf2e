package cmd

import (
	"context"
	"fmt"

	"eduquest/config"
	"eduquest/storage"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()
			if cfg.Database.Driver == config.DriverMemory {
				fmt.Fprintln(cmd.OutOrStdout(), "memory driver has no schema, nothing to do")
				return nil
			}

			dbCfg := cfg.Database
			dbCfg.AutoMigrate = true
			store, err := storage.Open(cmd.Context(), dbCfg, log)
			if err != nil {
				return err
			}
			defer store.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", dbCfg.Driver)
			return nil
		},
	}
}

// oneShot runs fn against fully wired services and prints how many records
// it touched.
func oneShot(use, short, noun string, fn func(ctx context.Context, rt *runtime) (int, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			rt, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			n, err := fn(ctx, rt)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", n, noun)
			return nil
		},
	}
}

func newRefreshDailiesCmd() *cobra.Command {
	return oneShot("refresh-dailies", "Regenerate daily quests for every user not yet refreshed today", "users refreshed",
		func(ctx context.Context, rt *runtime) (int, error) {
			return rt.svc.Quests.RefreshAll(ctx)
		})
}

func newSweepChallengesCmd() *cobra.Command {
	return oneShot("sweep-challenges", "Close challenges whose target has been reached", "challenges closed",
		func(ctx context.Context, rt *runtime) (int, error) {
			return rt.svc.Social.SweepChallenges(ctx)
		})
}
