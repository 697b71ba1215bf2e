// Package cmd is the eduquest command line: the HTTP server plus one-shot
// maintenance commands that share its configuration.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var envFile string

var rootCmd = &cobra.Command{
	Use:           "eduquest",
	Short:         "Gamified study tracker backend",
	Long:          "eduquest serves the study tracker API: progression, quests, achievements, subjects and study groups.",
	SilenceUsage:  true,
	SilenceErrors: true,
	// no subcommand means serve
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func Execute() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file read before the environment")

	rootCmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newRefreshDailiesCmd(),
		newSweepChallengesCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error: "+err.Error())
		os.Exit(1)
	}
}
