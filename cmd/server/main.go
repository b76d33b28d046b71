package main

import (
	"github.com/spf13/cobra"

	"github.com/journalforest/forest-backend/internal/logger"
)

var version = "dev"

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "forest",
	Short: "Journal a Forest backend",
	Long: `Journal a Forest turns journal entries into short reflections, follow-up
prompts and a growing garden of trees. The same binary runs the HTTP API,
the semantic reindex worker and the schema migrations.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// LOG_LEVEL is applied at init; the flag overrides it.
		if cmd.Flags().Changed("log-level") {
			logger.SetLevel(logger.ParseLevel(logLevel))
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Fatal("command failed", "error", err)
	}
}
