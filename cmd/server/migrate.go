package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/journalforest/forest-backend/internal/config"
	"github.com/journalforest/forest-backend/internal/db"
	"github.com/journalforest/forest-backend/internal/db/migrations"
	"github.com/journalforest/forest-backend/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := connectForMigrate()
		if err != nil {
			return err
		}
		defer database.Close()

		if err := migrations.Up(database.Conn()); err != nil {
			return err
		}
		st, err := migrations.GetStatus(database.Conn())
		if err != nil {
			return err
		}
		logger.Info("migrations applied", "version", st.Version)
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the applied and latest schema versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := connectForMigrate()
		if err != nil {
			return err
		}
		defer database.Close()

		st, err := migrations.GetStatus(database.Conn())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Current version: %d\n", st.Version)
		fmt.Fprintf(out, "Latest version:  %d\n", st.Latest)
		switch {
		case st.Dirty:
			fmt.Fprintln(out, "State:           dirty (a previous migration failed)")
		case st.Pending():
			fmt.Fprintln(out, "State:           pending")
		default:
			fmt.Fprintln(out, "State:           up to date")
		}
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}

// connectForMigrate needs only DATABASE_URL, not a fully valid service config.
func connectForMigrate() (*db.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("missing required env var DATABASE_URL")
	}
	return db.Connect(cfg.DatabaseURL)
}
