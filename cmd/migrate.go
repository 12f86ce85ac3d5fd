/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/bayni/apiserver/config"
	"github.com/bayni/apiserver/internal/db"
	"github.com/bayni/apiserver/internal/server"
	"github.com/bayni/apiserver/internal/store"
	"github.com/spf13/cobra"
)

var migrateDownSteps int

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database and legacy data migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		return db.MigrateUp(db.MigrationsURL, cfg.Database)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		return db.MigrateDown(db.MigrationsURL, cfg.Database, migrateDownSteps)
	},
}

var migrateLegacyCmd = &cobra.Command{
	Use:   "legacy",
	Short: "Import single-user records written by old app versions",
	Long: `Imports the single-user records kept under the old "user" and
"current_user" keys into the user directory, rehashes plaintext passwords and
restores the session. Running it again is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg.Log)

		kvStore, err := server.OpenStore(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open kv store: %w", err)
		}
		defer kvStore.Close()

		report, err := store.NewUserDirectory(kvStore).MigrateLegacy(cmd.Context())
		if err != nil {
			return fmt.Errorf("legacy migration failed: %w", err)
		}
		logger.Info("legacy migration finished",
			"imported", report.ImportedUsers,
			"rehashed", report.RehashedUsers,
			"skipped", report.SkippedRecords,
			"session_restored", report.SessionRestored,
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateLegacyCmd)

	migrateDownCmd.Flags().IntVarP(&migrateDownSteps, "steps", "n", 1, "number of migrations to roll back")
}
