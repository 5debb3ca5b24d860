package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/templui/filesmanager/internal/db"
)

func MigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQL schema",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, true)
		},
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, false)
		},
	})

	return migrateCmd
}

func runMigrate(cmd *cobra.Command, up bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.UsesSQL() {
		return fmt.Errorf("migrations only apply to SQL drivers, DB_DRIVER is %q", cfg.DBDriver)
	}

	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	ctx := cmd.Context()
	if up {
		err = db.RunMigrations(ctx, database.DB, cfg.DBDriver)
	} else {
		err = db.MigrateDown(ctx, database.DB, cfg.DBDriver)
	}
	if err != nil {
		return err
	}

	version, err := db.SchemaVersion(ctx, database.DB, cfg.DBDriver)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", version)
	return nil
}
