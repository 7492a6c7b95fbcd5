package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alpacapps/spaces/internal/db"
)

func MigrateCmd() *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	migrate.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, true)
		},
	})
	migrate.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the latest migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, false)
		},
	})

	return migrate
}

func runMigrate(cmd *cobra.Command, up bool) error {
	cfg := environment()
	database, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	if up {
		err = db.RunMigrations(database.DB, cfg.DBDriver)
	} else {
		err = db.MigrateDown(database.DB, cfg.DBDriver)
	}
	if err != nil {
		return err
	}

	version, err := db.Version(database.DB, cfg.DBDriver)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	cmd.Printf("Database at version %d\n", version)
	return nil
}
