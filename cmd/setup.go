package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/harmoniq/internal/shared"
)

// SetupConfig writes the embedded config template to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", r.configPath)

	r.writePlain("✓ Wrote %s\n", r.configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set tidal.client_id and tidal.client_secret (or TIDAL_CLIENT_ID / TIDAL_CLIENT_SECRET)\n")
	r.writePlain("2. Run 'harmoniq setup database'\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config, err := r.Config()
	if err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	version, err := shared.CurrentVersion(db)
	if err != nil {
		return err
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("✓ Database ready at %s (schema version %d)\n", config.Database.Path, version)
	return nil
}

// SetupRollback undoes the most recent migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	config, err := r.Config()
	if err != nil {
		return err
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := shared.RollbackMigration(db); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	version, err := shared.CurrentVersion(db)
	if err != nil {
		return err
	}
	r.writePlain("✓ Rolled back to schema version %d\n", version)
	return nil
}
