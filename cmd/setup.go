package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/plexwrapped/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes config.toml from the embedded template and fills in a client identifier.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}

	config, err := shared.LoadConfig(r.configPath)
	if err != nil {
		return err
	}
	config.EnsureClientID()
	if err := shared.SaveConfig(r.configPath, config); err != nil {
		return err
	}
	r.config = config

	r.logger.Info("config file created", "path", r.configPath)
	r.writePlain("✓ Config written to %s\n", r.configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Run 'wrapped auth pin' to sign in\n")
	r.writePlain("2. Run 'wrapped libraries' to find your music\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	if r.config == nil {
		return fmt.Errorf("%w: no configuration loaded", shared.ErrMissingConfig)
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return nil
}
