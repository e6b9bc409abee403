package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/deemixkit/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the example configuration to --config or the default config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if path == "" {
		path = shared.DefaultConfigPath()
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Configuration written to %s\n", shared.ExpandPath(path))
	r.writePlain("Next steps:\n")
	r.writePlain("1. Set spotify.client_id and spotify.client_secret for Spotify links\n")
	r.writePlain("2. Set collection.library_path and run 'deemixkit collection scan'\n")
	return nil
}

// SetupDatabase creates the collection database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	path := r.config.Collection.DatabasePath
	r.logger.Info("initializing database", "path", path)

	if _, err := r.collection(); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	version, err := shared.CurrentVersion(r.db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", path)
	r.writePlain("✓ Database ready at %s (schema version %d)\n", shared.ExpandPath(path), version)
	return nil
}
