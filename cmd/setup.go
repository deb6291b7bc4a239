package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/ytune/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes config.toml from the embedded template when missing, then opens
// the configured storage, creating the database file and running migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.writePlain("✓ Config file created: %s\n", configPath)
	} else {
		r.writePlain("✓ Using existing config: %s\n", configPath)
	}

	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("initializing storage", "driver", cfg.Storage.Driver, "path", cfg.Storage.Path)
	e, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	r.writePlain("✓ Storage ready: %s (%s)\n", cfg.Storage.Path, cfg.Storage.Driver)
	r.writePlain("  Search source: %s\n", cfg.Search.Source)
	if e.Metered() {
		r.writePlain("  API keys: %d\n", len(cfg.Search.Keys))
	} else {
		r.writePlain("  API keys: none (searches are unmetered)\n")
	}
	r.writePlain("  Offline cache: %d/%d tracks\n", e.Cache().Info(ctx).Items, cfg.Cache.MaxItems)

	r.writePlainln("Next steps:")
	r.writePlain("1. Add [[search.keys]] entries to %s for YouTube searches\n", configPath)
	r.writePlain("2. Run 'ytune search \"your song\"'\n")
	return nil
}
