package main

import (
	"context"
	"log/slog"

	"github.com/elee1766/quorum/src/app"
	"github.com/elee1766/quorum/src/config"
	"github.com/spf13/afero"
)

// loadConfig loads the configuration from the default locations plus the
// --config file, then applies CLI flags
func loadConfig(cli *CLI) (*config.Config, *config.Loader, error) {
	precedence := config.GetConfigPaths()
	if cli.Config != "" {
		precedence.LocalConfig = cli.Config
	}

	loader := config.NewLoader(afero.NewOsFs(), precedence)
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}

	overrideConfigFromCLI(cfg, cli)
	return cfg, loader, nil
}

// overrideConfigFromCLI overrides configuration values with CLI flags
func overrideConfigFromCLI(cfg *config.Config, cli *CLI) {
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	if cli.DBPath != "" {
		cfg.Storage.DatabasePath = cli.DBPath
	}
}

// openApp loads config and opens the app with a CLI logger
func openApp(ctx context.Context, cli *CLI) (*app.App, *slog.Logger, error) {
	cfg, _, err := loadConfig(cli)
	if err != nil {
		return nil, nil, err
	}

	logger := createCLILogger(cfg.Logging.Level)
	a, err := app.New(ctx, cfg, app.Options{Logger: logger})
	if err != nil {
		return nil, nil, err
	}
	return a, logger, nil
}
