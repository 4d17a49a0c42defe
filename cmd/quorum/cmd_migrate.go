package main

import (
	"context"
	"fmt"

	"github.com/elee1766/quorum/src/storage"
)

// MigrateCmd manages database migrations
type MigrateCmd struct {
	Up MigrateUpCmd `cmd:"" help:"Run pending migrations"`
}

// MigrateUpCmd runs pending migrations
type MigrateUpCmd struct{}

// Run executes the migrate up command
func (c *MigrateUpCmd) Run(ctx context.Context, cli *CLI) error {
	cfg, _, err := loadConfig(cli)
	if err != nil {
		return err
	}

	db, err := storage.Open(ctx, cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	fmt.Printf("Database ready: %s\n", db.Path())
	return nil
}
