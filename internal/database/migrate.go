package database

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/BradenHooton/tavern-gate/internal/config"
	"github.com/BradenHooton/tavern-gate/migrations"
	"github.com/pressly/goose/v3"
)

// Migrate applies the embedded goose migrations for the active driver.
func (db *DB) Migrate(ctx context.Context) error {
	dialect, dir := goose.DialectSQLite3, "sqlite"
	if db.Driver == config.DriverPostgres {
		dialect, dir = goose.DialectPostgres, "postgres"
	} else {
		// goose holds a dedicated connection while it works
		db.SQL.SetMaxOpenConns(0)
		defer db.SQL.SetMaxOpenConns(1)
	}

	fsys, err := fs.Sub(migrations.FS, dir)
	if err != nil {
		return fmt.Errorf("failed to open %s migrations: %w", dir, err)
	}

	provider, err := goose.NewProvider(dialect, db.SQL, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	for _, r := range results {
		db.logger.Info("migration applied",
			slog.String("source", r.Source.Path),
			slog.Int64("version", r.Source.Version),
			slog.Duration("duration", r.Duration),
		)
	}

	return nil
}
