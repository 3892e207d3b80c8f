package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/tavern-gate/internal/config"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type DB struct {
	SQL    *sql.DB
	Driver string
	logger *slog.Logger
}

// NewConnection opens the configured store and verifies it answers a ping.
// SQLite is limited to a single open connection so the engine sees one writer at a time.
func NewConnection(cfg *config.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	driverName := "sqlite"
	if cfg.Driver == config.DriverPostgres {
		driverName = "pgx"
	}

	sqlDB, err := sql.Open(driverName, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	if cfg.Driver == config.DriverPostgres {
		sqlDB.SetMaxOpenConns(cfg.MaxConns)
		sqlDB.SetMaxIdleConns(cfg.MinConns)
		sqlDB.SetConnMaxLifetime(cfg.MaxConnLifetime)
		sqlDB.SetConnMaxIdleTime(cfg.MaxConnIdleTime)
	} else {
		sqlDB.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	if cfg.Driver == config.DriverPostgres {
		logger.Info("database connection established",
			slog.String("driver", cfg.Driver),
			slog.Int("max_conns", cfg.MaxConns),
			slog.Int("min_conns", cfg.MinConns),
		)
	} else {
		logger.Info("database connection established",
			slog.String("driver", cfg.Driver),
			slog.String("path", cfg.SQLitePath),
		)
	}

	return &DB{SQL: sqlDB, Driver: cfg.Driver, logger: logger}, nil
}

func (db *DB) Close() {
	db.logger.Info("closing database connection")
	db.SQL.Close()
}

func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.SQL.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

func (db *DB) Stats() sql.DBStats {
	return db.SQL.Stats()
}
