// Package main applies, rolls back and reports database migrations for the
// configured storage driver.
//
// Usage:
//
//	migrate [-action up|down|status]
//
// PostgreSQL supports all three actions. SQLite migrations are forward-only,
// so "down" is rejected there.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alem-hub/memory-palace/config"
	"github.com/alem-hub/memory-palace/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/memory-palace/internal/infrastructure/persistence/sqlite"
	"github.com/alem-hub/memory-palace/pkg/logger"
	"github.com/alem-hub/memory-palace/pkg/retry"
)

func main() {
	action := flag.String("action", "up", "migration action: up, down or status")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *action); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, action string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(logger.Options{
		Output: os.Stderr,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
		Format: "console",
	})
	defer func() { _ = log.Sync() }()

	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		return migratePostgres(ctx, cfg.Database, action, log)
	case config.StorageSQLite:
		return migrateSQLite(ctx, cfg.Storage.SQLitePath, action, log)
	default:
		return fmt.Errorf("storage driver %q has no migrations", cfg.Storage.Driver)
	}
}

func migratePostgres(ctx context.Context, cfg config.DatabaseConfig, action string, log *logger.Logger) error {
	var conn *postgres.Connection
	err := retry.DatabaseRetrier(cfg.ConnectAttempts, func(attempt int, err error, delay time.Duration) {
		log.Warn("database not ready", logger.Int("attempt", attempt), logger.Duration("delay", delay), logger.Err(err))
	}).Do(ctx, func(ctx context.Context) error {
		c, err := postgres.NewConnection(ctx, cfg.URL, postgres.DefaultPoolConfig())
		if err != nil {
			if postgres.IsPermanent(err) {
				return retry.Permanent(err)
			}
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	migrator := postgres.NewMigrator(conn)
	switch action {
	case "up":
		n, err := migrator.Migrate(ctx)
		if err != nil {
			return err
		}
		log.Info("migrations applied", logger.Int("count", n))
	case "down":
		version, err := migrator.Rollback(ctx)
		if err != nil {
			return err
		}
		if version == 0 {
			log.Info("nothing to roll back")
			return nil
		}
		log.Info("migration rolled back", logger.Int("version", version))
	case "status":
		status, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED")
		for _, m := range status {
			applied := "pending"
			if m.IsApplied {
				applied = m.AppliedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", m.Version, m.Name, applied)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown action %q (valid: up, down, status)", action)
	}
	return nil
}

func migrateSQLite(ctx context.Context, path, action string, log *logger.Logger) error {
	if action != "up" && action != "status" {
		return fmt.Errorf("action %q is not supported for sqlite (valid: up, status)", action)
	}

	// Open applies pending migrations.
	store, err := sqlite.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()

	applied, err := store.AppliedMigrations(ctx)
	if err != nil {
		return err
	}
	if action == "up" {
		log.Info("sqlite schema is up to date", logger.String("path", path), logger.Int("migrations", len(applied)))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tAPPLIED")
	for _, m := range applied {
		fmt.Fprintf(w, "%s\t%s\n", m.Name, m.AppliedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
