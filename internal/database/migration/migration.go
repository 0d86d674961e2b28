// Package migration applies the embedded SQL schema with golang-migrate.
package migration

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"doclife/internal/config"
	"doclife/internal/database"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Source returns the embedded migration files as a golang-migrate source.
func Source() (source.Driver, error) {
	return iofs.New(migrationsFS, "migrations")
}

// URL converts the configured database into the pgx5:// URL golang-migrate expects.
func URL(c config.DatabaseConfig) (string, error) {
	dsn, err := database.BuildPostgresDSN(c)
	if err != nil {
		return "", err
	}
	return "pgx5://" + strings.TrimPrefix(dsn, "postgres://"), nil
}

// EnsureMigrated applies every pending up migration. A schema that is already
// current is not an error. Cancelling ctx stops after the running step.
func EnsureMigrated(ctx context.Context, c config.DatabaseConfig, logger *slog.Logger) error {
	start := time.Now()
	log := logger.With(slog.String("component", "database"), slog.String("db_host", c.Host))
	log.Info("db_migration_start")

	m, err := newMigrate(c)
	if err != nil {
		log.Error("db_migration_failed", slog.String("error", err.Error()))
		return err
	}
	defer m.Close()

	stop := context.AfterFunc(ctx, func() { m.GracefulStop <- true })
	defer stop()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Error("db_migration_failed",
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	log.Info("db_migration_success",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}

// Down rolls back n migrations.
func Down(c config.DatabaseConfig, n int, logger *slog.Logger) error {
	if n < 1 {
		return fmt.Errorf("steps must be positive, got %d", n)
	}
	m, err := newMigrate(c)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-n); err != nil {
		return fmt.Errorf("roll back %d migrations: %w", n, err)
	}
	version, _, _ := m.Version()
	logger.Info("db_migration_rollback", slog.Int("steps", n), slog.Uint64("version", uint64(version)))
	return nil
}

func newMigrate(c config.DatabaseConfig) (*migrate.Migrate, error) {
	src, err := Source()
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	url, err := URL(c)
	if err != nil {
		return nil, err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}
	return m, nil
}
