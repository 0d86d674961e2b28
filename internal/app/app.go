// Package app wires the lifecycle components shared by the API, the worker
// and the operator CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"doclife/internal/artifact"
	"doclife/internal/audit"
	"doclife/internal/auth"
	"doclife/internal/clock"
	"doclife/internal/config"
	"doclife/internal/database"
	"doclife/internal/database/migration"
	"doclife/internal/repository/postgres"
	"doclife/internal/retention"
	"doclife/internal/service"
	"doclife/internal/storage"
)

// App holds the constructed components. Close releases the database.
type App struct {
	Config    *config.AppConfig
	Logger    *slog.Logger
	DB        *sql.DB
	Store     storage.Storage
	Documents service.DocumentService
	Exporter  *artifact.Exporter
	Sweeper   *retention.Sweeper
	Janitor   *artifact.Janitor
	Tokens    *auth.TokenIssuer
}

// Build connects to Postgres and MinIO, optionally migrates, and wires every component.
func Build(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*App, error) {
	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	signer, err := artifact.NewSigner(cfg.Artifacts.SigningSecret)
	if err != nil {
		return nil, fmt.Errorf("artifact signer: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := migration.EnsureMigrated(ctx, cfg.Database, logger); err != nil {
			return nil, err
		}
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store, err := storage.NewMinIO(ctx, cfg.MinIO)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}

	clk := clock.Real()
	docs := postgres.NewDocumentPostgres(db)
	versions := postgres.NewVersionPostgres(db)
	artifacts := postgres.NewArtifactPostgres(db)
	recorder := audit.NewRecorder(postgres.NewAuditPostgres(db), clk)

	exporter := artifact.NewExporter(store, artifacts, signer, clk,
		cfg.PublicBaseURL, cfg.Artifacts.TTL, cfg.Artifacts.CacheSize, logger)

	return &App{
		Config: cfg,
		Logger: logger,
		DB:     db,
		Store:  store,
		Documents: service.NewDocumentService(service.Deps{
			Store:    store,
			Docs:     docs,
			Versions: versions,
			Recorder: recorder,
			Exporter: exporter,
			Clock:    clk,
			Logger:   logger,
		}),
		Exporter: exporter,
		Sweeper:  retention.NewSweeper(docs, versions, store, recorder, clk, logger),
		Janitor:  artifact.NewJanitor(store, artifacts, clk, logger),
		Tokens:   tokens,
	}, nil
}

// Close releases held resources.
func (a *App) Close() error {
	return a.DB.Close()
}
