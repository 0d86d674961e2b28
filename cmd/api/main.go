package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"

	"doclife/internal/app"
	"doclife/internal/config"
	handlers "doclife/internal/http/handler"
	"doclife/internal/http/middleware"
	"doclife/internal/logging"
	"doclife/internal/otel"
	"doclife/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.Location())
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("api stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	shutdownTracing, err := otel.Init(ctx, "doclife-api", logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	prom, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	srv := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             cfg.BodyLimitMB * 1024 * 1024,
		DisableStartupMessage: true,
	})

	// RequestID must run first so every later log line and audit entry sees it.
	srv.Use(middleware.RequestID())
	srv.Use(otelfiber.Middleware())
	srv.Use(middleware.Logger(cfg.Location()))
	srv.Use(prom.Handler())

	handlers.RegisterRoutes(srv, handlers.Deps{
		DB:        a.DB,
		Documents: a.Documents,
		Artifacts: a.Exporter,
		Tokens:    a.Tokens,
		Gatherer:  prometheus.DefaultGatherer,
		Logger:    logger,
	})

	if cfg.Retention.Scheduler == "inprocess" {
		sweep := worker.NewPeriodic("retention-sweep", cfg.Retention.SweepInterval, func(ctx context.Context) error {
			_, err := a.Sweeper.RunRetentionSweep(ctx)
			return err
		}, logger)
		janitor := worker.NewPeriodic("artifact-janitor", cfg.Artifacts.JanitorInterval, func(ctx context.Context) error {
			_, err := a.Janitor.Run(ctx)
			return err
		}, logger)
		sweep.Start(ctx)
		janitor.Start(ctx)
		defer sweep.Stop()
		defer janitor.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info("api listening", slog.String("addr", addr), slog.String("scheduler", cfg.Retention.Scheduler))
		errCh <- srv.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	return srv.ShutdownWithTimeout(shutdownTimeout)
}
