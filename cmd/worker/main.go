package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	_ "github.com/joho/godotenv/autoload"

	"doclife/internal/app"
	"doclife/internal/config"
	"doclife/internal/logging"
	"doclife/internal/otel"
	"doclife/internal/queue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.Location())
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("worker stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	shutdownTracing, err := otel.Init(ctx, "doclife-worker", logger)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	redis := queue.RedisOpt(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	// Sweeper and janitor each serialise their own runs.
	server := asynq.NewServer(redis, asynq.Config{
		Concurrency: 2,
		Logger:      newAsynqLogger(logger),
	})
	processor := queue.NewProcessor(a.Sweeper, a.Janitor, logger)

	scheduler := asynq.NewScheduler(redis, &asynq.SchedulerOpts{
		Location: cfg.Location(),
		Logger:   newAsynqLogger(logger),
	})
	ids, err := queue.RegisterPeriodic(scheduler, queue.Schedule{
		SweepCron:   cfg.Retention.SweepCron,
		JanitorCron: cfg.Artifacts.JanitorCron,
	})
	if err != nil {
		return err
	}
	logger.Info("periodic tasks registered", slog.Any("entries", ids))

	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Shutdown()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	return server.Run(processor.Handler())
}
