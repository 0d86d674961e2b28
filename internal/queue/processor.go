package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"doclife/internal/artifact"
	"doclife/internal/retention"
)

// Sweeper runs one retention sweep.
type Sweeper interface {
	RunRetentionSweep(ctx context.Context) (*retention.SweepResult, error)
}

// Janitor runs one artifact cleanup pass.
type Janitor interface {
	Run(ctx context.Context) (*artifact.JanitorResult, error)
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	sweeper Sweeper
	janitor Janitor
	logger  *slog.Logger
}

// NewProcessor constructs a worker processor.
func NewProcessor(sweeper Sweeper, janitor Janitor, logger *slog.Logger) *Processor {
	return &Processor{sweeper: sweeper, janitor: janitor, logger: logger.With(slog.String("component", "queue"))}
}

// Handler registers the task handlers.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeRetentionSweep, p.handleSweep)
	mux.HandleFunc(TypeArtifactsJanitor, p.handleJanitor)
	return mux
}

// handleSweep returns an error only when the sweep could not start; per-document
// failures are part of the result.
func (p *Processor) handleSweep(ctx context.Context, task *asynq.Task) error {
	trigger := decodeTrigger(task)
	res, err := p.sweeper.RunRetentionSweep(ctx)
	if err != nil {
		p.logger.Error("retention sweep failed", slog.String("source", trigger.Source), slog.String("error", err.Error()))
		return fmt.Errorf("retention sweep: %w", err)
	}
	p.logger.Info("retention sweep finished",
		slog.String("source", trigger.Source),
		slog.Int("succeeded", len(res.Succeeded)),
		slog.Int("failed", len(res.Failed)),
		slog.Int("skipped", len(res.Skipped)),
		slog.Duration("duration", res.Duration),
	)
	return nil
}

func (p *Processor) handleJanitor(ctx context.Context, task *asynq.Task) error {
	trigger := decodeTrigger(task)
	res, err := p.janitor.Run(ctx)
	if err != nil {
		p.logger.Error("artifact janitor failed", slog.String("source", trigger.Source), slog.String("error", err.Error()))
		return fmt.Errorf("artifact janitor: %w", err)
	}
	if len(res.Deleted) > 0 || len(res.Failed) > 0 {
		p.logger.Info("artifact janitor finished",
			slog.String("source", trigger.Source),
			slog.Int("deleted", len(res.Deleted)),
			slog.Int("failed", len(res.Failed)),
		)
	}
	return nil
}
