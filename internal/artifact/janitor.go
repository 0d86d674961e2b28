package artifact

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"doclife/internal/clock"
	"doclife/internal/repository"
	"doclife/internal/storage"
)

const janitorBatch = 500

var (
	reclaimedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doclife_artifacts_reclaimed_total",
		Help: "Expired download artifacts removed by the janitor.",
	})
	reclaimFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doclife_artifact_reclaim_failures_total",
		Help: "Expired download artifacts the janitor failed to remove.",
	})
)

// Failure describes one artifact the janitor could not remove.
type Failure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// JanitorResult is the outcome of one janitor run.
type JanitorResult struct {
	Deleted  []string      `json:"deleted"`
	Failed   []Failure     `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Janitor removes expired artifacts from the blob store and then their rows.
// State lives in the database, so expiries survive restarts.
type Janitor struct {
	store  storage.Storage
	repo   repository.ArtifactRepository
	clock  clock.Clock
	logger *slog.Logger

	mu sync.Mutex
}

func NewJanitor(store storage.Storage, repo repository.ArtifactRepository, clk clock.Clock, logger *slog.Logger) *Janitor {
	return &Janitor{
		store:  store,
		repo:   repo,
		clock:  clk,
		logger: logger.With(slog.String("component", "artifact-janitor")),
	}
}

// Run reclaims up to one batch of expired artifacts. It is idempotent: a
// missing object counts as removed.
func (j *Janitor) Run(ctx context.Context) (*JanitorResult, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	ctx, span := otel.Tracer("doclife/artifact").Start(ctx, "artifact.janitor")
	defer span.End()

	start := time.Now()
	result := &JanitorResult{Deleted: []string{}, Failed: []Failure{}}

	expired, err := j.repo.ListExpired(ctx, j.clock.Now(), janitorBatch)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list expired artifacts: %w", err)
	}

	for _, a := range expired {
		if err := j.store.Delete(ctx, a.ObjectKey); err != nil {
			j.fail(result, a.ID, fmt.Errorf("delete object %s: %w", a.ObjectKey, err))
			continue
		}
		if err := j.repo.Delete(ctx, a.ID); err != nil {
			j.fail(result, a.ID, fmt.Errorf("delete row: %w", err))
			continue
		}
		reclaimedTotal.Inc()
		result.Deleted = append(result.Deleted, a.ID)
	}

	result.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("janitor.deleted", len(result.Deleted)),
		attribute.Int("janitor.failed", len(result.Failed)),
	)
	if len(expired) > 0 {
		j.logger.Info("artifact janitor finished",
			slog.Int("deleted", len(result.Deleted)),
			slog.Int("failed", len(result.Failed)),
			slog.Duration("duration", result.Duration),
		)
	}
	return result, nil
}

func (j *Janitor) fail(result *JanitorResult, id string, err error) {
	reclaimFailuresTotal.Inc()
	j.logger.Error("reclaim artifact", slog.String("artifact_id", id), slog.String("error", err.Error()))
	result.Failed = append(result.Failed, Failure{ID: id, Reason: err.Error()})
}
