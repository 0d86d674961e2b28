package retention

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

	"doclife/internal/audit"
	"doclife/internal/auth"
	"doclife/internal/clock"
	"doclife/internal/model"
	"doclife/internal/repository"
	"doclife/internal/storage"
)

const (
	sweeperIP        = "127.0.0.1"
	sweeperUserAgent = "doclife-retention-sweeper"
)

var (
	sweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doclife_retention_sweeps_total",
		Help: "Number of retention sweeps run.",
	})

	disposedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doclife_retention_disposed_total",
		Help: "Documents disposed by the retention sweeper.",
	}, []string{"mode"})

	failuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doclife_retention_failures_total",
		Help: "Documents the retention sweeper failed to dispose.",
	})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "doclife_retention_sweep_duration_seconds",
		Help:    "Duration of retention sweeps.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
)

// Disposal describes one document the sweeper disposed of.
type Disposal struct {
	DocumentID string `json:"id"`
	TenantID   string `json:"tenant_id"`
	Action     string `json:"action"`
	Version    int    `json:"version"`
}

// Failure describes one document the sweeper could not process.
type Failure struct {
	DocumentID string `json:"id"`
	Reason     string `json:"reason"`
}

// SweepResult is the outcome of one sweep. Skipped lists documents that were
// no longer eligible by the time their conditional disposal ran.
type SweepResult struct {
	Succeeded []Disposal    `json:"succeeded"`
	Failed    []Failure     `json:"failed"`
	Skipped   []string      `json:"skipped"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Sweeper disposes of documents whose retention deadline has passed. It
// acts as the system principal and bypasses ACL checks.
type Sweeper struct {
	docs     repository.DocumentRepository
	versions repository.VersionRepository
	store    storage.Storage
	recorder *audit.Recorder
	clock    clock.Clock
	logger   *slog.Logger

	mu sync.Mutex // one sweep at a time
}

// NewSweeper creates a Sweeper. versions and store may be nil, in which case
// blobs of hard-disposed documents are left for out-of-band cleanup.
func NewSweeper(
	docs repository.DocumentRepository,
	versions repository.VersionRepository,
	store storage.Storage,
	recorder *audit.Recorder,
	clk clock.Clock,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		docs:     docs,
		versions: versions,
		store:    store,
		recorder: recorder,
		clock:    clk,
		logger:   logger.With(slog.String("component", "retention-sweeper")),
	}
}

// RunRetentionSweep disposes of every live document expired at the current
// time. A failing document is recorded and does not stop the batch; only a
// failure to list candidates is returned as an error.
func (s *Sweeper) RunRetentionSweep(ctx context.Context) (*SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := otel.Tracer("doclife/retention").Start(ctx, "retention.sweep")
	defer span.End()

	now := s.clock.Now()
	result := &SweepResult{
		Succeeded: []Disposal{},
		Failed:    []Failure{},
		Skipped:   []string{},
		StartedAt: now,
	}
	start := time.Now()
	sweepsTotal.Inc()

	candidates, err := s.docs.ListExpired(ctx, now)
	if err != nil {
		span.RecordError(err)
		s.logger.Error("list expired documents", slog.String("error", err.Error()))
		return nil, fmt.Errorf("list expired documents: %w", err)
	}

	ctx = auth.WithPrincipal(ctx, auth.System)
	ctx = audit.WithRequestMeta(ctx, audit.RequestMeta{IP: sweeperIP, UserAgent: sweeperUserAgent})

	for i := range candidates {
		doc := &candidates[i]
		d, skipped, err := s.dispose(ctx, doc, now)
		switch {
		case err != nil:
			failuresTotal.Inc()
			s.logger.Error("retention disposal failed",
				slog.String("document_id", doc.ID),
				slog.String("error", err.Error()),
			)
			result.Failed = append(result.Failed, Failure{DocumentID: doc.ID, Reason: err.Error()})
		case skipped:
			s.logger.Info("retention disposal skipped", slog.String("document_id", doc.ID))
			result.Skipped = append(result.Skipped, doc.ID)
		default:
			result.Succeeded = append(result.Succeeded, *d)
		}
	}

	result.Duration = time.Since(start)
	sweepDuration.Observe(result.Duration.Seconds())
	span.SetAttributes(
		attribute.Int("sweep.candidates", len(candidates)),
		attribute.Int("sweep.succeeded", len(result.Succeeded)),
		attribute.Int("sweep.failed", len(result.Failed)),
		attribute.Int("sweep.skipped", len(result.Skipped)),
	)
	s.logger.Info("retention sweep finished",
		slog.Int("succeeded", len(result.Succeeded)),
		slog.Int("failed", len(result.Failed)),
		slog.Int("skipped", len(result.Skipped)),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

func (s *Sweeper) dispose(ctx context.Context, doc *model.Document, now time.Time) (*Disposal, bool, error) {
	if doc.Retention == nil {
		return nil, true, nil
	}
	action, hard := ActionFor(doc.Retention.Mode)

	// The entry commits with the disposal, so a failed audit write leaves the
	// document live for the next sweep.
	entry := s.recorder.Entry(ctx, audit.Event{
		DocumentID: doc.ID,
		TenantID:   doc.TenantID,
		Action:     action,
		Details: map[string]any{
			"policyId":      doc.Retention.PolicyID,
			"executionDate": now.Format(time.RFC3339),
			"result":        "SUCCESS",
			"version":       doc.CurrentVersion,
		},
	})

	var (
		blobs []string
		ok    bool
		err   error
	)
	if hard {
		blobs = s.blobKeys(ctx, doc.ID)
		ok, err = s.docs.DisposeHard(ctx, doc.ID, now, entry)
	} else {
		ok, err = s.docs.DisposeSoft(ctx, doc.ID, now, entry)
	}
	if err != nil {
		return nil, false, fmt.Errorf("dispose: %w", err)
	}
	if !ok {
		return nil, true, nil
	}
	disposedTotal.WithLabelValues(string(doc.Retention.Mode)).Inc()

	s.purgeBlobs(ctx, doc.ID, blobs)
	return &Disposal{DocumentID: doc.ID, TenantID: doc.TenantID, Action: action, Version: doc.CurrentVersion}, false, nil
}

// blobKeys must be read before the row is removed, since versions cascade with it.
func (s *Sweeper) blobKeys(ctx context.Context, documentID string) []string {
	if s.versions == nil || s.store == nil {
		return nil
	}
	versions, err := s.versions.ListByDocument(ctx, documentID)
	if err != nil {
		s.logger.Warn("list versions before disposal",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	keys := make([]string, 0, len(versions))
	for _, v := range versions {
		if v.StorageKey != "" {
			keys = append(keys, v.StorageKey)
		}
	}
	return keys
}

func (s *Sweeper) purgeBlobs(ctx context.Context, documentID string, keys []string) {
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn("delete version blob",
				slog.String("document_id", documentID),
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}
