// Package audit appends tamper-evident records of actions taken on documents.
package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"doclife/internal/auth"
	"doclife/internal/clock"
	"doclife/internal/model"
	"doclife/internal/repository"
)

// RequestMeta is the optional request context copied onto audit entries.
type RequestMeta struct {
	IP        string
	UserAgent string
}

type metaKey struct{}

// WithRequestMeta returns a copy of ctx carrying m.
func WithRequestMeta(ctx context.Context, m RequestMeta) context.Context {
	return context.WithValue(ctx, metaKey{}, m)
}

// RequestMetaFromContext returns the metadata stored by WithRequestMeta, if any.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	m, _ := ctx.Value(metaKey{}).(RequestMeta)
	return m
}

// Event describes what happened; the recorder fills in who, when and from where.
type Event struct {
	DocumentID string
	TenantID   string
	Action     string
	Details    map[string]any
}

// Recorder writes audit entries through an append-only repository.
type Recorder struct {
	repo  repository.AuditRepository
	clock clock.Clock
}

// NewRecorder creates a Recorder.
func NewRecorder(repo repository.AuditRepository, clk clock.Clock) *Recorder {
	return &Recorder{repo: repo, clock: clk}
}

// Entry builds the entry for ev without persisting it, for callers that
// write it in the same transaction as the change it describes. The actor is
// taken from the principal in ctx; without one the entry is attributed to
// the system actor.
func (r *Recorder) Entry(ctx context.Context, ev Event) *model.AuditEntry {
	actor := auth.System
	if p, ok := auth.PrincipalFromContext(ctx); ok {
		actor = p
	}
	meta := RequestMetaFromContext(ctx)

	return &model.AuditEntry{
		ID:         uuid.NewString(),
		DocumentID: ev.DocumentID,
		TenantID:   ev.TenantID,
		Action:     ev.Action,
		ActorID:    actor.Subject,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
		Details:    ev.Details,
		CreatedAt:  r.clock.Now(),
	}
}

// Record builds and appends one entry for ev.
func (r *Recorder) Record(ctx context.Context, ev Event) (*model.AuditEntry, error) {
	entry := r.Entry(ctx, ev)
	if err := r.repo.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append audit entry %s: %w", ev.Action, err)
	}
	return entry, nil
}

// Trail lists a document's entries within a tenant, newest first.
func (r *Recorder) Trail(ctx context.Context, tenantID, documentID string, pq repository.PageQuery) (*repository.PageResult[model.AuditEntry], error) {
	return r.repo.ListByDocument(ctx, tenantID, documentID, pq)
}
