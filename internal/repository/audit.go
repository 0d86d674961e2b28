package repository

import (
	"context"

	"doclife/internal/model"
)

// AuditRepository is append-only: entries are never updated or deleted.
type AuditRepository interface {
	Append(ctx context.Context, e *model.AuditEntry) error

	// ListByDocument returns a tenant's entries for one document, newest first.
	ListByDocument(ctx context.Context, tenantID, documentID string, pq PageQuery) (*PageResult[model.AuditEntry], error)
}
