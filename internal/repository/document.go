package repository

import (
	"context"
	"time"

	"doclife/internal/model"
)

// DocumentRepository defines data access for documents using SQL queries only.
// Lookups that match nothing return an error wrapping sql.ErrNoRows.
type DocumentRepository interface {
	// Create inserts a document together with its first version in one transaction.
	Create(ctx context.Context, doc *model.Document, first *model.Version) error

	// FindByID returns a document by its ID, soft-deleted or not.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// List returns a page of documents matching the filter and the total match count.
	List(ctx context.Context, f DocumentFilter, pq PageQuery) (*PageResult[model.Document], error)

	// AppendVersion locks the live document, assigns v.Number = current+1,
	// inserts v and bumps current_version. It returns the updated document.
	AppendVersion(ctx context.Context, v *model.Version, now time.Time) (*model.Document, error)

	// UpdateACL merges the non-nil lists of patch into the stored ACL.
	UpdateACL(ctx context.Context, id string, patch model.ACLPatch, now time.Time) (*model.Document, error)

	// UpdateRetention replaces the retention policy wholesale.
	UpdateRetention(ctx context.Context, id string, r model.Retention, now time.Time) (*model.Document, error)

	// Delete removes the row unless a retention lock is still active at now.
	// It reports whether a row was removed. A non-nil entry is appended to
	// the audit log in the same transaction, and only if a row was removed.
	Delete(ctx context.Context, id string, now time.Time, entry *model.AuditEntry) (bool, error)

	// ListExpired returns live documents whose retention expired at or before now.
	ListExpired(ctx context.Context, now time.Time) ([]model.Document, error)

	// DisposeHard removes the row if it is still live and expired at now.
	// entry is written atomically with the removal, as for Delete.
	DisposeHard(ctx context.Context, id string, now time.Time, entry *model.AuditEntry) (bool, error)

	// DisposeSoft stamps deleted_at if the row is still live and expired at now.
	// entry is written atomically with the update, as for Delete.
	DisposeSoft(ctx context.Context, id string, now time.Time, entry *model.AuditEntry) (bool, error)
}

// DocumentFilter narrows a listing. Domain is matched case-insensitively as a substring.
type DocumentFilter struct {
	TenantID       string
	Domain         string
	IncludeDeleted bool
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
