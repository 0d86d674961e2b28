package repository

import (
	"context"

	"doclife/internal/model"
)

// VersionRepository reads the immutable version history. Versions are
// written only through DocumentRepository so the counter and rows stay in step.
type VersionRepository interface {
	// ListByDocument returns versions ordered by number ascending.
	ListByDocument(ctx context.Context, documentID string) ([]model.Version, error)

	// FindByNumber returns one version of a document.
	FindByNumber(ctx context.Context, documentID string, number int) (*model.Version, error)
}
