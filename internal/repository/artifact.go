package repository

import (
	"context"
	"time"

	"doclife/internal/model"
)

// ArtifactRepository tracks transient download exports until the janitor reclaims them.
type ArtifactRepository interface {
	Create(ctx context.Context, a *model.Artifact) error
	FindByFileName(ctx context.Context, fileName string) (*model.Artifact, error)

	// ListExpired returns at most limit artifacts expired at now, oldest first.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]model.Artifact, error)

	// Delete removes the row. A missing row is not an error.
	Delete(ctx context.Context, id string) error
}
