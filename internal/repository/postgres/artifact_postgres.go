package postgres

import (
	"context"
	"database/sql"
	"time"

	"doclife/internal/model"
	"doclife/internal/repository"
)

const artifactColumns = `id, document_id, tenant_id, version, object_key, file_name, expires_at, created_at`

// ArtifactPostgres stores download_artifacts rows.
type ArtifactPostgres struct {
	db *sql.DB
}

func NewArtifactPostgres(db *sql.DB) *ArtifactPostgres {
	return &ArtifactPostgres{db: db}
}

var _ repository.ArtifactRepository = (*ArtifactPostgres)(nil)

func scanArtifact(s scanner) (*model.Artifact, error) {
	var a model.Artifact
	if err := s.Scan(
		&a.ID,
		&a.DocumentID,
		&a.TenantID,
		&a.Version,
		&a.ObjectKey,
		&a.FileName,
		&a.ExpiresAt,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ArtifactPostgres) Create(ctx context.Context, a *model.Artifact) error {
	const q = `INSERT INTO download_artifacts (` + artifactColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, q,
		a.ID,
		a.DocumentID,
		a.TenantID,
		a.Version,
		a.ObjectKey,
		a.FileName,
		a.ExpiresAt,
		a.CreatedAt,
	)
	return err
}

func (r *ArtifactPostgres) FindByFileName(ctx context.Context, fileName string) (*model.Artifact, error) {
	const q = `SELECT ` + artifactColumns + ` FROM download_artifacts WHERE file_name = $1`
	return scanArtifact(r.db.QueryRowContext(ctx, q, fileName))
}

func (r *ArtifactPostgres) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.Artifact, error) {
	const q = `SELECT ` + artifactColumns + ` FROM download_artifacts
		WHERE expires_at <= $1 ORDER BY expires_at ASC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Artifact, 0)
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *ArtifactPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM download_artifacts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}
