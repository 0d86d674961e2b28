package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"doclife/internal/model"
	"doclife/internal/repository"
)

const versionColumns = `id, document_id, number, storage_key, content_hash, mime_type, size, comment, created_by, created_at`

// VersionPostgres reads document_versions.
type VersionPostgres struct {
	db *sql.DB
}

func NewVersionPostgres(db *sql.DB) *VersionPostgres {
	return &VersionPostgres{db: db}
}

var _ repository.VersionRepository = (*VersionPostgres)(nil)

func scanVersion(s scanner) (*model.Version, error) {
	var v model.Version
	if err := s.Scan(
		&v.ID,
		&v.DocumentID,
		&v.Number,
		&v.StorageKey,
		&v.ContentHash,
		&v.MimeType,
		&v.Size,
		&v.Comment,
		&v.CreatedBy,
		&v.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &v, nil
}

func insertVersion(ctx context.Context, tx *sql.Tx, v *model.Version) error {
	const q = `
		INSERT INTO document_versions (` + versionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := tx.ExecContext(ctx, q,
		v.ID,
		v.DocumentID,
		v.Number,
		v.StorageKey,
		v.ContentHash,
		v.MimeType,
		v.Size,
		v.Comment,
		v.CreatedBy,
		v.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert version %d: %w", v.Number, err)
	}
	return nil
}

func (r *VersionPostgres) ListByDocument(ctx context.Context, documentID string) ([]model.Version, error) {
	q := `SELECT ` + versionColumns + ` FROM document_versions WHERE document_id = $1 ORDER BY number ASC`
	rows, err := r.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Version, 0)
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (r *VersionPostgres) FindByNumber(ctx context.Context, documentID string, number int) (*model.Version, error) {
	q := `SELECT ` + versionColumns + ` FROM document_versions WHERE document_id = $1 AND number = $2`
	return scanVersion(r.db.QueryRowContext(ctx, q, documentID, number))
}
