package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"doclife/internal/database"
	"doclife/internal/model"
	"doclife/internal/repository"
)

const documentColumns = `id, tenant_id, process_id, domain, category, doc_type, current_version, acl,
		retention_policy_id, retention_delete_at, retention_mode, deleted_at, created_at, updated_at`

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*model.Document, error) {
	var (
		d         model.Document
		processID sql.NullString
		aclRaw    []byte
		policyID  sql.NullString
		deleteAt  sql.NullTime
		mode      sql.NullString
		deletedAt sql.NullTime
	)
	if err := s.Scan(
		&d.ID,
		&d.TenantID,
		&processID,
		&d.Taxonomy.Domain,
		&d.Taxonomy.Category,
		&d.Taxonomy.DocType,
		&d.CurrentVersion,
		&aclRaw,
		&policyID,
		&deleteAt,
		&mode,
		&deletedAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d.ProcessID = processID.String
	if len(aclRaw) > 0 {
		if err := json.Unmarshal(aclRaw, &d.ACL); err != nil {
			return nil, fmt.Errorf("decode acl of %s: %w", d.ID, err)
		}
	}
	if policyID.Valid && deleteAt.Valid {
		d.Retention = &model.Retention{
			PolicyID: policyID.String,
			DeleteAt: deleteAt.Time,
			Mode:     model.DisposalMode(mode.String),
		}
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		d.DeletedAt = &t
	}
	return &d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func retentionArgs(r *model.Retention) (any, any, any) {
	if r == nil {
		return nil, nil, nil
	}
	return r.PolicyID, r.DeleteAt, string(r.Mode)
}

// Create inserts the document row and its first version atomically.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document, first *model.Version) error {
	aclJSON, err := json.Marshal(doc.ACL)
	if err != nil {
		return fmt.Errorf("encode acl: %w", err)
	}

	const q = `
		INSERT INTO documents (id, tenant_id, process_id, domain, category, doc_type, current_version, acl,
			retention_policy_id, retention_delete_at, retention_mode, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	policyID, deleteAt, mode := retentionArgs(doc.Retention)
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, q,
			doc.ID,
			doc.TenantID,
			nullString(doc.ProcessID),
			doc.Taxonomy.Domain,
			doc.Taxonomy.Category,
			doc.Taxonomy.DocType,
			doc.CurrentVersion,
			aclJSON,
			policyID,
			deleteAt,
			mode,
			doc.CreatedAt,
			doc.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		if first == nil {
			return nil
		}
		return insertVersion(ctx, tx, first)
	})
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// List returns documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) List(ctx context.Context, f repository.DocumentFilter, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	var (
		conds []string
		args  []any
	)
	if f.TenantID != "" {
		args = append(args, f.TenantID)
		conds = append(conds, fmt.Sprintf("tenant_id = $%d", len(args)))
	}
	if !f.IncludeDeleted {
		conds = append(conds, "deleted_at IS NULL")
	}
	if f.Domain != "" {
		args = append(args, "%"+escapeLike(f.Domain)+"%")
		conds = append(conds, fmt.Sprintf("domain ILIKE $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	// Count total rows
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	// Fetch page
	qList := `SELECT ` + documentColumns + ` FROM documents` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, qList, append(args, pq.Limit, pq.Offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// AppendVersion serializes concurrent writers on the document row.
func (r *DocumentPostgres) AppendVersion(ctx context.Context, v *model.Version, now time.Time) (*model.Document, error) {
	const qLock = `SELECT current_version FROM documents WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
	qBump := `UPDATE documents SET current_version = $2, updated_at = $3 WHERE id = $1 RETURNING ` + documentColumns

	var doc *model.Document
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var current int
		if err := tx.QueryRowContext(ctx, qLock, v.DocumentID).Scan(&current); err != nil {
			return err
		}

		v.Number = current + 1
		if err := insertVersion(ctx, tx, v); err != nil {
			return err
		}

		var err error
		doc, err = scanDocument(tx.QueryRowContext(ctx, qBump, v.DocumentID, v.Number, now))
		if err != nil {
			return fmt.Errorf("bump current_version: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateACL relies on jsonb concatenation so keys absent from the patch keep their value.
func (r *DocumentPostgres) UpdateACL(ctx context.Context, id string, patch model.ACLPatch, now time.Time) (*model.Document, error) {
	raw, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("encode acl patch: %w", err)
	}
	q := `UPDATE documents SET acl = acl || $2::jsonb, updated_at = $3 WHERE id = $1 RETURNING ` + documentColumns
	return scanDocument(r.db.QueryRowContext(ctx, q, id, raw, now))
}

func (r *DocumentPostgres) UpdateRetention(ctx context.Context, id string, ret model.Retention, now time.Time) (*model.Document, error) {
	q := `UPDATE documents
		SET retention_policy_id = $2, retention_delete_at = $3, retention_mode = $4, updated_at = $5
		WHERE id = $1 RETURNING ` + documentColumns
	return scanDocument(r.db.QueryRowContext(ctx, q, id, ret.PolicyID, ret.DeleteAt, string(ret.Mode), now))
}

// Delete re-checks the retention lock in SQL so a policy attached after the
// caller's read still blocks the delete.
func (r *DocumentPostgres) Delete(ctx context.Context, id string, now time.Time, entry *model.AuditEntry) (bool, error) {
	const q = `DELETE FROM documents WHERE id = $1 AND (retention_delete_at IS NULL OR retention_delete_at <= $2)`
	return r.execAudited(ctx, entry, q, id, now)
}

func (r *DocumentPostgres) ListExpired(ctx context.Context, now time.Time) ([]model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents
		WHERE retention_delete_at <= $1 AND deleted_at IS NULL
		ORDER BY retention_delete_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *DocumentPostgres) DisposeHard(ctx context.Context, id string, now time.Time, entry *model.AuditEntry) (bool, error) {
	const q = `DELETE FROM documents WHERE id = $1 AND deleted_at IS NULL AND retention_delete_at <= $2`
	return r.execAudited(ctx, entry, q, id, now)
}

func (r *DocumentPostgres) DisposeSoft(ctx context.Context, id string, now time.Time, entry *model.AuditEntry) (bool, error) {
	const q = `UPDATE documents SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL AND retention_delete_at <= $2`
	return r.execAudited(ctx, entry, q, id, now)
}

// execAudited runs a conditional statement and, when it affected a row,
// appends entry in the same transaction. Nothing is committed if either fails.
func (r *DocumentPostgres) execAudited(ctx context.Context, entry *model.AuditEntry, q string, args ...any) (bool, error) {
	var affected bool
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 || entry == nil {
			affected = n > 0
			return nil
		}
		if err := appendAudit(ctx, tx, entry); err != nil {
			return fmt.Errorf("append audit entry %s: %w", entry.Action, err)
		}
		affected = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return affected, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
