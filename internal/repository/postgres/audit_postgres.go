package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"doclife/internal/model"
	"doclife/internal/repository"
)

// AuditPostgres appends to audit_log. Entries are never updated or deleted.
type AuditPostgres struct {
	db *sql.DB
}

func NewAuditPostgres(db *sql.DB) *AuditPostgres {
	return &AuditPostgres{db: db}
}

var _ repository.AuditRepository = (*AuditPostgres)(nil)

func (r *AuditPostgres) Append(ctx context.Context, e *model.AuditEntry) error {
	return appendAudit(ctx, r.db, e)
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func appendAudit(ctx context.Context, db execer, e *model.AuditEntry) error {
	var details any
	if e.Details != nil {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
		details = raw
	}
	const q = `
		INSERT INTO audit_log (id, document_id, tenant_id, action, actor_id, ip, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := db.ExecContext(ctx, q,
		e.ID,
		e.DocumentID,
		e.TenantID,
		e.Action,
		e.ActorID,
		e.IP,
		e.UserAgent,
		details,
		e.CreatedAt,
	)
	return err
}

func (r *AuditPostgres) ListByDocument(ctx context.Context, tenantID, documentID string, pq repository.PageQuery) (*repository.PageResult[model.AuditEntry], error) {
	const qCount = `SELECT COUNT(*) FROM audit_log WHERE tenant_id = $1 AND document_id = $2`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount, tenantID, documentID).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT id, document_id, tenant_id, action, actor_id, ip, user_agent, details, created_at
		FROM audit_log
		WHERE tenant_id = $1 AND document_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.QueryContext(ctx, qList, tenantID, documentID, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.AuditEntry, 0)
	for rows.Next() {
		var (
			e   model.AuditEntry
			raw []byte
		)
		if err := rows.Scan(
			&e.ID,
			&e.DocumentID,
			&e.TenantID,
			&e.Action,
			&e.ActorID,
			&e.IP,
			&e.UserAgent,
			&raw,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Details); err != nil {
				return nil, fmt.Errorf("decode audit details of %s: %w", e.ID, err)
			}
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &repository.PageResult[model.AuditEntry]{Items: items, Total: total}, nil
}
