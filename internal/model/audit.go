package model

import "time"

// Audit action tags. Tags are free-form; these are the ones emitted by this service.
const (
	ActionCreate               = "CREATE"
	ActionRead                 = "READ"
	ActionCreateVersion        = "CREATE_VERSION"
	ActionDownload             = "DOWNLOAD"
	ActionUpdateACL            = "UPDATE_ACL"
	ActionUpdateRetention      = "UPDATE_RETENTION"
	ActionDelete               = "DELETE"
	ActionSoftDeleteExpiration = "SOFT_DELETE_EXPIRATION"
	ActionHardDeleteExpiration = "HARD_DELETE_EXPIRATION"
)

// AuditEntry is an append-only record of an action taken on a document.
// DocumentID is a weak reference: entries outlive the document they describe.
type AuditEntry struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	TenantID   string         `json:"tenant_id"`
	Action     string         `json:"action"`
	ActorID    string         `json:"actor_id"`
	IP         string         `json:"ip,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
