package model

import "time"

// Artifact is a transient export rendered for a download link. Rows outlive
// process restarts so the janitor can reclaim expired objects.
type Artifact struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	TenantID   string    `json:"tenant_id"`
	Version    int       `json:"version"`
	ObjectKey  string    `json:"object_key"`
	FileName   string    `json:"file_name"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Expired reports whether the artifact is past its expiry at now.
func (a *Artifact) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}
