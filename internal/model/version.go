package model

import "time"

// Version is an immutable snapshot of a document's content. Versions are
// appended, never edited, and are removed together with their document.
type Version struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"document_id"`
	Number      int       `json:"version"`
	StorageKey  string    `json:"storage_key"`
	ContentHash string    `json:"content_hash"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	Comment     string    `json:"comment,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// VersionStatus tags an entry of a version history listing.
type VersionStatus string

const (
	VersionCurrent  VersionStatus = "CURRENT"
	VersionArchived VersionStatus = "ARCHIVED"
)

// VersionDescriptor is one entry of a document's version history view.
type VersionDescriptor struct {
	Version     int           `json:"version"`
	DocumentID  string        `json:"document_id"`
	Author      string        `json:"author"`
	StorageKey  string        `json:"storage_key,omitempty"`
	ContentHash string        `json:"content_hash,omitempty"`
	MimeType    string        `json:"mime_type,omitempty"`
	CreatedAt   *time.Time    `json:"created_at,omitempty"`
	Status      VersionStatus `json:"status"`
}
