package model

import "time"

// DisposalMode decides what the retention sweeper does once a policy expires.
type DisposalMode string

const (
	DisposalSoft DisposalMode = "SOFT"
	DisposalHard DisposalMode = "HARD"
)

// Taxonomy is a free-form classification. Values are not validated against any catalog.
type Taxonomy struct {
	Domain   string `json:"domain"`
	Category string `json:"category"`
	DocType  string `json:"doc_type"`
}

// ACL lists who may act on a document.
type ACL struct {
	Owners   []string `json:"owners"`
	Readers  []string `json:"readers"`
	Updaters []string `json:"updaters"`
	Roles    []string `json:"roles"`
}

// ACLPatch is a partial ACL update. A nil field means "leave unchanged";
// a non-nil empty slice clears the list.
type ACLPatch struct {
	Owners   *[]string `json:"owners,omitempty"`
	Readers  *[]string `json:"readers,omitempty"`
	Updaters *[]string `json:"updaters,omitempty"`
	Roles    *[]string `json:"roles,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ACLPatch) IsEmpty() bool {
	return p.Owners == nil && p.Readers == nil && p.Updaters == nil && p.Roles == nil
}

// Apply returns acl with the patch applied.
func (p ACLPatch) Apply(acl ACL) ACL {
	if p.Owners != nil {
		acl.Owners = *p.Owners
	}
	if p.Readers != nil {
		acl.Readers = *p.Readers
	}
	if p.Updaters != nil {
		acl.Updaters = *p.Updaters
	}
	if p.Roles != nil {
		acl.Roles = *p.Roles
	}
	return acl
}

// Retention is the policy currently attached to a document. DeleteAt is
// denormalized from PolicyID and the retention period at attach time.
type Retention struct {
	PolicyID string       `json:"policy_id"`
	DeleteAt time.Time    `json:"delete_at"`
	Mode     DisposalMode `json:"mode"`
}

// Document is the tenant-scoped entity whose lifecycle is managed.
// This is a pure domain model with no database-specific dependencies or tags.
type Document struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenant_id"`
	ProcessID      string     `json:"process_id,omitempty"`
	Taxonomy       Taxonomy   `json:"taxonomy"`
	CurrentVersion int        `json:"current_version"`
	ACL            ACL        `json:"acl"`
	Retention      *Retention `json:"retention,omitempty"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsDeleted reports whether the document carries a soft-delete marker.
func (d *Document) IsDeleted() bool {
	return d.DeletedAt != nil
}
