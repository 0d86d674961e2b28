// Package acl evaluates document access. Evaluation is pure: it only looks at
// the document's ACL, its tenant and the presented principal.
package acl

import (
	"doclife/internal/auth"
	"doclife/internal/model"
)

// Permission is the kind of access being requested.
type Permission string

const (
	PermRead   Permission = "read"
	PermUpdate Permission = "update"
	PermManage Permission = "manage"
)

// Decision is the outcome of an evaluation together with the rule that decided it.
type Decision struct {
	Allowed bool
	Reason  string
}

// Evaluate decides whether p may exercise perm on a document owned by tenantID.
//
// Rules, first match wins:
//   - the system principal is always allowed
//   - another tenant is always denied
//   - owners may do anything
//   - ADMIN may do anything inside its tenant
//   - updaters may read and update, readers may read
//   - a role listed in the ACL may read and update
//   - an ACL with no entries at all defers to the route's role policy
func Evaluate(list model.ACL, tenantID string, p auth.Principal, perm Permission) Decision {
	if p.Role == auth.RoleSystem {
		return Decision{Allowed: true, Reason: "system"}
	}
	if p.TenantID == "" || p.TenantID != tenantID {
		return Decision{Reason: "tenant mismatch"}
	}
	if contains(list.Owners, p.Subject) {
		return Decision{Allowed: true, Reason: "owner"}
	}
	if p.Role == auth.RoleAdmin {
		return Decision{Allowed: true, Reason: "admin"}
	}
	if perm == PermManage {
		return Decision{Reason: "manage requires owner or admin"}
	}
	if contains(list.Updaters, p.Subject) {
		return Decision{Allowed: true, Reason: "updater"}
	}
	if contains(list.Roles, string(p.Role)) {
		return Decision{Allowed: true, Reason: "role"}
	}
	if perm == PermRead && contains(list.Readers, p.Subject) {
		return Decision{Allowed: true, Reason: "reader"}
	}
	if isEmpty(list) {
		return Decision{Allowed: true, Reason: "open acl"}
	}
	return Decision{Reason: "not listed"}
}

func contains(list []string, v string) bool {
	if v == "" {
		return false
	}
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func isEmpty(list model.ACL) bool {
	return len(list.Owners) == 0 && len(list.Readers) == 0 && len(list.Updaters) == 0 && len(list.Roles) == 0
}
