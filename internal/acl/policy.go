package acl

import "doclife/internal/auth"

// Operation names a lifecycle operation exposed at the boundary.
type Operation string

const (
	OpCreate          Operation = "create"
	OpList            Operation = "list"
	OpRead            Operation = "read"
	OpCreateVersion   Operation = "create_version"
	OpListVersions    Operation = "list_versions"
	OpContent         Operation = "content"
	OpUpdateACL       Operation = "update_acl"
	OpUpdateRetention Operation = "update_retention"
	OpDelete          Operation = "delete"
	OpAuditTrail      Operation = "audit_trail"
)

// RoutePolicy is the role allow-list per operation. An empty list means any
// authenticated principal.
var RoutePolicy = map[Operation][]auth.Role{
	OpCreate:          {auth.RoleAdmin},
	OpList:            nil,
	OpRead:            nil,
	OpCreateVersion:   {auth.RoleAdmin, auth.RoleUser},
	OpListVersions:    nil,
	OpContent:         nil,
	OpUpdateACL:       {auth.RoleAdmin},
	OpUpdateRetention: nil,
	OpDelete:          {auth.RoleAdmin},
	OpAuditTrail:      {auth.RoleAdmin},
}

// RolesFor returns the roles allowed for op.
func RolesFor(op Operation) []auth.Role {
	return RoutePolicy[op]
}

// Permits reports whether p may invoke op according to RoutePolicy.
func Permits(op Operation, p auth.Principal) bool {
	roles := RolesFor(op)
	if len(roles) == 0 {
		return p.TenantID != ""
	}
	return p.HasRole(roles...)
}
