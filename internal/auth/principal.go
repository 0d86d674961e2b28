// Package auth carries the authenticated principal through a request.
//
// The principal is resolved once at the HTTP boundary and travels in the
// request context; nothing here is process-wide mutable state.
package auth

import (
	"context"
	"errors"
	"strings"
)

// Role is the coarse capability presented by a caller.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleUser   Role = "USER"
	RoleSystem Role = "SYSTEM"
)

// SystemActorID identifies audit entries written by the retention sweeper.
const SystemActorID = "SYSTEM_RETENTION_SWEEPER"

// ErrNoPrincipal is returned when a context carries no principal.
var ErrNoPrincipal = errors.New("no authenticated principal in context")

// Principal is the caller identity trusted by the core.
type Principal struct {
	Subject  string `json:"sub"`
	Role     Role   `json:"role"`
	TenantID string `json:"tenant_id"`
}

// System is the privileged internal actor used by background processes.
var System = Principal{Subject: SystemActorID, Role: RoleSystem}

// ParseRole normalises a textual role. Unknown roles are rejected.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleUser:
		return r, nil
	default:
		return "", errors.New("unknown role: " + s)
	}
}

// HasRole reports whether the principal holds one of roles.
func (p Principal) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// MustPrincipal is PrincipalFromContext returning ErrNoPrincipal when absent.
func MustPrincipal(ctx context.Context) (Principal, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return Principal{}, ErrNoPrincipal
	}
	return p, nil
}
