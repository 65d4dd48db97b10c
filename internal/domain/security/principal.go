// Package security defines the caller principal used for authorization.
package security

import "strings"

// Role represents the system-level authorization role of a caller.
type Role string

const (
	// RoleAdmin bypasses all workbasket-scoped permission checks.
	RoleAdmin Role = "admin"
	// RoleTaskAdmin may run administrative task operations such as terminate.
	RoleTaskAdmin Role = "task-admin"
	// RoleUser is the default role; all access is governed by access items.
	RoleUser Role = "user"
)

// Principal identifies a caller: a user id plus the groups it belongs to.
// Principals are resolved once per request by the identity resolver and
// passed explicitly to every core operation; the core holds no ambient
// caller state.
type Principal struct {
	UserID string
	Groups []string
	Roles  []Role
}

// AccessIDs returns the caller's user id and all group ids, lowercased.
// Access item matching is case-insensitive, so all comparisons run on
// this normalized form.
func (p Principal) AccessIDs() []string {
	ids := make([]string, 0, len(p.Groups)+1)
	if p.UserID != "" {
		ids = append(ids, strings.ToLower(p.UserID))
	}
	for _, g := range p.Groups {
		ids = append(ids, strings.ToLower(g))
	}
	return ids
}

// HasRole reports whether the principal holds the given role.
func (p Principal) HasRole(r Role) bool {
	for _, have := range p.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}
