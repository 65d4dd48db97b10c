// Package identity implements the principal resolver port. Callers are
// carried on the context; roles are derived from the configured admin and
// task-admin access id lists.
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/taskdesk/taskdesk/internal/config"
	"github.com/taskdesk/taskdesk/internal/domain"
	"github.com/taskdesk/taskdesk/internal/domain/security"
)

type callerKey struct{}

// caller is the raw identity placed on the context by the transport layer.
type caller struct {
	userID string
	groups []string
}

// WithCaller returns a context carrying the caller's user id and groups.
func WithCaller(ctx context.Context, userID string, groups []string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller{userID: userID, groups: groups})
}

// Resolver derives principals from context callers and the security config.
type Resolver struct {
	admins     map[string]bool
	taskAdmins map[string]bool
}

// NewResolver builds a resolver from the security configuration. Access id
// matching is case-insensitive.
func NewResolver(sec config.Security) *Resolver {
	return &Resolver{
		admins:     toSet(sec.AdminAccessIDs),
		taskAdmins: toSet(sec.TaskAdminAccessIDs),
	}
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[strings.ToLower(strings.TrimSpace(id))] = true
	}
	return set
}

// Principal resolves the context caller into a principal with roles.
// A context without a caller is an invalid request.
func (r *Resolver) Principal(ctx context.Context) (security.Principal, error) {
	c, ok := ctx.Value(callerKey{}).(caller)
	if !ok || c.userID == "" {
		return security.Principal{}, fmt.Errorf("no caller on context: %w", domain.ErrInvalidRequest)
	}

	p := security.Principal{
		UserID: c.userID,
		Groups: c.groups,
		Roles:  []security.Role{security.RoleUser},
	}
	for _, id := range p.AccessIDs() {
		if r.admins[id] {
			p.Roles = append(p.Roles, security.RoleAdmin)
			break
		}
	}
	for _, id := range p.AccessIDs() {
		if r.taskAdmins[id] {
			p.Roles = append(p.Roles, security.RoleTaskAdmin)
			break
		}
	}
	return p, nil
}

// Static returns a resolver-compatible principal directly; used by tests
// and local tooling where no transport supplies a caller.
func Static(userID string, groups []string, roles ...security.Role) security.Principal {
	if len(roles) == 0 {
		roles = []security.Role{security.RoleUser}
	}
	return security.Principal{UserID: userID, Groups: groups, Roles: roles}
}
