// Package identity defines the principal resolver port (interface).
package identity

import (
	"context"

	"github.com/taskdesk/taskdesk/internal/domain/security"
)

// Resolver resolves the ambient caller context into a principal: the
// caller's user id, group memberships and system roles. The core treats
// the resolution as an opaque read; LDAP, JWT claims or test fixtures all
// live behind this interface.
type Resolver interface {
	Principal(ctx context.Context) (security.Principal, error)
}
