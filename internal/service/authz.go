package service

import (
	"context"
	"fmt"

	"github.com/taskdesk/taskdesk/internal/domain"
	"github.com/taskdesk/taskdesk/internal/domain/security"
	"github.com/taskdesk/taskdesk/internal/domain/workbasket"
	"github.com/taskdesk/taskdesk/internal/port/database"
	"github.com/taskdesk/taskdesk/internal/query"
)

// Authorizer is the authorization guard. It resolves a caller's effective
// permission set on a workbasket from the workbasket's access items and
// checks it against the permissions an operation requires.
//
// The guard is stateless per call and has no side effects. Administrators
// bypass workbasket-scoped checks entirely; they remain subject to the
// task state machine's preconditions.
type Authorizer struct {
	store database.Store
}

// NewAuthorizer creates an Authorizer backed by the given store.
func NewAuthorizer(store database.Store) *Authorizer {
	return &Authorizer{store: store}
}

// EffectivePermissions resolves the caller's effective permission set on the
// workbasket: the union of grants to the caller's user id and all groups.
func (a *Authorizer) EffectivePermissions(ctx context.Context, p security.Principal, workbasketID string) (workbasket.PermissionSet, error) {
	items, err := a.store.ListAccessItems(ctx, workbasketID)
	if err != nil {
		return 0, fmt.Errorf("list access items for %s: %w", workbasketID, err)
	}
	return workbasket.EffectivePermissions(p, items), nil
}

// CheckPermission verifies that the caller holds every required permission
// on the workbasket. It returns domain.ErrNotAuthorized when any is missing.
func (a *Authorizer) CheckPermission(ctx context.Context, p security.Principal, workbasketID string, required ...workbasket.Permission) error {
	if p.IsAdmin() {
		return nil
	}
	effective, err := a.EffectivePermissions(ctx, p, workbasketID)
	if err != nil {
		return err
	}
	if !effective.HasAll(required...) {
		return fmt.Errorf("caller %q lacks %s on workbasket %s: %w",
			p.UserID, workbasket.NewPermissionSet(required...), workbasketID, domain.ErrNotAuthorized)
	}
	return nil
}

// RequireRole verifies that the caller holds at least one of the given
// system roles. Admins pass every role check.
func (a *Authorizer) RequireRole(p security.Principal, roles ...security.Role) error {
	if p.IsAdmin() {
		return nil
	}
	for _, r := range roles {
		if p.HasRole(r) {
			return nil
		}
	}
	return fmt.Errorf("caller %q lacks required role: %w", p.UserID, domain.ErrNotAuthorized)
}

// AccessFilterFor builds the implicit query predicate restricting results to
// workbaskets the caller may read. Administrators get an unrestricted filter.
func (a *Authorizer) AccessFilterFor(p security.Principal) query.AccessFilter {
	if p.IsAdmin() {
		return query.AccessFilter{}
	}
	ids := p.AccessIDs()
	if ids == nil {
		// a principal with no identity reads nothing, not everything
		ids = []string{}
	}
	return query.AccessFilter{AccessIDs: ids}
}
