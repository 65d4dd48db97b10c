package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/taskdesk/taskdesk/internal/config"
	"github.com/taskdesk/taskdesk/internal/domain"
	"github.com/taskdesk/taskdesk/internal/domain/security"
)

func TestPrincipalRoleDerivation(t *testing.T) {
	r := NewResolver(config.Security{
		AdminAccessIDs:     []string{"Ops-Admins"},
		TaskAdminAccessIDs: []string{"dispatchers"},
	})

	ctx := WithCaller(context.Background(), "Alice", []string{"ops-admins", "team_a"})
	p, err := r.Principal(ctx)
	if err != nil {
		t.Fatalf("Principal: %v", err)
	}

	if p.UserID != "Alice" {
		t.Errorf("user id = %q, want Alice", p.UserID)
	}
	if !p.IsAdmin() {
		t.Error("expected admin role via case-insensitive group match")
	}
	if p.HasRole(security.RoleTaskAdmin) {
		t.Error("unexpected task-admin role")
	}
	if !p.HasRole(security.RoleUser) {
		t.Error("every principal should hold the user role")
	}
}

func TestPrincipalTaskAdminByUserID(t *testing.T) {
	r := NewResolver(config.Security{TaskAdminAccessIDs: []string{"bob"}})

	ctx := WithCaller(context.Background(), "BOB", nil)
	p, err := r.Principal(ctx)
	if err != nil {
		t.Fatalf("Principal: %v", err)
	}
	if !p.HasRole(security.RoleTaskAdmin) {
		t.Error("expected task-admin role via user id match")
	}
	if p.IsAdmin() {
		t.Error("unexpected admin role")
	}
}

func TestPrincipalMissingCaller(t *testing.T) {
	r := NewResolver(config.Security{})

	_, err := r.Principal(context.Background())
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
