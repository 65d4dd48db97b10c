package workbasket

import (
	"errors"
	"strings"
	"time"

	"github.com/taskdesk/taskdesk/internal/domain/security"
)

// AccessItem grants a permission set to one identity (user or group id) on
// one workbasket. At most one access item exists per (workbasket, access id)
// pair; access ids are stored and compared in lower case.
type AccessItem struct {
	ID           string        `json:"id"`
	WorkbasketID string        `json:"workbasket_id"`
	AccessID     string        `json:"access_id"`
	AccessName   string        `json:"access_name,omitempty"`
	Permissions  PermissionSet `json:"permissions"`
	Created      time.Time     `json:"created"`
	Modified     time.Time     `json:"modified"`
}

// NormalizeAccessID lowercases an access id for storage and comparison.
func NormalizeAccessID(accessID string) string {
	return strings.ToLower(strings.TrimSpace(accessID))
}

// Validate checks that the access item is well formed.
func (a *AccessItem) Validate() error {
	if a.WorkbasketID == "" {
		return errors.New("workbasket id is required")
	}
	if NormalizeAccessID(a.AccessID) == "" {
		return errors.New("access id is required")
	}
	return nil
}

// EffectivePermissions resolves the caller's effective permission set on a
// workbasket: the union of all permissions granted to the caller's own id
// and to every group the caller belongs to.
func EffectivePermissions(p security.Principal, items []AccessItem) PermissionSet {
	callerIDs := make(map[string]bool, len(p.Groups)+1)
	for _, id := range p.AccessIDs() {
		callerIDs[id] = true
	}

	var effective PermissionSet
	for _, item := range items {
		if callerIDs[NormalizeAccessID(item.AccessID)] {
			effective = effective.Union(item.Permissions)
		}
	}
	return effective
}
