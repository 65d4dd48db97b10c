package workbasket

import (
	"fmt"
	"strings"

	"github.com/taskdesk/taskdesk/internal/domain"
)

// Permission is one named grant on a workbasket.
type Permission uint8

const (
	PermRead Permission = iota
	PermOpen
	PermAppend
	PermTransfer
	PermDistribute
	PermCustom1
	PermCustom2
	PermCustom3
	PermCustom4
	PermCustom5
	PermCustom6
	PermCustom7
	PermCustom8
	PermCustom9
	PermCustom10
	PermCustom11
	PermCustom12

	numPermissions = iota
)

var permissionNames = [numPermissions]string{
	"READ", "OPEN", "APPEND", "TRANSFER", "DISTRIBUTE",
	"CUSTOM_1", "CUSTOM_2", "CUSTOM_3", "CUSTOM_4", "CUSTOM_5", "CUSTOM_6",
	"CUSTOM_7", "CUSTOM_8", "CUSTOM_9", "CUSTOM_10", "CUSTOM_11", "CUSTOM_12",
}

// String returns the canonical upper-case name of the permission.
func (p Permission) String() string {
	if int(p) >= numPermissions {
		return fmt.Sprintf("PERMISSION(%d)", int(p))
	}
	return permissionNames[p]
}

// ParsePermission converts a permission name to a Permission.
// Matching is case-insensitive.
func ParsePermission(name string) (Permission, error) {
	upper := strings.ToUpper(name)
	for i, n := range permissionNames {
		if n == upper {
			return Permission(i), nil
		}
	}
	return 0, fmt.Errorf("permission %q: %w", name, domain.ErrInvalidArgument)
}

// PermissionSet is a bitset over all named permissions. The zero value
// grants nothing.
type PermissionSet uint32

// NewPermissionSet builds a set containing the given permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	var s PermissionSet
	for _, p := range perms {
		s = s.With(p)
	}
	return s
}

// With returns the set extended by p.
func (s PermissionSet) With(p Permission) PermissionSet {
	return s | 1<<p
}

// Without returns the set with p removed.
func (s PermissionSet) Without(p Permission) PermissionSet {
	return s &^ (1 << p)
}

// Has reports whether p is in the set.
func (s PermissionSet) Has(p Permission) bool {
	return s&(1<<p) != 0
}

// HasAll reports whether every given permission is in the set.
func (s PermissionSet) HasAll(perms ...Permission) bool {
	for _, p := range perms {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Union returns the union of both sets.
func (s PermissionSet) Union(other PermissionSet) PermissionSet {
	return s | other
}

// IsEmpty reports whether the set grants nothing.
func (s PermissionSet) IsEmpty() bool {
	return s == 0
}

// Permissions lists the members of the set in declaration order.
func (s PermissionSet) Permissions() []Permission {
	var perms []Permission
	for p := Permission(0); p < numPermissions; p++ {
		if s.Has(p) {
			perms = append(perms, p)
		}
	}
	return perms
}

// String renders the set as a comma-separated list of permission names.
func (s PermissionSet) String() string {
	names := make([]string, 0, numPermissions)
	for _, p := range s.Permissions() {
		names = append(names, p.String())
	}
	return strings.Join(names, ",")
}
