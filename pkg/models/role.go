// Package models defines the core domain models for the approval workflow engine.
package models

import "fmt"

// Role identifies an organizational role that can be required to sign off an
// approval step. The set is closed: adding a role is a source change, never
// a runtime string.
type Role string

const (
	RoleProjectManager Role = "project_manager"
	RoleFinance        Role = "finance"
	RoleCoordinator    Role = "coordinator"
	RoleDirector       Role = "director"
	RoleHR             Role = "hr"
	RoleProcurement    Role = "procurement"
)

// AllRoles returns every valid role.
func AllRoles() []Role {
	return []Role{
		RoleProjectManager,
		RoleFinance,
		RoleCoordinator,
		RoleDirector,
		RoleHR,
		RoleProcurement,
	}
}

// ParseRole converts a string into a Role, rejecting anything outside the
// closed enumeration.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleProjectManager, RoleFinance, RoleCoordinator, RoleDirector, RoleHR, RoleProcurement:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// Valid reports whether the role is a member of the closed enumeration.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))

	return err == nil
}
