package domain

import (
	"strings"
	"time"
)

// Role enumerates privilege levels attached to a user.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super-admin"
)

// ParseRole maps a stored or claimed role onto the closed set.
// Anything absent or unknown is least privilege.
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleSuperAdmin:
		return RoleSuperAdmin
	default:
		return RoleUser
	}
}

// Valid reports whether r is a member of the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Privileged is true for roles allowed to moderate.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// RoleSet is the set of roles a view requires.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from roles.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, role := range roles {
		set[role] = struct{}{}
	}
	return set
}

// Contains reports membership.
func (s RoleSet) Contains(r Role) bool {
	_, ok := s[r]
	return ok
}

var (
	// AnyRole admits every authenticated user.
	AnyRole = NewRoleSet(RoleUser, RoleAdmin, RoleSuperAdmin)
	// ModeratorRoles admits the administrative views.
	ModeratorRoles = NewRoleSet(RoleAdmin, RoleSuperAdmin)
	// SuperAdminRoles admits role management.
	SuperAdminRoles = NewRoleSet(RoleSuperAdmin)
)

// User is a registered member of the platform.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the resolved caller carried through a request.
type Identity struct {
	UserID string
	Role   Role
}
