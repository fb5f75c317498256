package models

import (
	"time"
)

// Role represents a user's permission level.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleProjectManager Role = "project_manager"
	RoleTeamMember     Role = "team_member"
	RoleClient         Role = "client"
)

// User represents a system user with RBAC.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser creates a new User with initialized timestamps.
func NewUser(name, email string, role Role) *User {
	now := time.Now()
	return &User{
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsAdmin returns true if user has admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ParseRole converts a string to Role. Unknown strings map to the empty
// Role, which every policy rule denies.
func ParseRole(s string) Role {
	switch s {
	case "admin":
		return RoleAdmin
	case "project_manager":
		return RoleProjectManager
	case "team_member":
		return RoleTeamMember
	case "client":
		return RoleClient
	default:
		return ""
	}
}

// ValidRole returns true for one of the four known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleProjectManager, RoleTeamMember, RoleClient:
		return true
	}
	return false
}
