// Package policy centralizes every authorization decision: which resources
// a role may list or read (visibility) and which it may modify (mutation).
// Handlers never compare role strings directly; they ask this package.
//
// Rules are role-dispatched and evaluated first match wins. A project
// manager's project is one they created (OwnerID) or one they are assigned
// to manage (ManagerID) -- the same rule everywhere, read and write side.
package policy

import (
	"github.com/tidewater-dev/crewdeck/internal/models"
)

// Actor is the request-scoped identity policy decisions are made against.
// It is populated from the authenticated session, never from ambient state.
type Actor struct {
	ID   string
	Name string
	Role models.Role
}

// Action is a mutating operation on a resource.
type Action string

const (
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ListScope describes which subset of projects (and, transitively, their
// tasks and risks) a listing query may return for a role.
type ListScope int

const (
	// ScopeNone denies the listing entirely (unrecognized role).
	ScopeNone ListScope = iota
	// ScopeAll returns everything (admin).
	ScopeAll
	// ScopeOwnedOrManaged returns projects the actor created or manages
	// (project manager).
	ScopeOwnedOrManaged
	// ScopeAssigned returns projects containing at least one task assigned
	// to the actor (team member); task listings return only assigned tasks.
	ScopeAssigned
	// ScopeOwned returns projects the actor created (client).
	ScopeOwned
)

// ProjectListScope returns the listing scope for a role. The same table
// drives project, task and risk listings so the per-role predicate cannot
// drift between resources.
func ProjectListScope(role models.Role) ListScope {
	switch role {
	case models.RoleAdmin:
		return ScopeAll
	case models.RoleProjectManager:
		return ScopeOwnedOrManaged
	case models.RoleTeamMember:
		return ScopeAssigned
	case models.RoleClient:
		return ScopeOwned
	default:
		return ScopeNone
	}
}

// managesProject reports whether the actor created or manages the project.
func managesProject(actor Actor, p *models.Project) bool {
	return p.OwnerID == actor.ID || (p.ManagerID != "" && p.ManagerID == actor.ID)
}
