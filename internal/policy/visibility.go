package policy

import (
	"github.com/tidewater-dev/crewdeck/internal/models"
)

// CanViewProject decides direct access to a single project.
// hasAssignedTask reports whether at least one task in the project is
// assigned to the actor; the caller supplies that fact from storage.
func CanViewProject(actor Actor, p *models.Project, hasAssignedTask bool) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleProjectManager:
		return managesProject(actor, p)
	case models.RoleTeamMember:
		return hasAssignedTask
	case models.RoleClient:
		return p.OwnerID == actor.ID
	default:
		return false
	}
}

// CanViewTask decides direct access to a single task. project is the
// task's owning project.
func CanViewTask(actor Actor, task *models.Task, project *models.Project) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleProjectManager:
		return managesProject(actor, project)
	case models.RoleTeamMember:
		return task.AssignedTo == actor.ID
	case models.RoleClient:
		return project.OwnerID == actor.ID
	default:
		return false
	}
}

// CanViewRisk decides direct access to a single risk via its owning project.
func CanViewRisk(actor Actor, project *models.Project, hasAssignedTask bool) bool {
	return CanViewProject(actor, project, hasAssignedTask)
}

// CanViewFile decides direct access to a file record. ownerProject is the
// project the file (or its task) belongs to; nil when the file is unscoped,
// in which case only the uploader and admins may see it.
func CanViewFile(actor Actor, file *models.File, ownerProject *models.Project, hasAssignedTask bool) bool {
	if actor.Role == models.RoleAdmin || file.UserID == actor.ID {
		return true
	}
	if ownerProject == nil {
		return false
	}
	return CanViewProject(actor, ownerProject, hasAssignedTask)
}
