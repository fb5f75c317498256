package policy

import (
	"github.com/tidewater-dev/crewdeck/internal/models"
)

// CanMutateProject decides update/delete on a project. Clients and team
// members only read projects; they never mutate them.
func CanMutateProject(actor Actor, p *models.Project, _ Action) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleProjectManager:
		return managesProject(actor, p)
	default:
		return false
	}
}

// CanMutateTask decides update/delete on a task. Team members may update
// tasks assigned to them or tasks they created, but may delete only their
// own tasks.
func CanMutateTask(actor Actor, task *models.Task, project *models.Project, action Action) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleProjectManager:
		return managesProject(actor, project)
	case models.RoleTeamMember:
		if action == ActionDelete {
			return task.CreatorID == actor.ID
		}
		return task.AssignedTo == actor.ID || task.CreatorID == actor.ID
	default:
		return false
	}
}

// CanMutateRisk decides update/delete on a risk via its owning project.
func CanMutateRisk(actor Actor, project *models.Project, action Action) bool {
	return CanMutateProject(actor, project, action)
}

// CanMutateComment decides update/delete on a comment: the author, an
// admin, or the owner of the comment's task's project.
func CanMutateComment(actor Actor, comment *models.Comment, projectOwnerID string, _ Action) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	return comment.UserID == actor.ID || projectOwnerID == actor.ID
}

// CanMutateFile decides delete on a file: the uploader, an admin, or the
// owner of the project the file is attached to.
func CanMutateFile(actor Actor, file *models.File, projectOwnerID string, _ Action) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	if file.UserID == actor.ID {
		return true
	}
	return file.ProjectID != "" && projectOwnerID == actor.ID
}

// CanMutateNotification decides mutation of a notification: the recipient
// only. There is no admin override.
func CanMutateNotification(actor Actor, n *models.Notification, _ Action) bool {
	return n.UserID == actor.ID
}
