package policy

import (
	"testing"

	"github.com/tidewater-dev/crewdeck/internal/models"
)

var (
	admin  = Actor{ID: "admin-1", Role: models.RoleAdmin}
	pm     = Actor{ID: "pm-1", Role: models.RoleProjectManager}
	tm     = Actor{ID: "tm-1", Role: models.RoleTeamMember}
	client = Actor{ID: "client-1", Role: models.RoleClient}
)

func TestProjectListScope(t *testing.T) {
	tests := []struct {
		role models.Role
		want ListScope
	}{
		{models.RoleAdmin, ScopeAll},
		{models.RoleProjectManager, ScopeOwnedOrManaged},
		{models.RoleTeamMember, ScopeAssigned},
		{models.RoleClient, ScopeOwned},
		{models.Role("bogus"), ScopeNone},
		{models.Role(""), ScopeNone},
	}
	for _, tt := range tests {
		if got := ProjectListScope(tt.role); got != tt.want {
			t.Errorf("ProjectListScope(%q) = %v, want %v", tt.role, got, tt.want)
		}
	}
}

func TestCanViewProject(t *testing.T) {
	owned := &models.Project{ID: "p1", OwnerID: "pm-1"}
	managed := &models.Project{ID: "p2", OwnerID: "client-1", ManagerID: "pm-1"}
	foreign := &models.Project{ID: "p3", OwnerID: "client-2"}

	tests := []struct {
		name        string
		actor       Actor
		project     *models.Project
		hasAssigned bool
		want        bool
	}{
		{"admin sees anything", admin, foreign, false, true},
		{"manager sees owned", pm, owned, false, true},
		{"manager sees managed", pm, managed, false, true},
		{"manager blocked elsewhere", pm, foreign, false, false},
		{"team member needs an assigned task", tm, foreign, true, true},
		{"team member without task blocked", tm, owned, false, false},
		{"client sees own project", client, managed, false, true},
		{"client blocked elsewhere", client, foreign, false, false},
		{"unknown role blocked", Actor{ID: "x", Role: "bogus"}, owned, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanViewProject(tt.actor, tt.project, tt.hasAssigned); got != tt.want {
				t.Errorf("CanViewProject = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanViewTask(t *testing.T) {
	project := &models.Project{ID: "p1", OwnerID: "client-1", ManagerID: "pm-1"}
	assigned := &models.Task{ID: "t1", ProjectID: "p1", AssignedTo: "tm-1"}
	other := &models.Task{ID: "t2", ProjectID: "p1", AssignedTo: "tm-2"}

	if !CanViewTask(tm, assigned, project) {
		t.Error("team member should see their assigned task")
	}
	if CanViewTask(tm, other, project) {
		t.Error("team member should not see another member's task")
	}
	if !CanViewTask(client, other, project) {
		t.Error("client should see tasks in their own project")
	}
	if !CanViewTask(pm, other, project) {
		t.Error("manager should see tasks in a project they manage")
	}
}

func TestCanMutateProject(t *testing.T) {
	owned := &models.Project{ID: "p1", OwnerID: "pm-1"}
	managed := &models.Project{ID: "p2", OwnerID: "client-1", ManagerID: "pm-1"}

	if !CanMutateProject(admin, managed, ActionDelete) {
		t.Error("admin should mutate any project")
	}
	if !CanMutateProject(pm, owned, ActionUpdate) || !CanMutateProject(pm, managed, ActionUpdate) {
		t.Error("manager should mutate owned and managed projects")
	}
	// Clients own projects but still cannot mutate them.
	if CanMutateProject(client, managed, ActionUpdate) {
		t.Error("client must not mutate even their own project")
	}
	if CanMutateProject(tm, owned, ActionUpdate) {
		t.Error("team member must not mutate projects")
	}
}

func TestCanMutateTask(t *testing.T) {
	project := &models.Project{ID: "p1", OwnerID: "client-1", ManagerID: "pm-1"}
	assigned := &models.Task{ID: "t1", AssignedTo: "tm-1", CreatorID: "pm-1"}
	created := &models.Task{ID: "t2", AssignedTo: "tm-2", CreatorID: "tm-1"}

	if !CanMutateTask(tm, assigned, project, ActionUpdate) {
		t.Error("assignee should update their task")
	}
	if CanMutateTask(tm, assigned, project, ActionDelete) {
		t.Error("assignee must not delete a task they did not create")
	}
	if !CanMutateTask(tm, created, project, ActionDelete) {
		t.Error("creator should delete their own task")
	}
	if CanMutateTask(client, assigned, project, ActionUpdate) {
		t.Error("client must not mutate tasks")
	}
	if !CanMutateTask(pm, assigned, project, ActionDelete) {
		t.Error("manager should delete tasks in a managed project")
	}
}

func TestCanMutateComment(t *testing.T) {
	comment := &models.Comment{ID: "c1", UserID: "tm-1"}

	if !CanMutateComment(tm, comment, "client-1", ActionUpdate) {
		t.Error("author should edit their comment")
	}
	if !CanMutateComment(admin, comment, "", ActionDelete) {
		t.Error("admin should delete any comment")
	}
	if !CanMutateComment(client, comment, "client-1", ActionDelete) {
		t.Error("project owner should delete comments in their project")
	}
	other := Actor{ID: "tm-2", Role: models.RoleTeamMember}
	if CanMutateComment(other, comment, "client-1", ActionUpdate) {
		t.Error("unrelated user must not edit the comment")
	}
}

func TestCanViewFile(t *testing.T) {
	project := &models.Project{ID: "p1", OwnerID: "client-1"}
	scoped := &models.File{ID: "f1", UserID: "tm-1", ProjectID: "p1"}
	unscoped := &models.File{ID: "f2", UserID: "tm-1"}

	if !CanViewFile(tm, unscoped, nil, false) {
		t.Error("uploader should see their unscoped file")
	}
	other := Actor{ID: "tm-2", Role: models.RoleTeamMember}
	if CanViewFile(other, unscoped, nil, false) {
		t.Error("unscoped files are private to the uploader")
	}
	if !CanViewFile(admin, unscoped, nil, false) {
		t.Error("admin should see unscoped files")
	}
	if !CanViewFile(client, scoped, project, false) {
		t.Error("project owner should see files in their project")
	}
}

func TestCanMutateNotification_NoAdminOverride(t *testing.T) {
	n := &models.Notification{ID: "n1", UserID: "tm-1"}

	if !CanMutateNotification(tm, n, ActionUpdate) {
		t.Error("recipient should mutate their notification")
	}
	if CanMutateNotification(admin, n, ActionDelete) {
		t.Error("admins must not touch other users' notifications")
	}
}
