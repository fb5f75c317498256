package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tidewater-dev/crewdeck/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	path := filepath.Join(t.TempDir(), "crewdeck_test.db")
	store := NewSQLiteStorage(path)
	if err := store.Open(); err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func createTestUser(t *testing.T, store *SQLiteStorage, name string, role models.Role) *models.User {
	t.Helper()
	user := models.NewUser(name, name+"@example.com", role)
	user.ID = uuid.New().String()
	user.PasswordHash = "x"
	if err := store.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

func createTestProject(t *testing.T, store *SQLiteStorage, name, ownerID string) *models.Project {
	t.Helper()
	project := models.NewProject(name, "", ownerID, models.ProjectPlanning)
	project.ID = uuid.New().String()
	if err := store.Projects().Create(context.Background(), project); err != nil {
		t.Fatalf("create project %s: %v", name, err)
	}
	return project
}

func createTestTask(t *testing.T, store *SQLiteStorage, title, projectID, creatorID, assignedTo string) *models.Task {
	t.Helper()
	task := models.NewTask(title, projectID, creatorID)
	task.ID = uuid.New().String()
	task.AssignedTo = assignedTo
	if err := store.Tasks().Create(context.Background(), task); err != nil {
		t.Fatalf("create task %s: %v", title, err)
	}
	return task
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStorage(t)
	if err := store.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestUserCRUD(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	user := createTestUser(t, store, "alice", models.RoleProjectManager)

	got, err := store.Users().GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got == nil || got.ID != user.ID {
		t.Fatalf("get by email returned %+v, want id %s", got, user.ID)
	}
	if got.Role != models.RoleProjectManager {
		t.Errorf("role = %s, want project_manager", got.Role)
	}

	got.Name = "alice2"
	got.UpdatedAt = time.Now()
	if err := store.Users().Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	admins, err := store.Users().ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		t.Fatalf("list by role: %v", err)
	}
	if len(admins) != 0 {
		t.Errorf("expected no admins, got %d", len(admins))
	}

	if err := store.Users().Delete(ctx, user.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	gone, err := store.Users().GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get deleted: %v", err)
	}
	if gone != nil {
		t.Error("user still present after delete")
	}
}

func TestProjectBudgetRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	owner := createTestUser(t, store, "owner", models.RoleProjectManager)
	project := models.NewProject("budgeted", "", owner.ID, models.ProjectInProgress)
	project.ID = uuid.New().String()
	project.Budget = []models.BudgetItem{
		{Item: "hardware", Amount: 1200.50},
		{Item: "licenses", Amount: 300},
	}
	project.ActualExpenditure = 800.25

	if err := store.Projects().Create(ctx, project); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.Projects().GetByID(ctx, project.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Budget) != 2 || got.Budget[0].Item != "hardware" || got.Budget[0].Amount != 1200.50 {
		t.Errorf("budget round trip mismatch: %+v", got.Budget)
	}
	if got.AllocatedBudget() != 1500.50 {
		t.Errorf("allocated = %f, want 1500.50", got.AllocatedBudget())
	}
	if got.ActualExpenditure != 800.25 {
		t.Errorf("expenditure = %f, want 800.25", got.ActualExpenditure)
	}
}

func TestProjectDeleteCascadesToTasks(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	owner := createTestUser(t, store, "owner", models.RoleProjectManager)
	project := createTestProject(t, store, "doomed", owner.ID)
	task := createTestTask(t, store, "t1", project.ID, owner.ID, "")

	if err := store.Projects().Delete(ctx, project.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}

	got, err := store.Tasks().GetByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got != nil {
		t.Error("task survived project delete, cascade missing")
	}
}

func TestVisibilityScopedProjectQueries(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	owner := createTestUser(t, store, "owner", models.RoleProjectManager)
	manager := createTestUser(t, store, "manager", models.RoleProjectManager)
	member := createTestUser(t, store, "member", models.RoleTeamMember)

	p1 := createTestProject(t, store, "p1", owner.ID)
	p2 := createTestProject(t, store, "p2", owner.ID)
	p2.ManagerID = manager.ID
	p2.UpdatedAt = time.Now()
	if err := store.Projects().Update(ctx, p2); err != nil {
		t.Fatalf("assign manager: %v", err)
	}
	createTestTask(t, store, "t1", p1.ID, owner.ID, member.ID)

	managed, err := store.Projects().ListOwnedOrManaged(ctx, manager.ID)
	if err != nil {
		t.Fatalf("list managed: %v", err)
	}
	if len(managed) != 1 || managed[0].ID != p2.ID {
		t.Errorf("manager sees %d projects, want only p2", len(managed))
	}

	assigned, err := store.Projects().ListWithAssignee(ctx, member.ID)
	if err != nil {
		t.Fatalf("list with assignee: %v", err)
	}
	if len(assigned) != 1 || assigned[0].ID != p1.ID {
		t.Errorf("member sees %d projects, want only p1", len(assigned))
	}

	owned, err := store.Projects().ListOwned(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list owned: %v", err)
	}
	if len(owned) != 2 {
		t.Errorf("owner sees %d projects, want 2", len(owned))
	}
}

func TestTaskAssigneeHelpers(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	owner := createTestUser(t, store, "owner", models.RoleProjectManager)
	m1 := createTestUser(t, store, "m1", models.RoleTeamMember)
	m2 := createTestUser(t, store, "m2", models.RoleTeamMember)
	project := createTestProject(t, store, "p", owner.ID)

	createTestTask(t, store, "a", project.ID, owner.ID, m1.ID)
	createTestTask(t, store, "b", project.ID, owner.ID, m1.ID)
	createTestTask(t, store, "c", project.ID, owner.ID, m2.ID)
	createTestTask(t, store, "d", project.ID, owner.ID, "")

	has, err := store.Tasks().HasAssignee(ctx, project.ID, m1.ID)
	if err != nil {
		t.Fatalf("has assignee: %v", err)
	}
	if !has {
		t.Error("m1 should have an assigned task")
	}

	assignees, err := store.Tasks().AssigneesForProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("assignees: %v", err)
	}
	if len(assignees) != 2 {
		t.Errorf("got %d distinct assignees, want 2", len(assignees))
	}
}

func TestCompletionTrend(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	owner := createTestUser(t, store, "owner", models.RoleProjectManager)
	project := createTestProject(t, store, "p", owner.ID)

	task := createTestTask(t, store, "done", project.ID, owner.ID, "")
	task.SetStatus(models.TaskCompleted)
	task.UpdatedAt = time.Now()
	if err := store.Tasks().Update(ctx, task); err != nil {
		t.Fatalf("complete task: %v", err)
	}
	createTestTask(t, store, "open", project.ID, owner.ID, "")

	trend, err := store.Tasks().CompletionTrend(ctx, project.ID)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if len(trend) != 1 || trend[0].Count != 1 {
		t.Errorf("trend = %+v, want single point with count 1", trend)
	}
}

func TestNotificationMarkReadIdempotent(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	user := createTestUser(t, store, "recipient", models.RoleTeamMember)
	n := &models.Notification{
		ID:        uuid.New().String(),
		Type:      models.NotifyComment,
		Message:   "hello",
		UserID:    user.ID,
		CreatedAt: time.Now(),
	}
	if err := store.Notifications().Create(ctx, n); err != nil {
		t.Fatalf("create: %v", err)
	}

	count, err := store.Notifications().UnreadCount(ctx, user.ID)
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 1 {
		t.Fatalf("unread = %d, want 1", count)
	}

	if err := store.Notifications().MarkRead(ctx, n.ID); err != nil {
		t.Fatalf("first mark read: %v", err)
	}
	if err := store.Notifications().MarkRead(ctx, n.ID); err != nil {
		t.Fatalf("second mark read should succeed: %v", err)
	}

	got, err := store.Notifications().GetByID(ctx, n.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Read {
		t.Error("notification should be read")
	}
}

func TestRefreshTokenLifecycle(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	user := createTestUser(t, store, "tokenuser", models.RoleClient)
	token, plain, err := models.NewRefreshToken(user.ID, time.Hour)
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	if err := store.Tokens().Create(ctx, token); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.Tokens().GetByTokenHash(ctx, models.HashToken(plain))
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got == nil || !got.IsValid() {
		t.Fatal("token should be valid")
	}

	if err := store.Tokens().RevokeByTokenHash(ctx, models.HashToken(plain)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	got, err = store.Tokens().GetByTokenHash(ctx, models.HashToken(plain))
	if err != nil {
		t.Fatalf("lookup after revoke: %v", err)
	}
	if got.IsValid() {
		t.Error("revoked token should be invalid")
	}
}
