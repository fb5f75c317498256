// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"

	"github.com/tidewater-dev/crewdeck/internal/models"
)

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error
	// EnsureAdminUser creates a default admin if no users exist.
	EnsureAdminUser() error

	// Repository accessors
	Users() UserRepository
	Projects() ProjectRepository
	Tasks() TaskRepository
	Comments() CommentRepository
	Files() FileRepository
	Risks() RiskRepository
	Notifications() NotificationRepository
	Tokens() TokenRepository
}

// UserRepository defines operations for user management.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.User, error)
	ListByRole(ctx context.Context, role models.Role) ([]*models.User, error)
	Count(ctx context.Context) (int64, error)
}

// ProjectRepository defines operations for project management. The scoped
// listing methods back the per-role visibility filter.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id string) (*models.Project, error)
	GetByName(ctx context.Context, name string) (*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Project, error)
	// ListOwnedOrManaged returns projects the user created or manages.
	ListOwnedOrManaged(ctx context.Context, userID string) ([]*models.Project, error)
	// ListWithAssignee returns projects containing at least one task
	// assigned to the user.
	ListWithAssignee(ctx context.Context, userID string) ([]*models.Project, error)
	// ListOwned returns projects the user created.
	ListOwned(ctx context.Context, userID string) ([]*models.Project, error)
}

// TaskFilter narrows task listings.
type TaskFilter struct {
	ProjectID  string   // single project
	ProjectIDs []string // visibility scope; ignored when empty
	AssignedTo string
	Limit      int
}

// TrendPoint is a per-day completed-task count.
type TrendPoint struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// TaskRepository defines operations for task management.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id string) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter TaskFilter) ([]*models.Task, error)
	ListByProject(ctx context.Context, projectID string) ([]*models.Task, error)
	// HasAssignee reports whether the project contains a task assigned to
	// the user.
	HasAssignee(ctx context.Context, projectID, userID string) (bool, error)
	// AssigneesForProject returns the distinct user IDs assigned to tasks
	// in the project.
	AssigneesForProject(ctx context.Context, projectID string) ([]string, error)
	// CompletionTrend returns per-day completed-task counts for a project.
	CompletionTrend(ctx context.Context, projectID string) ([]TrendPoint, error)
}

// CommentRepository defines operations for task comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id string) error
	// ListByTask returns all comments on a task, oldest first; the caller
	// nests replies under their parents.
	ListByTask(ctx context.Context, taskID string) ([]*models.Comment, error)
}

// FileFilter narrows file listings.
type FileFilter struct {
	TaskID    string
	ProjectID string
}

// FileRepository defines operations for file attachment records.
type FileRepository interface {
	Create(ctx context.Context, file *models.File) error
	GetByID(ctx context.Context, id string) (*models.File, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter FileFilter) ([]*models.File, error)
}

// RiskRepository defines operations for risk tracking.
type RiskRepository interface {
	Create(ctx context.Context, risk *models.Risk) error
	GetByID(ctx context.Context, id string) (*models.Risk, error)
	Update(ctx context.Context, risk *models.Risk) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Risk, error)
	ListByProject(ctx context.Context, projectID string) ([]*models.Risk, error)
	// ListByProjects returns risks for the given visibility scope.
	ListByProjects(ctx context.Context, projectIDs []string) ([]*models.Risk, error)
}

// NotificationRepository defines operations for notification rows.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	ListForUser(ctx context.Context, userID string, unreadOnly bool) ([]*models.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, id string) error
}

// TokenRepository defines operations for refresh token management.
type TokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id string) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
