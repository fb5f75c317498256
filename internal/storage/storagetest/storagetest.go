// Package storagetest provides an in-memory storage.Storage implementation
// for handler tests. Behavior mirrors the SQLite repositories closely enough
// for authorization and fan-out logic to be exercised without a database.
package storagetest

import (
	"context"
	"sort"
	"strings"

	"github.com/tidewater-dev/crewdeck/internal/models"
	"github.com/tidewater-dev/crewdeck/internal/storage"
)

// Store is an in-memory storage.Storage. The Err field, when set, is
// returned by every repository call to simulate storage failure.
type Store struct {
	UsersData         []*models.User
	ProjectsData      []*models.Project
	TasksData         []*models.Task
	CommentsData      []*models.Comment
	FilesData         []*models.File
	RisksData         []*models.Risk
	NotificationsData []*models.Notification
	TokensData        []*models.RefreshToken

	Err error
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

func (s *Store) Open() error            { return nil }
func (s *Store) Close() error           { return nil }
func (s *Store) Migrate() error         { return nil }
func (s *Store) EnsureAdminUser() error { return nil }

func (s *Store) Users() storage.UserRepository                 { return &userRepo{s} }
func (s *Store) Projects() storage.ProjectRepository           { return &projectRepo{s} }
func (s *Store) Tasks() storage.TaskRepository                 { return &taskRepo{s} }
func (s *Store) Comments() storage.CommentRepository           { return &commentRepo{s} }
func (s *Store) Files() storage.FileRepository                 { return &fileRepo{s} }
func (s *Store) Risks() storage.RiskRepository                 { return &riskRepo{s} }
func (s *Store) Notifications() storage.NotificationRepository { return &notificationRepo{s} }
func (s *Store) Tokens() storage.TokenRepository               { return &tokenRepo{s} }

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, u *models.User) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	r.s.UsersData = append(r.s.UsersData, u)
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	for _, u := range r.s.UsersData {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	for _, u := range r.s.UsersData {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, nil
}

func (r *userRepo) Update(_ context.Context, u *models.User) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	for i, existing := range r.s.UsersData {
		if existing.ID == u.ID {
			r.s.UsersData[i] = u
			return nil
		}
	}
	return nil
}

func (r *userRepo) Delete(_ context.Context, id string) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	for i, u := range r.s.UsersData {
		if u.ID == id {
			r.s.UsersData = append(r.s.UsersData[:i], r.s.UsersData[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *userRepo) List(_ context.Context) ([]*models.User, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	return r.s.UsersData, nil
}

func (r *userRepo) ListByRole(_ context.Context, role models.Role) ([]*models.User, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	var out []*models.User
	for _, u := range r.s.UsersData {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *userRepo) Count(_ context.Context) (int64, error) {
	if r.s.Err != nil {
		return 0, r.s.Err
	}
	return int64(len(r.s.UsersData)), nil
}

type projectRepo struct{ s *Store }

func (r *projectRepo) Create(_ context.Context, p *models.Project) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	r.s.ProjectsData = append(r.s.ProjectsData, p)
	return nil
}

func (r *projectRepo) GetByID(_ context.Context, id string) (*models.Project, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	for _, p := range r.s.ProjectsData {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (r *projectRepo) GetByName(_ context.Context, name string) (*models.Project, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	for _, p := range r.s.ProjectsData {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, nil
}

func (r *projectRepo) Update(_ context.Context, p *models.Project) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	for i, existing := range r.s.ProjectsData {
		if existing.ID == p.ID {
			r.s.ProjectsData[i] = p
			return nil
		}
	}
	return nil
}

func (r *projectRepo) Delete(_ context.Context, id string) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	for i, p := range r.s.ProjectsData {
		if p.ID == id {
			r.s.ProjectsData = append(r.s.ProjectsData[:i], r.s.ProjectsData[i+1:]...)
			break
		}
	}
	// cascade tasks, mirroring the schema's ON DELETE CASCADE
	var tasks []*models.Task
	for _, t := range r.s.TasksData {
		if t.ProjectID != id {
			tasks = append(tasks, t)
		}
	}
	r.s.TasksData = tasks
	return nil
}

func (r *projectRepo) List(_ context.Context) ([]*models.Project, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	return r.s.ProjectsData, nil
}

func (r *projectRepo) ListOwnedOrManaged(_ context.Context, userID string) ([]*models.Project, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	var out []*models.Project
	for _, p := range r.s.ProjectsData {
		if p.OwnerID == userID || p.ManagerID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *projectRepo) ListWithAssignee(ctx context.Context, userID string) ([]*models.Project, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	ids := map[string]bool{}
	for _, t := range r.s.TasksData {
		if t.AssignedTo == userID {
			ids[t.ProjectID] = true
		}
	}
	var out []*models.Project
	for _, p := range r.s.ProjectsData {
		if ids[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *projectRepo) ListOwned(_ context.Context, userID string) ([]*models.Project, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	var out []*models.Project
	for _, p := range r.s.ProjectsData {
		if p.OwnerID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

type taskRepo struct{ s *Store }

func (r *taskRepo) Create(_ context.Context, t *models.Task) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	r.s.TasksData = append(r.s.TasksData, t)
	return nil
}

func (r *taskRepo) GetByID(_ context.Context, id string) (*models.Task, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	for _, t := range r.s.TasksData {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, nil
}

func (r *taskRepo) Update(_ context.Context, t *models.Task) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	for i, existing := range r.s.TasksData {
		if existing.ID == t.ID {
			r.s.TasksData[i] = t
			return nil
		}
	}
	return nil
}

func (r *taskRepo) Delete(_ context.Context, id string) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	for i, t := range r.s.TasksData {
		if t.ID == id {
			r.s.TasksData = append(r.s.TasksData[:i], r.s.TasksData[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *taskRepo) List(_ context.Context, filter storage.TaskFilter) ([]*models.Task, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	scope := map[string]bool{}
	for _, id := range filter.ProjectIDs {
		scope[id] = true
	}
	var out []*models.Task
	for _, t := range r.s.TasksData {
		if filter.ProjectID != "" && t.ProjectID != filter.ProjectID {
			continue
		}
		if len(filter.ProjectIDs) > 0 && !scope[t.ProjectID] {
			continue
		}
		if filter.AssignedTo != "" && t.AssignedTo != filter.AssignedTo {
			continue
		}
		out = append(out, t)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *taskRepo) ListByProject(ctx context.Context, projectID string) ([]*models.Task, error) {
	return r.List(ctx, storage.TaskFilter{ProjectID: projectID})
}

func (r *taskRepo) HasAssignee(_ context.Context, projectID, userID string) (bool, error) {
	if r.s.Err != nil {
		return false, r.s.Err
	}
	for _, t := range r.s.TasksData {
		if t.ProjectID == projectID && t.AssignedTo == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *taskRepo) AssigneesForProject(_ context.Context, projectID string) ([]string, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	seen := map[string]bool{}
	var out []string
	for _, t := range r.s.TasksData {
		if t.ProjectID == projectID && t.AssignedTo != "" && !seen[t.AssignedTo] {
			seen[t.AssignedTo] = true
			out = append(out, t.AssignedTo)
		}
	}
	return out, nil
}

func (r *taskRepo) CompletionTrend(_ context.Context, projectID string) ([]storage.TrendPoint, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	byDay := map[string]int{}
	for _, t := range r.s.TasksData {
		if t.ProjectID == projectID && t.CompletedAt != nil {
			byDay[t.CompletedAt.Format("2006-01-02")]++
		}
	}
	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)
	out := make([]storage.TrendPoint, len(days))
	for i, d := range days {
		out[i] = storage.TrendPoint{Date: d, Count: byDay[d]}
	}
	return out, nil
}

type commentRepo struct{ s *Store }

func (r *commentRepo) Create(_ context.Context, c *models.Comment) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	r.s.CommentsData = append(r.s.CommentsData, c)
	return nil
}

func (r *commentRepo) GetByID(_ context.Context, id string) (*models.Comment, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	for _, c := range r.s.CommentsData {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (r *commentRepo) Update(_ context.Context, c *models.Comment) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	for i, existing := range r.s.CommentsData {
		if existing.ID == c.ID {
			r.s.CommentsData[i] = c
			return nil
		}
	}
	return nil
}

func (r *commentRepo) Delete(_ context.Context, id string) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	for i, c := range r.s.CommentsData {
		if c.ID == id {
			r.s.CommentsData = append(r.s.CommentsData[:i], r.s.CommentsData[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *commentRepo) ListByTask(_ context.Context, taskID string) ([]*models.Comment, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	var out []*models.Comment
	for _, c := range r.s.CommentsData {
		if c.TaskID == taskID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fileRepo struct{ s *Store }

func (r *fileRepo) Create(_ context.Context, f *models.File) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	r.s.FilesData = append(r.s.FilesData, f)
	return nil
}

func (r *fileRepo) GetByID(_ context.Context, id string) (*models.File, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	for _, f := range r.s.FilesData {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, nil
}

func (r *fileRepo) Delete(_ context.Context, id string) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	for i, f := range r.s.FilesData {
		if f.ID == id {
			r.s.FilesData = append(r.s.FilesData[:i], r.s.FilesData[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fileRepo) List(_ context.Context, filter storage.FileFilter) ([]*models.File, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	var out []*models.File
	for _, f := range r.s.FilesData {
		if filter.TaskID != "" && f.TaskID != filter.TaskID {
			continue
		}
		if filter.ProjectID != "" && f.ProjectID != filter.ProjectID {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

type riskRepo struct{ s *Store }

func (r *riskRepo) Create(_ context.Context, risk *models.Risk) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	r.s.RisksData = append(r.s.RisksData, risk)
	return nil
}

func (r *riskRepo) GetByID(_ context.Context, id string) (*models.Risk, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	for _, risk := range r.s.RisksData {
		if risk.ID == id {
			return risk, nil
		}
	}
	return nil, nil
}

func (r *riskRepo) Update(_ context.Context, risk *models.Risk) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	for i, existing := range r.s.RisksData {
		if existing.ID == risk.ID {
			r.s.RisksData[i] = risk
			return nil
		}
	}
	return nil
}

func (r *riskRepo) Delete(_ context.Context, id string) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	for i, risk := range r.s.RisksData {
		if risk.ID == id {
			r.s.RisksData = append(r.s.RisksData[:i], r.s.RisksData[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *riskRepo) List(_ context.Context) ([]*models.Risk, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	return r.s.RisksData, nil
}

func (r *riskRepo) ListByProject(_ context.Context, projectID string) ([]*models.Risk, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	var out []*models.Risk
	for _, risk := range r.s.RisksData {
		if risk.ProjectID == projectID {
			out = append(out, risk)
		}
	}
	return out, nil
}

func (r *riskRepo) ListByProjects(_ context.Context, projectIDs []string) ([]*models.Risk, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	scope := map[string]bool{}
	for _, id := range projectIDs {
		scope[id] = true
	}
	var out []*models.Risk
	for _, risk := range r.s.RisksData {
		if scope[risk.ProjectID] {
			out = append(out, risk)
		}
	}
	return out, nil
}

type notificationRepo struct{ s *Store }

func (r *notificationRepo) Create(_ context.Context, n *models.Notification) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	r.s.NotificationsData = append(r.s.NotificationsData, n)
	return nil
}

func (r *notificationRepo) GetByID(_ context.Context, id string) (*models.Notification, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	for _, n := range r.s.NotificationsData {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, nil
}

func (r *notificationRepo) ListForUser(_ context.Context, userID string, unreadOnly bool) ([]*models.Notification, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	var out []*models.Notification
	for _, n := range r.s.NotificationsData {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *notificationRepo) UnreadCount(_ context.Context, userID string) (int64, error) {
	if r.s.Err != nil {
		return 0, r.s.Err
	}
	var count int64
	for _, n := range r.s.NotificationsData {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *notificationRepo) MarkRead(_ context.Context, id string) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	for _, n := range r.s.NotificationsData {
		if n.ID == id {
			n.Read = true
			return nil
		}
	}
	return nil
}

func (r *notificationRepo) MarkAllRead(_ context.Context, userID string) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	for _, n := range r.s.NotificationsData {
		if n.UserID == userID {
			n.Read = true
		}
	}
	return nil
}

func (r *notificationRepo) Delete(_ context.Context, id string) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	for i, n := range r.s.NotificationsData {
		if n.ID == id {
			r.s.NotificationsData = append(r.s.NotificationsData[:i], r.s.NotificationsData[i+1:]...)
			return nil
		}
	}
	return nil
}

type tokenRepo struct{ s *Store }

func (r *tokenRepo) Create(_ context.Context, t *models.RefreshToken) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	r.s.TokensData = append(r.s.TokensData, t)
	return nil
}

func (r *tokenRepo) GetByTokenHash(_ context.Context, tokenHash string) (*models.RefreshToken, error) {
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	for _, t := range r.s.TokensData {
		if t.TokenHash == tokenHash {
			return t, nil
		}
	}
	return nil, nil
}

func (r *tokenRepo) Revoke(_ context.Context, id string) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	for _, t := range r.s.TokensData {
		if t.ID == id {
			t.Revoked = true
		}
	}
	return nil
}

func (r *tokenRepo) RevokeByTokenHash(_ context.Context, tokenHash string) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	for _, t := range r.s.TokensData {
		if t.TokenHash == tokenHash {
			t.Revoked = true
		}
	}
	return nil
}

func (r *tokenRepo) RevokeAllForUser(_ context.Context, userID string) error {
	if r.s.Err != nil {
		return r.s.Err
	}
	for _, t := range r.s.TokensData {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func (r *tokenRepo) DeleteExpired(_ context.Context) (int64, error) {
	if r.s.Err != nil {
		return 0, r.s.Err
	}
	var kept []*models.RefreshToken
	var removed int64
	for _, t := range r.s.TokensData {
		if t.IsExpired() {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	r.s.TokensData = kept
	return removed, nil
}
