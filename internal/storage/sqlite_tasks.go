package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tidewater-dev/crewdeck/internal/models"
)

type sqliteTaskRepo struct {
	db *sql.DB
}

const taskColumns = `id, title, description, project_id, creator_id, assigned_to,
	status, priority, start_date, due_date, completed_at, created_at, updated_at`

func (r *sqliteTaskRepo) Create(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		task.ID, task.Title, task.Description, task.ProjectID, task.CreatorID,
		nullString(task.AssignedTo), task.Status, task.Priority,
		task.StartDate, task.DueDate, task.CompletedAt,
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r *sqliteTaskRepo) GetByID(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`
	task, err := scanTaskRow(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task by id: %w", err)
	}
	return task, nil
}

func (r *sqliteTaskRepo) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks SET title = ?, description = ?, project_id = ?, assigned_to = ?,
			status = ?, priority = ?, start_date = ?, due_date = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		task.Title, task.Description, task.ProjectID, nullString(task.AssignedTo),
		task.Status, task.Priority, task.StartDate, task.DueDate,
		task.CompletedAt, task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task not found: %s", task.ID)
	}
	return nil
}

func (r *sqliteTaskRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task not found: %s", id)
	}
	return nil
}

func (r *sqliteTaskRepo) List(ctx context.Context, filter TaskFilter) ([]*models.Task, error) {
	var (
		conds []string
		args  []any
	)
	if filter.ProjectID != "" {
		conds = append(conds, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if len(filter.ProjectIDs) > 0 {
		placeholders := strings.Repeat("?,", len(filter.ProjectIDs))
		conds = append(conds, "project_id IN ("+placeholders[:len(placeholders)-1]+")")
		for _, id := range filter.ProjectIDs {
			args = append(args, id)
		}
	}
	if filter.AssignedTo != "" {
		conds = append(conds, "assigned_to = ?")
		args = append(args, filter.AssignedTo)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	return r.scanMany(ctx, query, args...)
}

func (r *sqliteTaskRepo) ListByProject(ctx context.Context, projectID string) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE project_id = ? ORDER BY created_at DESC`
	return r.scanMany(ctx, query, projectID)
}

func (r *sqliteTaskRepo) HasAssignee(ctx context.Context, projectID, userID string) (bool, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tasks WHERE project_id = ? AND assigned_to = ?",
		projectID, userID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check task assignee: %w", err)
	}
	return count > 0, nil
}

func (r *sqliteTaskRepo) AssigneesForProject(ctx context.Context, projectID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT assigned_to FROM tasks WHERE project_id = ? AND assigned_to IS NOT NULL",
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list project assignees: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan assignee: %w", err)
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, rows.Err()
}

func (r *sqliteTaskRepo) CompletionTrend(ctx context.Context, projectID string) ([]TrendPoint, error) {
	query := `
		SELECT DATE(completed_at) AS date, COUNT(*) AS count
		FROM tasks
		WHERE project_id = ? AND status = 'completed' AND completed_at IS NOT NULL
		GROUP BY DATE(completed_at)
		ORDER BY date
	`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("task completion trend: %w", err)
	}
	defer rows.Close()

	var points []TrendPoint
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.Date, &p.Count); err != nil {
			return nil, fmt.Errorf("scan trend point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (r *sqliteTaskRepo) scanMany(ctx context.Context, query string, args ...any) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTaskRow(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func scanTaskRow(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var description, assignedTo sql.NullString
	err := row.Scan(
		&task.ID, &task.Title, &description, &task.ProjectID, &task.CreatorID,
		&assignedTo, &task.Status, &task.Priority,
		&task.StartDate, &task.DueDate, &task.CompletedAt,
		&task.CreatedAt, &task.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}
	task.Description = description.String
	task.AssignedTo = assignedTo.String
	return task, nil
}
