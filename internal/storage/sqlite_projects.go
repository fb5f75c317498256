package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tidewater-dev/crewdeck/internal/models"
)

type sqliteProjectRepo struct {
	db *sql.DB
}

const projectColumns = `id, name, description, start_date, end_date, status,
	owner_id, manager_id, budget, actual_expenditure, created_at, updated_at`

func marshalBudget(items []models.BudgetItem) (any, error) {
	if items == nil {
		return nil, nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal budget: %w", err)
	}
	return string(data), nil
}

func (r *sqliteProjectRepo) Create(ctx context.Context, project *models.Project) error {
	budget, err := marshalBudget(project.Budget)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		project.ID, project.Name, project.Description,
		project.StartDate, project.EndDate, project.Status,
		project.OwnerID, nullString(project.ManagerID), budget,
		project.ActualExpenditure, project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (r *sqliteProjectRepo) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`
	return scanProject(r.db.QueryRowContext(ctx, query, id), "get project by id")
}

func (r *sqliteProjectRepo) GetByName(ctx context.Context, name string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE name = ?`
	return scanProject(r.db.QueryRowContext(ctx, query, name), "get project by name")
}

func (r *sqliteProjectRepo) Update(ctx context.Context, project *models.Project) error {
	budget, err := marshalBudget(project.Budget)
	if err != nil {
		return err
	}
	query := `
		UPDATE projects SET name = ?, description = ?, start_date = ?, end_date = ?,
			status = ?, manager_id = ?, budget = ?, actual_expenditure = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		project.Name, project.Description, project.StartDate, project.EndDate,
		project.Status, nullString(project.ManagerID), budget,
		project.ActualExpenditure, project.UpdatedAt,
		project.ID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("project not found: %s", project.ID)
	}
	return nil
}

func (r *sqliteProjectRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("project not found: %s", id)
	}
	return nil
}

func (r *sqliteProjectRepo) List(ctx context.Context) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY name`
	return r.scanMany(ctx, query)
}

func (r *sqliteProjectRepo) ListOwnedOrManaged(ctx context.Context, userID string) ([]*models.Project, error) {
	query := `
		SELECT ` + projectColumns + ` FROM projects
		WHERE owner_id = ? OR manager_id = ?
		ORDER BY name
	`
	return r.scanMany(ctx, query, userID, userID)
}

func (r *sqliteProjectRepo) ListWithAssignee(ctx context.Context, userID string) ([]*models.Project, error) {
	query := `
		SELECT DISTINCT p.id, p.name, p.description, p.start_date, p.end_date, p.status,
			p.owner_id, p.manager_id, p.budget, p.actual_expenditure, p.created_at, p.updated_at
		FROM projects p
		INNER JOIN tasks t ON t.project_id = p.id
		WHERE t.assigned_to = ?
		ORDER BY p.name
	`
	return r.scanMany(ctx, query, userID)
}

func (r *sqliteProjectRepo) ListOwned(ctx context.Context, userID string) ([]*models.Project, error) {
	query := `
		SELECT ` + projectColumns + ` FROM projects
		WHERE owner_id = ?
		ORDER BY name
	`
	return r.scanMany(ctx, query, userID)
}

func (r *sqliteProjectRepo) scanMany(ctx context.Context, query string, args ...any) ([]*models.Project, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		project, err := scanProjectRow(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row *sql.Row, op string) (*models.Project, error) {
	project, err := scanProjectRow(row)
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return project, nil
}

func scanProjectRow(row rowScanner) (*models.Project, error) {
	project := &models.Project{}
	var description, managerID, budget sql.NullString
	err := row.Scan(
		&project.ID, &project.Name, &description,
		&project.StartDate, &project.EndDate, &project.Status,
		&project.OwnerID, &managerID, &budget,
		&project.ActualExpenditure, &project.CreatedAt, &project.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan project: %w", err)
	}
	project.Description = description.String
	project.ManagerID = managerID.String
	if budget.Valid && budget.String != "" {
		if err := json.Unmarshal([]byte(budget.String), &project.Budget); err != nil {
			return nil, fmt.Errorf("unmarshal budget: %w", err)
		}
	}
	return project, nil
}

// nullString maps the empty string to SQL NULL for optional FK columns.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
