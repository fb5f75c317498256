package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tidewater-dev/crewdeck/internal/models"
)

type sqliteRiskRepo struct {
	db *sql.DB
}

const riskColumns = `id, project_id, title, description, severity, status, mitigation, created_at, updated_at`

func (r *sqliteRiskRepo) Create(ctx context.Context, risk *models.Risk) error {
	query := `
		INSERT INTO risks (` + riskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		risk.ID, risk.ProjectID, risk.Title, risk.Description,
		risk.Severity, risk.Status, risk.Mitigation,
		risk.CreatedAt, risk.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert risk: %w", err)
	}
	return nil
}

func (r *sqliteRiskRepo) GetByID(ctx context.Context, id string) (*models.Risk, error) {
	query := `SELECT ` + riskColumns + ` FROM risks WHERE id = ?`
	risk, err := scanRiskRow(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get risk by id: %w", err)
	}
	return risk, nil
}

func (r *sqliteRiskRepo) Update(ctx context.Context, risk *models.Risk) error {
	query := `
		UPDATE risks SET title = ?, description = ?, severity = ?, status = ?, mitigation = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		risk.Title, risk.Description, risk.Severity, risk.Status,
		risk.Mitigation, risk.UpdatedAt,
		risk.ID,
	)
	if err != nil {
		return fmt.Errorf("update risk: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("risk not found: %s", risk.ID)
	}
	return nil
}

func (r *sqliteRiskRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM risks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete risk: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("risk not found: %s", id)
	}
	return nil
}

func (r *sqliteRiskRepo) List(ctx context.Context) ([]*models.Risk, error) {
	query := `SELECT ` + riskColumns + ` FROM risks ORDER BY created_at DESC`
	return r.scanMany(ctx, query)
}

func (r *sqliteRiskRepo) ListByProject(ctx context.Context, projectID string) ([]*models.Risk, error) {
	query := `SELECT ` + riskColumns + ` FROM risks WHERE project_id = ? ORDER BY created_at DESC`
	return r.scanMany(ctx, query, projectID)
}

func (r *sqliteRiskRepo) ListByProjects(ctx context.Context, projectIDs []string) ([]*models.Risk, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(projectIDs))
	query := `SELECT ` + riskColumns + ` FROM risks WHERE project_id IN (` +
		placeholders[:len(placeholders)-1] + `) ORDER BY created_at DESC`
	args := make([]any, len(projectIDs))
	for i, id := range projectIDs {
		args[i] = id
	}
	return r.scanMany(ctx, query, args...)
}

func (r *sqliteRiskRepo) scanMany(ctx context.Context, query string, args ...any) ([]*models.Risk, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list risks: %w", err)
	}
	defer rows.Close()

	var risks []*models.Risk
	for rows.Next() {
		risk, err := scanRiskRow(rows)
		if err != nil {
			return nil, err
		}
		risks = append(risks, risk)
	}
	return risks, rows.Err()
}

func scanRiskRow(row rowScanner) (*models.Risk, error) {
	risk := &models.Risk{}
	var description, mitigation sql.NullString
	err := row.Scan(
		&risk.ID, &risk.ProjectID, &risk.Title, &description,
		&risk.Severity, &risk.Status, &mitigation,
		&risk.CreatedAt, &risk.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan risk: %w", err)
	}
	risk.Description = description.String
	risk.Mitigation = mitigation.String
	return risk, nil
}
