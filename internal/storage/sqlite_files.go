package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tidewater-dev/crewdeck/internal/models"
)

type sqliteFileRepo struct {
	db *sql.DB
}

func (r *sqliteFileRepo) Create(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO files (id, name, path, mime_type, size, user_id, task_id, project_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		file.ID, file.Name, file.Path, file.MimeType, file.Size,
		file.UserID, nullString(file.TaskID), nullString(file.ProjectID),
		file.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

func (r *sqliteFileRepo) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := `
		SELECT id, name, path, mime_type, size, user_id, task_id, project_id, created_at
		FROM files WHERE id = ?
	`
	file := &models.File{}
	var taskID, projectID sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&file.ID, &file.Name, &file.Path, &file.MimeType, &file.Size,
		&file.UserID, &taskID, &projectID, &file.CreatedAt,
	)
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file by id: %w", err)
	}
	file.TaskID = taskID.String
	file.ProjectID = projectID.String
	return file, nil
}

func (r *sqliteFileRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM files WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("file not found: %s", id)
	}
	return nil
}

func (r *sqliteFileRepo) List(ctx context.Context, filter FileFilter) ([]*models.File, error) {
	var (
		conds []string
		args  []any
	)
	if filter.TaskID != "" {
		conds = append(conds, "task_id = ?")
		args = append(args, filter.TaskID)
	}
	if filter.ProjectID != "" {
		conds = append(conds, "project_id = ?")
		args = append(args, filter.ProjectID)
	}

	query := `
		SELECT id, name, path, mime_type, size, user_id, task_id, project_id, created_at
		FROM files
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []*models.File
	for rows.Next() {
		file := &models.File{}
		var taskID, projectID sql.NullString
		err := rows.Scan(
			&file.ID, &file.Name, &file.Path, &file.MimeType, &file.Size,
			&file.UserID, &taskID, &projectID, &file.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		file.TaskID = taskID.String
		file.ProjectID = projectID.String
		files = append(files, file)
	}
	return files, rows.Err()
}
