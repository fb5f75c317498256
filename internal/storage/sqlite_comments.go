package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tidewater-dev/crewdeck/internal/models"
)

type sqliteCommentRepo struct {
	db *sql.DB
}

func (r *sqliteCommentRepo) Create(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO comments (id, task_id, user_id, content, parent_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		comment.ID, comment.TaskID, comment.UserID, comment.Content,
		nullString(comment.ParentID), comment.CreatedAt, comment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (r *sqliteCommentRepo) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	query := `
		SELECT id, task_id, user_id, content, parent_id, created_at, updated_at
		FROM comments WHERE id = ?
	`
	comment := &models.Comment{}
	var parentID sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&comment.ID, &comment.TaskID, &comment.UserID, &comment.Content,
		&parentID, &comment.CreatedAt, &comment.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get comment by id: %w", err)
	}
	comment.ParentID = parentID.String
	return comment, nil
}

func (r *sqliteCommentRepo) Update(ctx context.Context, comment *models.Comment) error {
	query := `
		UPDATE comments SET content = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		comment.Content, comment.UpdatedAt, comment.ID,
	)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("comment not found: %s", comment.ID)
	}
	return nil
}

func (r *sqliteCommentRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM comments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("comment not found: %s", id)
	}
	return nil
}

func (r *sqliteCommentRepo) ListByTask(ctx context.Context, taskID string) ([]*models.Comment, error) {
	query := `
		SELECT id, task_id, user_id, content, parent_id, created_at, updated_at
		FROM comments WHERE task_id = ? ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		comment := &models.Comment{}
		var parentID sql.NullString
		err := rows.Scan(
			&comment.ID, &comment.TaskID, &comment.UserID, &comment.Content,
			&parentID, &comment.CreatedAt, &comment.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comment.ParentID = parentID.String
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}
