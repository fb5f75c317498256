package models

import (
	"time"
)

// Comment represents a comment on a task. A comment with a ParentID is a
// reply; replies are one level deep and the parent must belong to the
// same task.
type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	ParentID  string    `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewComment creates a new Comment with initialized timestamps.
func NewComment(taskID, userID, content string) *Comment {
	now := time.Now()
	return &Comment{
		TaskID:    taskID,
		UserID:    userID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsReply returns true if the comment is a reply to another comment.
func (c *Comment) IsReply() bool {
	return c.ParentID != ""
}
