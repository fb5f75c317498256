package models

import (
	"time"
)

// File represents an uploaded attachment. Either TaskID or ProjectID may be
// set to scope the file; neither is required.
type File struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"-"` // blob store path, not exposed
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	UserID    string    `json:"user_id"` // uploader
	TaskID    string    `json:"task_id,omitempty"`
	ProjectID string    `json:"project_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewFile creates a new File record for an uploaded blob.
func NewFile(name, path, mimeType string, size int64, userID string) *File {
	return &File{
		Name:      name,
		Path:      path,
		MimeType:  mimeType,
		Size:      size,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
}
