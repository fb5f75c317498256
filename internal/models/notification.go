package models

import (
	"time"
)

// NotificationType tags the event that triggered a notification.
type NotificationType string

const (
	NotifyProjectCreated NotificationType = "project_created"
	NotifyTaskCreated    NotificationType = "task_created"
	NotifyTaskAssigned   NotificationType = "task_assigned"
	NotifyTaskStatus     NotificationType = "task_status"
	NotifyTaskDeleted    NotificationType = "task_deleted"
	NotifyComment        NotificationType = "comment"
	NotifyFile           NotificationType = "file"
	NotifyRiskCreated    NotificationType = "risk_created"
	NotifyRiskMitigated  NotificationType = "risk_mitigated"
)

// Notification represents a single delivered notification row. The only
// state transition is unread -> read.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	UserID    string           `json:"user_id"` // recipient
	ProjectID string           `json:"project_id,omitempty"`
	TaskID    string           `json:"task_id,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}
