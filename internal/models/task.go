package models

import (
	"time"
)

// TaskStatus represents the workflow state of a task.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskReview     TaskStatus = "review"
	TaskCompleted  TaskStatus = "completed"
)

// ValidTaskStatus returns true for a known task status.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskReview, TaskCompleted:
		return true
	}
	return false
}

// TaskPriority represents task urgency.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// ValidTaskPriority returns true for a known task priority.
func ValidTaskPriority(p TaskPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task represents a unit of work within a project.
type Task struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	ProjectID   string       `json:"project_id"`
	CreatorID   string       `json:"creator_id"`
	AssignedTo  string       `json:"assigned_to,omitempty"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	StartDate   *time.Time   `json:"start_date,omitempty"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewTask creates a new Task with initialized timestamps.
func NewTask(title, projectID, creatorID string) *Task {
	now := time.Now()
	return &Task{
		Title:     title,
		ProjectID: projectID,
		CreatorID: creatorID,
		Status:    TaskTodo,
		Priority:  PriorityMedium,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetStatus transitions the task to a new status, maintaining the
// completed_at timestamp: set on entering completed, cleared on leaving it.
func (t *Task) SetStatus(status TaskStatus) {
	if status == TaskCompleted && t.Status != TaskCompleted {
		now := time.Now()
		t.CompletedAt = &now
	} else if status != TaskCompleted {
		t.CompletedAt = nil
	}
	t.Status = status
}
