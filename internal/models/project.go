package models

import (
	"time"
)

// ProjectStatus represents the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectPlanning   ProjectStatus = "planning"
	ProjectInProgress ProjectStatus = "in-progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectOnHold     ProjectStatus = "on-hold"
)

// ValidProjectStatus returns true for a known project status.
func ValidProjectStatus(s ProjectStatus) bool {
	switch s {
	case ProjectPlanning, ProjectInProgress, ProjectCompleted, ProjectOnHold:
		return true
	}
	return false
}

// BudgetItem is a single line in a project's budget breakdown.
type BudgetItem struct {
	Item   string  `json:"item"`
	Amount float64 `json:"amount"`
}

// Project represents a managed project with budget tracking.
type Project struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Description       string        `json:"description,omitempty"`
	StartDate         *time.Time    `json:"start_date,omitempty"`
	EndDate           *time.Time    `json:"end_date,omitempty"`
	Status            ProjectStatus `json:"status"`
	OwnerID           string        `json:"owner_id"`              // creator
	ManagerID         string        `json:"manager_id,omitempty"`  // assigned project manager
	Budget            []BudgetItem  `json:"budget,omitempty"`
	ActualExpenditure float64       `json:"actual_expenditure"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// NewProject creates a new Project with initialized timestamps.
func NewProject(name, description, ownerID string, status ProjectStatus) *Project {
	now := time.Now()
	return &Project{
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AllocatedBudget sums the budget line amounts.
func (p *Project) AllocatedBudget() float64 {
	var total float64
	for _, item := range p.Budget {
		total += item.Amount
	}
	return total
}
