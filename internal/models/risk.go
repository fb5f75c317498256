package models

import (
	"time"
)

// RiskSeverity represents the impact level of a risk.
type RiskSeverity string

const (
	RiskLow      RiskSeverity = "low"
	RiskMedium   RiskSeverity = "medium"
	RiskHigh     RiskSeverity = "high"
	RiskCritical RiskSeverity = "critical"
)

// ValidRiskSeverity returns true for a known risk severity.
func ValidRiskSeverity(s RiskSeverity) bool {
	switch s {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// RiskStatus represents the tracking state of a risk.
type RiskStatus string

const (
	RiskActive       RiskStatus = "active"
	RiskInMitigation RiskStatus = "in-progress"
	RiskMitigated    RiskStatus = "mitigated"
)

// ValidRiskStatus returns true for a known risk status.
func ValidRiskStatus(s RiskStatus) bool {
	switch s {
	case RiskActive, RiskInMitigation, RiskMitigated:
		return true
	}
	return false
}

// Risk represents a tracked project risk with a mitigation plan.
type Risk struct {
	ID          string       `json:"id"`
	ProjectID   string       `json:"project_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Severity    RiskSeverity `json:"severity"`
	Status      RiskStatus   `json:"status"`
	Mitigation  string       `json:"mitigation"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewRisk creates a new Risk with initialized timestamps.
func NewRisk(projectID, title, description string, severity RiskSeverity) *Risk {
	now := time.Now()
	return &Risk{
		ProjectID:   projectID,
		Title:       title,
		Description: description,
		Severity:    severity,
		Status:      RiskActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
