package projects

import (
	"errors"
	"strings"

	"github.com/tidewater-dev/crewdeck/internal/models"
)

func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name is required")
	}
	if len(name) > 100 {
		return errors.New("name must be 100 characters or less")
	}
	return nil
}

func ValidateStatus(status models.ProjectStatus) error {
	if !models.ValidProjectStatus(status) {
		return errors.New("status must be planning, in-progress, completed, or on-hold")
	}
	return nil
}

// ValidateBudget rejects malformed budget lines. Amounts default to 0 when
// omitted, matching the allocation sum's numeric coercion.
func ValidateBudget(items []models.BudgetItem) error {
	for _, item := range items {
		if strings.TrimSpace(item.Item) == "" {
			return errors.New("budget line item name is required")
		}
		if item.Amount < 0 {
			return errors.New("budget line amount cannot be negative")
		}
	}
	return nil
}
