package tasks

import (
	"errors"
	"strings"

	"github.com/tidewater-dev/crewdeck/internal/models"
)

func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("title is required")
	}
	if len(title) > 200 {
		return errors.New("title must be 200 characters or less")
	}
	return nil
}

func ValidateStatus(status models.TaskStatus) error {
	if !models.ValidTaskStatus(status) {
		return errors.New("status must be todo, in_progress, review, or completed")
	}
	return nil
}

func ValidatePriority(priority models.TaskPriority) error {
	if !models.ValidTaskPriority(priority) {
		return errors.New("priority must be low, medium, high, or urgent")
	}
	return nil
}
