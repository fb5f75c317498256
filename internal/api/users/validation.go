// Package users provides user management API endpoints.
package users

import (
	"regexp"
	"strings"

	"github.com/tidewater-dev/crewdeck/internal/models"
)

var (
	nameRegex  = regexp.MustCompile(`^[\pL][\pL\pN '._-]{1,99}$`)
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// ValidationError contains validation error details.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateName validates a display name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if len(name) > 100 {
		return &ValidationError{Field: "name", Message: "name must be at most 100 characters"}
	}
	if !nameRegex.MatchString(name) {
		return &ValidationError{Field: "name", Message: "name must start with a letter"}
	}
	return nil
}

// ValidateEmail validates an email address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &ValidationError{Field: "email", Message: "email is required"}
	}
	if len(email) > 255 {
		return &ValidationError{Field: "email", Message: "email must be at most 255 characters"}
	}
	if !emailRegex.MatchString(email) {
		return &ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateRole validates a role string.
func ValidateRole(role string) (models.Role, error) {
	parsed := models.ParseRole(strings.TrimSpace(strings.ToLower(role)))
	if parsed == "" {
		return "", &ValidationError{Field: "role", Message: "role must be one of: admin, project_manager, team_member, client"}
	}
	return parsed, nil
}
