package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/questline/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	if err := Validate.RegisterValidation("priority", validatePriority); err != nil {
		panic(fmt.Sprintf("failed to register priority validator: %v", err))
	}
	if err := Validate.RegisterValidation("task_status", validateTaskStatus); err != nil {
		panic(fmt.Sprintf("failed to register task_status validator: %v", err))
	}
	if err := Validate.RegisterValidation("source_kind", validateSourceKind); err != nil {
		panic(fmt.Sprintf("failed to register source_kind validator: %v", err))
	}
}

// validatePriority validates that a string is a valid Priority enum value
func validatePriority(fl validator.FieldLevel) bool {
	switch models.Priority(fl.Field().String()) {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
		return true
	default:
		return false
	}
}

// validateTaskStatus validates that a string is a valid TaskStatus enum value
func validateTaskStatus(fl validator.FieldLevel) bool {
	switch models.TaskStatus(fl.Field().String()) {
	case models.TaskStatusToDo, models.TaskStatusInProgress, models.TaskStatusDone:
		return true
	default:
		return false
	}
}

// validateSourceKind validates that a string is a valid SourceKind enum value
func validateSourceKind(fl validator.FieldLevel) bool {
	switch models.SourceKind(fl.Field().String()) {
	case models.SourceKindChat, models.SourceKindJournal:
		return true
	default:
		return false
	}
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateTaskStatus validates a TaskStatus string value
func ValidateTaskStatus(value string) error {
	switch models.TaskStatus(value) {
	case models.TaskStatusToDo, models.TaskStatusInProgress, models.TaskStatusDone:
		return nil
	default:
		return fmt.Errorf("invalid status: %s (must be 'todo', 'in_progress', or 'done')", value)
	}
}

// ValidateSourceKind validates a SourceKind string value
func ValidateSourceKind(value string) error {
	switch models.SourceKind(value) {
	case models.SourceKindChat, models.SourceKindJournal:
		return nil
	default:
		return fmt.Errorf("invalid source_kind: %s (must be 'chat' or 'journal')", value)
	}
}
