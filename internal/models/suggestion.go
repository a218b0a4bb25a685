package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Priority represents the urgency of a suggested task
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// TaskSuggestion is a pipeline-generated proposal for a new task. It lives
// only in the suggestion registry until a caller accepts or rejects it.
// The ID is generated once per instance and never reused, even when the
// same content unit is re-analyzed.
type TaskSuggestion struct {
	ID              string     `json:"id" validate:"required"`
	SourceContentID uuid.UUID  `json:"source_content_id"`
	Title           string     `json:"title" validate:"required"`
	Description     string     `json:"description"`
	ScheduledFor    *time.Time `json:"scheduled_for,omitempty"`
	Deadline        *time.Time `json:"deadline,omitempty"`
	Location        *string    `json:"location,omitempty"`
	Priority        Priority   `json:"priority" validate:"required,priority"`
	Tags            []string   `json:"tags,omitempty"`
	QuestID         *int64     `json:"quest_id,omitempty"`
}

// GoalSuggestion is a pipeline-generated proposal for a new quest, optionally
// carrying related task suggestions that would become its initial tasks.
type GoalSuggestion struct {
	ID              string           `json:"id" validate:"required"`
	SourceContentID uuid.UUID        `json:"source_content_id"`
	Title           string           `json:"title" validate:"required"`
	Tagline         string           `json:"tagline"`
	Description     string           `json:"description"`
	StartDate       *time.Time       `json:"start_date,omitempty"`
	EndDate         *time.Time       `json:"end_date,omitempty"`
	RelatedTasks    []TaskSuggestion `json:"related_tasks"`
}

// NewSuggestionID generates an opaque identity for a suggestion instance.
func NewSuggestionID() string {
	return uuid.NewString()
}

// ContentEqual reports whether two task suggestions describe the same piece
// of work. Equality is by case-folded, whitespace-trimmed title; this is the
// rule the registry uses to keep a task from being actionable both standalone
// and as a child of a goal suggestion.
func (s *TaskSuggestion) ContentEqual(other *TaskSuggestion) bool {
	return normalizeTitle(s.Title) == normalizeTitle(other.Title)
}

// TitlesEqual applies the same content-equality rule to two bare titles.
func TitlesEqual(a, b string) bool {
	return normalizeTitle(a) == normalizeTitle(b)
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
