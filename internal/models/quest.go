package models

import "time"

// QuestStatus represents the status of a quest
type QuestStatus string

const (
	QuestStatusActive    QuestStatus = "active"
	QuestStatusOnHold    QuestStatus = "on_hold"
	QuestStatusCompleted QuestStatus = "completed"
)

// TaskStatus represents the status of a task
type TaskStatus string

const (
	TaskStatusToDo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// Quest is a long-running, user-defined objective with a collection of tasks.
// Exactly one quest per user has Unassigned set; it is the catch-all bucket
// for tasks that have no parent quest yet and carries no coherent theme of
// its own.
type Quest struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Status      QuestStatus `json:"status"`
	Unassigned  bool        `json:"unassigned"`
	Tasks       []Task      `json:"tasks"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Task is a concrete, schedulable unit of work belonging to a quest.
// QuestID is nil for tasks living in the unassigned bucket.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	QuestID     *int64     `json:"quest_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsActive reports whether the task can still receive a status transition.
func (t *Task) IsActive() bool {
	return t.Status == TaskStatusToDo || t.Status == TaskStatusInProgress
}

// CanTransitionTo reports whether moving from the current status to the
// requested one is a legal transition. Done is terminal, and a no-op
// in_progress -> in_progress is rejected.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusToDo:
		return next == TaskStatusInProgress || next == TaskStatusDone
	case TaskStatusInProgress:
		return next == TaskStatusDone
	default:
		return false
	}
}
