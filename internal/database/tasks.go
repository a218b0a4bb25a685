package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/benvon/questline/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TaskRepository handles task database operations
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (models.Task, error) {
	var task models.Task
	var questID sql.NullInt64
	err := s.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&questID,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to scan task: %w", err)
	}
	if questID.Valid {
		task.QuestID = &questID.Int64
	}
	return task, nil
}

// GetActiveByUserID retrieves the user's tasks that can still receive a
// status transition
func (r *TaskRepository) GetActiveByUserID(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	query := `
		SELECT id, title, description, status, quest_id, created_at, updated_at
		FROM tasks
		WHERE user_id = $1 AND status IN ('todo', 'in_progress')
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query active tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating active tasks: %w", err)
	}

	return tasks, nil
}

// CreateFromSuggestion inserts a task carrying the suggestion's scheduling
// fields and returns the stored row
func (r *TaskRepository) CreateFromSuggestion(ctx context.Context, userID uuid.UUID, questID *int64, suggestion *models.TaskSuggestion) (*models.Task, error) {
	query := `
		INSERT INTO tasks (user_id, quest_id, title, description, status, scheduled_for, deadline, location, priority, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'todo', $5, $6, $7, $8, $9, $10, $10)
		RETURNING id, created_at, updated_at
	`

	task := &models.Task{
		Title:       suggestion.Title,
		Description: suggestion.Description,
		Status:      models.TaskStatusToDo,
		QuestID:     questID,
	}

	var scheduledFor, deadline sql.NullTime
	if suggestion.ScheduledFor != nil {
		scheduledFor = sql.NullTime{Time: *suggestion.ScheduledFor, Valid: true}
	}
	if suggestion.Deadline != nil {
		deadline = sql.NullTime{Time: *suggestion.Deadline, Valid: true}
	}
	var location sql.NullString
	if suggestion.Location != nil {
		location = sql.NullString{String: *suggestion.Location, Valid: true}
	}

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		userID,
		questID,
		suggestion.Title,
		suggestion.Description,
		scheduledFor,
		deadline,
		location,
		suggestion.Priority,
		pq.Array(suggestion.Tags),
		now,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return task, nil
}

// UpdateStatus moves a task to a new status
func (r *TaskRepository) UpdateStatus(ctx context.Context, taskID int64, status models.TaskStatus) error {
	query := `
		UPDATE tasks
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, taskID, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task not found")
	}

	return nil
}
