package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/benvon/questline/internal/models"
	"github.com/google/uuid"
)

// QuestRepository handles quest database operations
type QuestRepository struct {
	db *DB
}

// NewQuestRepository creates a new quest repository
func NewQuestRepository(db *DB) *QuestRepository {
	return &QuestRepository{db: db}
}

// GetByUserID retrieves all quests for a user with their tasks attached,
// unassigned bucket included
func (r *QuestRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]models.Quest, error) {
	query := `
		SELECT id, title, description, status, unassigned, created_at, updated_at
		FROM quests
		WHERE user_id = $1
		ORDER BY unassigned ASC, created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quests: %w", err)
	}
	defer rows.Close()

	var quests []models.Quest
	for rows.Next() {
		var quest models.Quest
		err := rows.Scan(
			&quest.ID,
			&quest.Title,
			&quest.Description,
			&quest.Status,
			&quest.Unassigned,
			&quest.CreatedAt,
			&quest.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quest: %w", err)
		}
		quests = append(quests, quest)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quests: %w", err)
	}
	if len(quests) == 0 {
		return nil, nil
	}

	tasks, err := r.tasksByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	attachTasks(quests, tasks)

	return quests, nil
}

// attachTasks distributes tasks onto their owning quests. A task with no
// quest id belongs to the unassigned bucket quest; tasks referencing a quest
// that is not in the slice are dropped.
func attachTasks(quests []models.Quest, tasks []models.Task) {
	index := make(map[int64]int, len(quests))
	bucket := -1
	for i := range quests {
		index[quests[i].ID] = i
		if quests[i].Unassigned {
			bucket = i
		}
	}
	for _, task := range tasks {
		if task.QuestID == nil {
			if bucket >= 0 {
				quests[bucket].Tasks = append(quests[bucket].Tasks, task)
			}
			continue
		}
		if i, ok := index[*task.QuestID]; ok {
			quests[i].Tasks = append(quests[i].Tasks, task)
		}
	}
}

func (r *QuestRepository) tasksByUserID(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	query := `
		SELECT id, title, description, status, quest_id, created_at, updated_at
		FROM tasks
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
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
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// Create inserts a new quest and returns it with generated fields populated
func (r *QuestRepository) Create(ctx context.Context, userID uuid.UUID, quest *models.Quest) error {
	query := `
		INSERT INTO quests (user_id, title, description, status, unassigned, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id, created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		userID,
		quest.Title,
		quest.Description,
		quest.Status,
		quest.Unassigned,
		now,
	).Scan(&quest.ID, &quest.CreatedAt, &quest.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create quest: %w", err)
	}

	return nil
}

// GetByID retrieves a single quest without its tasks
func (r *QuestRepository) GetByID(ctx context.Context, id int64) (*models.Quest, error) {
	quest := &models.Quest{}

	query := `
		SELECT id, title, description, status, unassigned, created_at, updated_at
		FROM quests
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&quest.ID,
		&quest.Title,
		&quest.Description,
		&quest.Status,
		&quest.Unassigned,
		&quest.CreatedAt,
		&quest.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("quest not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quest: %w", err)
	}

	return quest, nil
}
