package database

import (
	"context"
	"fmt"

	"github.com/benvon/questline/internal/models"
	"github.com/google/uuid"
)

// Store composes the quest and task repositories into the persistence surface
// the analysis orchestrator consumes.
type Store struct {
	quests *QuestRepository
	tasks  *TaskRepository
}

// NewStore creates a store over the given repositories
func NewStore(quests *QuestRepository, tasks *TaskRepository) *Store {
	return &Store{quests: quests, tasks: tasks}
}

// ListQuests returns the user's quests with tasks attached
func (s *Store) ListQuests(ctx context.Context, userID uuid.UUID) ([]models.Quest, error) {
	return s.quests.GetByUserID(ctx, userID)
}

// ListActiveTasks returns the user's tasks still eligible for a transition
func (s *Store) ListActiveTasks(ctx context.Context, userID uuid.UUID) ([]models.Task, error) {
	return s.tasks.GetActiveByUserID(ctx, userID)
}

// UpdateTaskStatus moves a task to a new status
func (s *Store) UpdateTaskStatus(ctx context.Context, taskID int64, status models.TaskStatus) error {
	return s.tasks.UpdateStatus(ctx, taskID, status)
}

// CreateTask persists an accepted task suggestion, under its target quest
// when the suggestion carries one
func (s *Store) CreateTask(ctx context.Context, userID uuid.UUID, suggestion *models.TaskSuggestion) (*models.Task, error) {
	return s.tasks.CreateFromSuggestion(ctx, userID, suggestion.QuestID, suggestion)
}

// CreateQuest persists an accepted goal suggestion as a quest with its
// related task suggestions as initial tasks
func (s *Store) CreateQuest(ctx context.Context, userID uuid.UUID, suggestion *models.GoalSuggestion) (*models.Quest, error) {
	quest := &models.Quest{
		Title:       suggestion.Title,
		Description: questDescription(suggestion),
		Status:      models.QuestStatusActive,
	}
	if err := s.quests.Create(ctx, userID, quest); err != nil {
		return nil, err
	}

	for i := range suggestion.RelatedTasks {
		task, err := s.tasks.CreateFromSuggestion(ctx, userID, &quest.ID, &suggestion.RelatedTasks[i])
		if err != nil {
			return nil, fmt.Errorf("failed to create initial task %d: %w", i, err)
		}
		quest.Tasks = append(quest.Tasks, *task)
	}

	return quest, nil
}

// questDescription folds the tagline into the stored description, since the
// quests table keeps a single free-text field.
func questDescription(g *models.GoalSuggestion) string {
	if g.Tagline == "" {
		return g.Description
	}
	if g.Description == "" {
		return g.Tagline
	}
	return g.Tagline + "\n\n" + g.Description
}
