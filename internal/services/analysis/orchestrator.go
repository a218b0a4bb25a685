package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/benvon/questline/internal/models"
	"github.com/benvon/questline/internal/services/oracle"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QuestStore is the persistence surface the orchestrator needs. The database
// package provides the production implementation.
type QuestStore interface {
	ListQuests(ctx context.Context, userID uuid.UUID) ([]models.Quest, error)
	ListActiveTasks(ctx context.Context, userID uuid.UUID) ([]models.Task, error)
	UpdateTaskStatus(ctx context.Context, taskID int64, status models.TaskStatus) error
	CreateTask(ctx context.Context, userID uuid.UUID, suggestion *models.TaskSuggestion) (*models.Task, error)
	CreateQuest(ctx context.Context, userID uuid.UUID, suggestion *models.GoalSuggestion) (*models.Quest, error)
}

// Registry holds pending suggestions between analysis and a user decision.
type Registry interface {
	AddTask(t *models.TaskSuggestion)
	AddGoal(g *models.GoalSuggestion)
	Task(id string) (models.TaskSuggestion, bool)
	Goal(id string) (models.GoalSuggestion, bool)
	Remove(id string) bool
	ReplaceTaskWithGoal(taskID string, g *models.GoalSuggestion) bool
}

// ErrSuggestionNotFound is returned by lifecycle operations when the
// referenced suggestion is no longer in the registry.
var ErrSuggestionNotFound = errors.New("suggestion not found")

// Report summarizes one analysis run. It exists for logging and for the
// worker's retry decision; nothing downstream consumes it.
type Report struct {
	ContentID uuid.UUID
	Relevance []models.RelevanceResult
	Task      *models.TaskSuggestion
	Goal      *models.GoalSuggestion
	Change    *models.StatusChange
	// Err aggregates transport-level failures from the three paths. A
	// non-nil Err does not invalidate the rest of the report.
	Err error
}

// Orchestrator runs the full analysis pipeline for a content unit and owns
// the suggestion lifecycle operations.
type Orchestrator struct {
	matcher   *Matcher
	extractor *Extractor
	detector  *Detector
	store     QuestStore
	registry  Registry
	log       *zap.Logger
}

// NewOrchestrator wires the pipeline together. The logger may be nil.
func NewOrchestrator(matcher *Matcher, extractor *Extractor, detector *Detector, store QuestStore, registry Registry, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		matcher:   matcher,
		extractor: extractor,
		detector:  detector,
		store:     store,
		registry:  registry,
		log:       log,
	}
}

// Analyze runs task extraction, goal extraction and status detection for one
// content unit. Relevance is computed once and shared by both extraction
// paths; the status path runs independently. A failure on any path never
// affects the others: failed paths simply contribute nothing. The returned
// error covers only the upfront quest load, which makes the whole run
// pointless and is worth retrying.
func (o *Orchestrator) Analyze(ctx context.Context, content *models.ContentUnit) (*Report, error) {
	ctx = oracle.WithUserID(ctx, content.UserID.String())
	ctx = oracle.WithContentID(ctx, content.ID.String())

	quests, err := o.store.ListQuests(ctx, content.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quests: %w", err)
	}

	report := &Report{ContentID: content.ID}
	var pathErrs [4]error

	// Both extraction paths block on relevanceDone rather than on each
	// other, so a slow or failed relevance run delays but never cancels
	// them.
	relevanceDone := make(chan struct{})
	go func() {
		defer close(relevanceDone)
		report.Relevance, pathErrs[0] = o.matcher.FindRelevant(ctx, content, quests)
	}()

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		<-relevanceDone
		report.Task, pathErrs[1] = o.extractor.ExtractTask(ctx, content, report.Relevance)
		if report.Task != nil {
			o.registry.AddTask(report.Task)
		}
	}()

	go func() {
		defer wg.Done()
		<-relevanceDone
		report.Goal, pathErrs[2] = o.extractor.ExtractGoal(ctx, content, report.Relevance)
		if report.Goal != nil {
			o.registry.AddGoal(report.Goal)
		}
	}()

	go func() {
		defer wg.Done()
		activeTasks, err := o.store.ListActiveTasks(ctx, content.UserID)
		if err != nil {
			pathErrs[3] = err
			return
		}
		change, err := o.detector.DetectChange(ctx, content, activeTasks)
		if err != nil {
			pathErrs[3] = err
			return
		}
		if change == nil {
			return
		}
		if err := o.store.UpdateTaskStatus(ctx, change.TaskID, change.NewStatus); err != nil {
			pathErrs[3] = err
			return
		}
		report.Change = change
	}()

	wg.Wait()
	report.Err = errors.Join(pathErrs[:]...)

	o.log.Info("content_analyzed",
		zap.String("content_id", content.ID.String()),
		zap.Int("relevant_quests", len(report.Relevance)),
		zap.Bool("task_suggested", report.Task != nil),
		zap.Bool("goal_suggested", report.Goal != nil),
		zap.Bool("status_changed", report.Change != nil),
		zap.Error(report.Err),
	)
	return report, nil
}

// AcceptTask persists a pending task suggestion as a real task and removes it
// from the registry.
func (o *Orchestrator) AcceptTask(ctx context.Context, userID uuid.UUID, suggestionID string) (*models.Task, error) {
	suggestion, ok := o.registry.Task(suggestionID)
	if !ok {
		return nil, ErrSuggestionNotFound
	}
	task, err := o.store.CreateTask(ctx, userID, &suggestion)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	o.registry.Remove(suggestionID)
	return task, nil
}

// AcceptGoal persists a pending goal suggestion as a quest, with its related
// tasks as the quest's initial tasks, and removes it from the registry.
func (o *Orchestrator) AcceptGoal(ctx context.Context, userID uuid.UUID, suggestionID string) (*models.Quest, error) {
	suggestion, ok := o.registry.Goal(suggestionID)
	if !ok {
		return nil, ErrSuggestionNotFound
	}
	quest, err := o.store.CreateQuest(ctx, userID, &suggestion)
	if err != nil {
		return nil, fmt.Errorf("failed to create quest: %w", err)
	}
	o.registry.Remove(suggestionID)
	return quest, nil
}

// Reject discards a pending suggestion of either kind.
func (o *Orchestrator) Reject(suggestionID string) error {
	if !o.registry.Remove(suggestionID) {
		return ErrSuggestionNotFound
	}
	return nil
}

// UpgradeTask grows a pending task suggestion into a goal suggestion and
// swaps it in the registry. The original task suggestion id is retired.
func (o *Orchestrator) UpgradeTask(ctx context.Context, suggestionID string) (*models.GoalSuggestion, error) {
	suggestion, ok := o.registry.Task(suggestionID)
	if !ok {
		return nil, ErrSuggestionNotFound
	}
	goal, err := o.extractor.UpgradeTaskToGoal(ctx, &suggestion)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade suggestion: %w", err)
	}
	if goal == nil {
		return nil, fmt.Errorf("upgrade produced no usable goal")
	}
	if !o.registry.ReplaceTaskWithGoal(suggestionID, goal) {
		return nil, ErrSuggestionNotFound
	}
	return goal, nil
}
