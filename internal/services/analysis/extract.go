package analysis

import (
	"context"

	"github.com/benvon/questline/internal/models"
	"github.com/benvon/questline/internal/services/oracle"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// taskSuggestionRecord is the wire shape for an extracted task. A null title
// is the oracle's way of saying the text holds no actionable task, so Title
// stays a pointer and Validate passes either way.
type taskSuggestionRecord struct {
	Title        *string  `json:"title"`
	Description  string   `json:"description"`
	ScheduledFor string   `json:"scheduled_for"`
	Deadline     string   `json:"deadline"`
	Location     string   `json:"location"`
	Priority     string   `json:"priority"`
	Tags         []string `json:"tags"`
}

func (r *taskSuggestionRecord) Normalize() {
	if r.Title != nil {
		if cleaned := cleanString(*r.Title); cleaned == "" {
			r.Title = nil
		} else {
			r.Title = &cleaned
		}
	}
	r.Description = cleanString(r.Description)
	r.Location = cleanString(r.Location)
	r.Priority = cleanString(r.Priority)
	r.Tags = cleanTags(r.Tags)
}

func (r *taskSuggestionRecord) Validate() error {
	return nil
}

// empty reports the no-task answer.
func (r *taskSuggestionRecord) empty() bool {
	return r.Title == nil
}

func (r *taskSuggestionRecord) toSuggestion(contentID uuid.UUID) *models.TaskSuggestion {
	priority := models.Priority(r.Priority)
	switch priority {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
	default:
		priority = models.PriorityMedium
	}
	return &models.TaskSuggestion{
		ID:              models.NewSuggestionID(),
		SourceContentID: contentID,
		Title:           *r.Title,
		Description:     r.Description,
		ScheduledFor:    parseDate(r.ScheduledFor),
		Deadline:        parseDate(r.Deadline),
		Location:        optionalString(r.Location),
		Priority:        priority,
		Tags:            r.Tags,
	}
}

// goalSuggestionRecord is the wire shape for an extracted goal. As with
// tasks, a null title means no goal was found.
type goalSuggestionRecord struct {
	Title        *string                `json:"title"`
	Tagline      string                 `json:"tagline"`
	Description  string                 `json:"description"`
	StartDate    string                 `json:"start_date"`
	EndDate      string                 `json:"end_date"`
	RelatedTasks []taskSuggestionRecord `json:"related_tasks"`
}

func (r *goalSuggestionRecord) Normalize() {
	if r.Title != nil {
		if cleaned := cleanString(*r.Title); cleaned == "" {
			r.Title = nil
		} else {
			r.Title = &cleaned
		}
	}
	r.Tagline = cleanString(r.Tagline)
	r.Description = cleanString(r.Description)
	kept := r.RelatedTasks[:0]
	for i := range r.RelatedTasks {
		r.RelatedTasks[i].Normalize()
		if !r.RelatedTasks[i].empty() {
			kept = append(kept, r.RelatedTasks[i])
		}
	}
	r.RelatedTasks = kept
}

func (r *goalSuggestionRecord) Validate() error {
	return nil
}

func (r *goalSuggestionRecord) empty() bool {
	return r.Title == nil
}

// upgradeRecord is the wire shape for growing an accepted task suggestion
// into a full goal suggestion.
type upgradeRecord struct {
	Tagline         string                 `json:"tagline"`
	Description     string                 `json:"description"`
	StartDate       string                 `json:"start_date"`
	EndDate         string                 `json:"end_date"`
	AdditionalTasks []taskSuggestionRecord `json:"additional_tasks"`
}

func (r *upgradeRecord) Normalize() {
	r.Tagline = cleanString(r.Tagline)
	r.Description = cleanString(r.Description)
	kept := r.AdditionalTasks[:0]
	for i := range r.AdditionalTasks {
		r.AdditionalTasks[i].Normalize()
		if !r.AdditionalTasks[i].empty() {
			kept = append(kept, r.AdditionalTasks[i])
		}
	}
	r.AdditionalTasks = kept
}

func (r *upgradeRecord) Validate() error {
	return nil
}

// Extractor turns content units into task and goal suggestions. All three
// operations share the same failure contract: a nil result means "nothing to
// suggest", whether because the text holds nothing actionable or because the
// oracle round-trip failed; the error return carries transport failures only.
type Extractor struct {
	oracle   oracle.Oracle
	repairer *Repairer
	log      *zap.Logger
}

// NewExtractor creates a suggestion extractor. The logger may be nil.
func NewExtractor(o oracle.Oracle, repairer *Repairer, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{oracle: o, repairer: repairer, log: log}
}

// ExtractTask asks the oracle for at most one actionable task in the content
// unit. Relevance results, when available, are passed as context so the
// oracle avoids duplicating existing quests.
func (e *Extractor) ExtractTask(ctx context.Context, content *models.ContentUnit, relevance []models.RelevanceResult) (*models.TaskSuggestion, error) {
	prompt := buildTaskExtractionPrompt(content, relevance)
	raw, err := e.oracle.Generate(ctx, prompt, oracle.GenerateOptions{Structured: true})
	if err != nil {
		e.log.Debug("task_extraction_failed", zap.String("content_id", content.ID.String()), zap.Error(err))
		return nil, err
	}

	rec := Decode[taskSuggestionRecord](ctx, e.repairer, raw, taskSuggestionShape)
	if rec == nil || rec.empty() {
		return nil, nil
	}
	return rec.toSuggestion(content.ID), nil
}

// ExtractGoal asks the oracle whether the content unit expresses a new
// long-running goal.
func (e *Extractor) ExtractGoal(ctx context.Context, content *models.ContentUnit, relevance []models.RelevanceResult) (*models.GoalSuggestion, error) {
	prompt := buildGoalExtractionPrompt(content, relevance)
	raw, err := e.oracle.Generate(ctx, prompt, oracle.GenerateOptions{Structured: true})
	if err != nil {
		e.log.Debug("goal_extraction_failed", zap.String("content_id", content.ID.String()), zap.Error(err))
		return nil, err
	}

	rec := Decode[goalSuggestionRecord](ctx, e.repairer, raw, goalSuggestionShape)
	if rec == nil || rec.empty() {
		return nil, nil
	}

	goal := &models.GoalSuggestion{
		ID:              models.NewSuggestionID(),
		SourceContentID: content.ID,
		Title:           *rec.Title,
		Tagline:         rec.Tagline,
		Description:     rec.Description,
		StartDate:       parseDate(rec.StartDate),
		EndDate:         parseDate(rec.EndDate),
	}
	for i := range rec.RelatedTasks {
		goal.RelatedTasks = append(goal.RelatedTasks, *rec.RelatedTasks[i].toSuggestion(content.ID))
	}
	return goal, nil
}

// UpgradeTaskToGoal grows an existing task suggestion into a goal suggestion.
// The original task becomes the goal's first related task with its priority
// and tags preserved; the oracle contributes the goal framing and one to
// three additional tasks.
func (e *Extractor) UpgradeTaskToGoal(ctx context.Context, task *models.TaskSuggestion) (*models.GoalSuggestion, error) {
	prompt := buildUpgradePrompt(task)
	raw, err := e.oracle.Generate(ctx, prompt, oracle.GenerateOptions{Structured: true})
	if err != nil {
		e.log.Debug("upgrade_failed", zap.String("suggestion_id", task.ID), zap.Error(err))
		return nil, err
	}

	rec := Decode[upgradeRecord](ctx, e.repairer, raw, upgradeShape)
	if rec == nil {
		return nil, nil
	}

	original := *task
	original.ID = models.NewSuggestionID()

	goal := &models.GoalSuggestion{
		ID:              models.NewSuggestionID(),
		SourceContentID: task.SourceContentID,
		Title:           task.Title,
		Tagline:         rec.Tagline,
		Description:     rec.Description,
		StartDate:       parseDate(rec.StartDate),
		EndDate:         parseDate(rec.EndDate),
		RelatedTasks:    []models.TaskSuggestion{original},
	}
	for i := range rec.AdditionalTasks {
		extra := rec.AdditionalTasks[i]
		if extra.Title != nil && models.TitlesEqual(*extra.Title, task.Title) {
			continue
		}
		goal.RelatedTasks = append(goal.RelatedTasks, *extra.toSuggestion(task.SourceContentID))
	}
	return goal, nil
}
