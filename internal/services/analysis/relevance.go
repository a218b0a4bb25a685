package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/benvon/questline/internal/models"
	"github.com/benvon/questline/internal/services/oracle"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// relevanceAttempts is the per-quest retry budget: a second full-prompt
	// attempt is made when the first response fails schema validation. This
	// is separate from the repairer's single repair call per attempt.
	relevanceAttempts = 2
	// relevanceParallelism bounds concurrent per-quest oracle calls
	relevanceParallelism = 4
)

// relevanceRecord is the wire shape for one quest-level relevance judgment.
type relevanceRecord struct {
	QuestID       *int64               `json:"quest_id"`
	IsRelevant    *bool                `json:"is_relevant"`
	Explanation   string               `json:"explanation"`
	RelevantTasks []relevantTaskRecord `json:"relevant_tasks"`
}

type relevantTaskRecord struct {
	TaskID      *int64 `json:"task_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Explanation string `json:"explanation"`
}

func (r *relevanceRecord) Normalize() {
	r.Explanation = cleanString(r.Explanation)
	kept := r.RelevantTasks[:0]
	for _, task := range r.RelevantTasks {
		if task.TaskID == nil {
			continue
		}
		task.Name = cleanString(task.Name)
		task.Description = cleanString(task.Description)
		task.Explanation = cleanString(task.Explanation)
		kept = append(kept, task)
	}
	r.RelevantTasks = kept
}

func (r *relevanceRecord) Validate() error {
	if r.QuestID == nil {
		return fmt.Errorf("quest_id is required")
	}
	if r.IsRelevant == nil {
		return fmt.Errorf("is_relevant is required")
	}
	return nil
}

// taskRelevanceRecord is the wire shape for a single unassigned-bucket task.
type taskRelevanceRecord struct {
	TaskID      *int64 `json:"task_id"`
	IsRelevant  *bool  `json:"is_relevant"`
	Explanation string `json:"explanation"`
}

func (r *taskRelevanceRecord) Normalize() {
	r.Explanation = cleanString(r.Explanation)
}

func (r *taskRelevanceRecord) Validate() error {
	if r.TaskID == nil {
		return fmt.Errorf("task_id is required")
	}
	if r.IsRelevant == nil {
		return fmt.Errorf("is_relevant is required")
	}
	return nil
}

// Matcher determines which existing quests and tasks a content unit is
// relevant to. Wording and semantics are delegated to the oracle; the
// matcher owns per-quest iteration, the retry budget and aggregation.
type Matcher struct {
	oracle   oracle.Oracle
	repairer *Repairer
	log      *zap.Logger
}

// NewMatcher creates a relevance matcher. The logger may be nil.
func NewMatcher(o oracle.Oracle, repairer *Repairer, log *zap.Logger) *Matcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Matcher{oracle: o, repairer: repairer, log: log}
}

// FindRelevant analyzes the content unit against every quest in parallel and
// returns only relevant results. A quest whose analysis fails both attempts
// is treated as not relevant, never as an error; the returned error only
// aggregates transport failures so callers can observe rate limiting, and is
// non-nil even when usable results are returned alongside it.
func (m *Matcher) FindRelevant(ctx context.Context, content *models.ContentUnit, quests []models.Quest) ([]models.RelevanceResult, error) {
	if len(quests) == 0 {
		return nil, nil
	}

	results := make([]*models.RelevanceResult, len(quests))
	var mu sync.Mutex
	var transportErrs []error

	collectErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		transportErrs = append(transportErrs, err)
	}

	bucketIdx := -1
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(relevanceParallelism)
	for i := range quests {
		if quests[i].Unassigned {
			bucketIdx = i
		}
		g.Go(func() error {
			quest := &quests[i]
			if quest.Unassigned {
				results[i] = m.analyzeUnassignedBucket(gctx, content, quest, collectErr)
			} else {
				results[i] = m.analyzeQuest(gctx, content, quest, collectErr)
			}
			// Per-quest failures never cancel sibling analyses.
			return nil
		})
	}
	// The goroutines only return nil; Wait is for completion, not errors.
	_ = g.Wait()

	relevant := reassignBucketTasks(results, bucketIdx)

	return relevant, errors.Join(transportErrs...)
}

// analyzeQuest judges one named quest, retrying the full prompt once if the
// first response cannot be validated.
func (m *Matcher) analyzeQuest(ctx context.Context, content *models.ContentUnit, quest *models.Quest, collectErr func(error)) *models.RelevanceResult {
	prompt := buildRelevancePrompt(content, quest)

	for attempt := 1; attempt <= relevanceAttempts; attempt++ {
		raw, err := m.oracle.Generate(ctx, prompt, oracle.GenerateOptions{Structured: true})
		if err != nil {
			collectErr(err)
			m.log.Debug("relevance_attempt_failed",
				zap.Int64("quest_id", quest.ID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}

		rec := Decode[relevanceRecord](ctx, m.repairer, raw, relevanceShape)
		if rec == nil {
			m.log.Debug("relevance_discarded",
				zap.Int64("quest_id", quest.ID),
				zap.Int("attempt", attempt),
			)
			continue
		}

		if !*rec.IsRelevant {
			return nil
		}
		result := &models.RelevanceResult{
			QuestID:     quest.ID,
			IsRelevant:  true,
			Explanation: optionalString(rec.Explanation),
		}
		known := make(map[int64]bool, len(quest.Tasks))
		for _, task := range quest.Tasks {
			known[task.ID] = true
		}
		for _, task := range rec.RelevantTasks {
			if !known[*task.TaskID] {
				continue
			}
			result.RelevantTasks = append(result.RelevantTasks, models.RelevantTask{
				TaskID:      *task.TaskID,
				Name:        task.Name,
				Description: task.Description,
				Explanation: task.Explanation,
			})
		}
		return result
	}

	// Both attempts exhausted: not relevant.
	return nil
}

// analyzeUnassignedBucket judges each task of the misc bucket independently
// with the narrower per-task prompt, since the bucket itself carries no
// coherent theme.
func (m *Matcher) analyzeUnassignedBucket(ctx context.Context, content *models.ContentUnit, bucket *models.Quest, collectErr func(error)) *models.RelevanceResult {
	var relevantTasks []models.RelevantTask

	for i := range bucket.Tasks {
		task := &bucket.Tasks[i]
		if rec := m.analyzeBucketTask(ctx, content, task, collectErr); rec != nil {
			relevantTasks = append(relevantTasks, models.RelevantTask{
				TaskID:      *rec.TaskID,
				Name:        task.Title,
				Description: task.Description,
				Explanation: rec.Explanation,
			})
		}
	}

	if len(relevantTasks) == 0 {
		return nil
	}
	return &models.RelevanceResult{
		QuestID:       bucket.ID,
		IsRelevant:    true,
		RelevantTasks: relevantTasks,
	}
}

func (m *Matcher) analyzeBucketTask(ctx context.Context, content *models.ContentUnit, task *models.Task, collectErr func(error)) *taskRelevanceRecord {
	prompt := buildUnassignedTaskPrompt(content, task)

	for attempt := 1; attempt <= relevanceAttempts; attempt++ {
		raw, err := m.oracle.Generate(ctx, prompt, oracle.GenerateOptions{Structured: true})
		if err != nil {
			collectErr(err)
			m.log.Debug("relevance_attempt_failed",
				zap.Int64("task_id", task.ID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}

		rec := Decode[taskRelevanceRecord](ctx, m.repairer, raw, taskRelevanceShape)
		if rec == nil {
			m.log.Debug("relevance_discarded",
				zap.Int64("task_id", task.ID),
				zap.Int("attempt", attempt),
			)
			continue
		}

		if !*rec.IsRelevant || *rec.TaskID != task.ID {
			return nil
		}
		return rec
	}

	return nil
}

// reassignBucketTasks applies the post-pass over per-quest results: a bucket
// task that also matched under a named quest has found a more specific home
// and is removed from the bucket's list. A bucket emptied this way drops out
// entirely.
func reassignBucketTasks(results []*models.RelevanceResult, bucketIdx int) []models.RelevanceResult {
	claimed := make(map[int64]bool)
	var relevant []models.RelevanceResult

	for i, r := range results {
		if r == nil || i == bucketIdx {
			continue
		}
		for _, task := range r.RelevantTasks {
			claimed[task.TaskID] = true
		}
		relevant = append(relevant, *r)
	}

	if bucketIdx == -1 || results[bucketIdx] == nil {
		return relevant
	}

	bucket := results[bucketIdx]
	kept := bucket.RelevantTasks[:0]
	for _, task := range bucket.RelevantTasks {
		if !claimed[task.TaskID] {
			kept = append(kept, task)
		}
	}
	if len(kept) > 0 {
		bucket.RelevantTasks = kept
		relevant = append(relevant, *bucket)
	}
	return relevant
}
