package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benvon/questline/internal/models"
	"github.com/benvon/questline/internal/services/oracle"
	"github.com/google/uuid"
)

func testContent(text string) *models.ContentUnit {
	return &models.ContentUnit{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Text:       text,
		SourceKind: models.SourceKindJournal,
		CreatedAt:  time.Now(),
	}
}

func namedQuest(id int64, title string, tasks ...models.Task) models.Quest {
	return models.Quest{ID: id, Title: title, Status: models.QuestStatusActive, Tasks: tasks}
}

func TestFindRelevantNoQuests(t *testing.T) {
	t.Parallel()

	fake := &fakeOracle{}
	m := NewMatcher(fake, NewRepairer(fake, nil), nil)

	results, err := m.FindRelevant(context.Background(), testContent("anything"), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if results != nil {
		t.Errorf("Expected nil results, got %v", results)
	}
	if fake.callCount() != 0 {
		t.Errorf("Expected no oracle calls, got %d", fake.callCount())
	}
}

func TestFindRelevantFiltersUnknownTasks(t *testing.T) {
	t.Parallel()

	fake := &fakeOracle{
		respond: func(string) (string, error) {
			return `{"quest_id": 1, "is_relevant": true, "explanation": "fitness talk",
				"relevant_tasks": [
					{"task_id": 10, "name": "Run 5k", "description": "", "explanation": "mentions running"},
					{"task_id": 99, "name": "Invented", "description": "", "explanation": "hallucinated"}
				]}`, nil
		},
	}
	m := NewMatcher(fake, NewRepairer(fake, nil), nil)

	quests := []models.Quest{
		namedQuest(1, "Get fit", models.Task{ID: 10, Title: "Run 5k", Status: models.TaskStatusToDo}),
	}
	results, err := m.FindRelevant(context.Background(), testContent("went for a run"), quests)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if len(results[0].RelevantTasks) != 1 || results[0].RelevantTasks[0].TaskID != 10 {
		t.Errorf("Expected only known task 10, got %+v", results[0].RelevantTasks)
	}
	if results[0].Explanation == nil || *results[0].Explanation != "fitness talk" {
		t.Errorf("Explanation = %v, want fitness talk", results[0].Explanation)
	}
}

func TestFindRelevantRetriesInvalidResponse(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	fake := &fakeOracle{
		respond: func(prompt string) (string, error) {
			if strings.Contains(prompt, RepairMarkerBegin) {
				return RepairMarkerBegin + "null" + RepairMarkerEnd, nil
			}
			if calls.Add(1) == 1 {
				return "sorry, I cannot help with that", nil
			}
			return `{"quest_id": 2, "is_relevant": true, "explanation": null, "relevant_tasks": []}`, nil
		},
	}
	m := NewMatcher(fake, NewRepairer(fake, nil), nil)

	results, err := m.FindRelevant(context.Background(), testContent("text"), []models.Quest{namedQuest(2, "Learn piano")})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].QuestID != 2 {
		t.Fatalf("Expected quest 2 relevant after retry, got %v", results)
	}
	if results[0].Explanation != nil {
		t.Errorf("Expected nil explanation for JSON null, got %q", *results[0].Explanation)
	}
}

func TestFindRelevantExhaustedAttemptsMeansNotRelevant(t *testing.T) {
	t.Parallel()

	fake := &fakeOracle{
		respond: func(prompt string) (string, error) {
			if strings.Contains(prompt, RepairMarkerBegin) {
				return RepairMarkerBegin + "null" + RepairMarkerEnd, nil
			}
			return "still not json", nil
		},
	}
	m := NewMatcher(fake, NewRepairer(fake, nil), nil)

	results, err := m.FindRelevant(context.Background(), testContent("text"), []models.Quest{namedQuest(3, "Quest")})
	if err != nil {
		t.Fatalf("Validation failures must not surface as errors, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no results, got %v", results)
	}
	// 2 full attempts, each with 1 repair call.
	if fake.callCount() != 4 {
		t.Errorf("Expected 4 oracle calls, got %d", fake.callCount())
	}
}

func TestFindRelevantAggregatesTransportErrors(t *testing.T) {
	t.Parallel()

	fake := &fakeOracle{
		respond: func(string) (string, error) {
			return "", fmt.Errorf("generate: %w", oracle.ErrRateLimited)
		},
	}
	m := NewMatcher(fake, NewRepairer(fake, nil), nil)

	results, err := m.FindRelevant(context.Background(), testContent("text"), []models.Quest{namedQuest(4, "Quest")})
	if len(results) != 0 {
		t.Errorf("Expected no results, got %v", results)
	}
	if !errors.Is(err, oracle.ErrRateLimited) {
		t.Errorf("Expected rate limit to be observable, got %v", err)
	}
}

func TestFindRelevantUnassignedBucket(t *testing.T) {
	t.Parallel()

	fake := &fakeOracle{
		respond: func(prompt string) (string, error) {
			switch {
			case strings.Contains(prompt, "single standalone task") && strings.Contains(prompt, "id 20"):
				return `{"task_id": 20, "is_relevant": true, "explanation": "about the dentist"}`, nil
			case strings.Contains(prompt, "single standalone task"):
				return `{"task_id": 21, "is_relevant": false, "explanation": null}`, nil
			default:
				return `{"quest_id": 1, "is_relevant": false, "explanation": null, "relevant_tasks": []}`, nil
			}
		},
	}
	m := NewMatcher(fake, NewRepairer(fake, nil), nil)

	quests := []models.Quest{
		namedQuest(1, "Get fit"),
		{
			ID:         5,
			Unassigned: true,
			Tasks: []models.Task{
				{ID: 20, Title: "Book dentist", Status: models.TaskStatusToDo},
				{ID: 21, Title: "Renew passport", Status: models.TaskStatusToDo},
			},
		},
	}
	results, err := m.FindRelevant(context.Background(), testContent("need to call the dentist"), quests)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected only the bucket result, got %v", results)
	}
	r := results[0]
	if r.QuestID != 5 || len(r.RelevantTasks) != 1 || r.RelevantTasks[0].TaskID != 20 {
		t.Errorf("Unexpected bucket result: %+v", r)
	}
	if r.Explanation != nil {
		t.Errorf("Bucket result should carry no quest-level explanation, got %q", *r.Explanation)
	}
}

func TestFindRelevantReassignsBucketTasks(t *testing.T) {
	t.Parallel()

	// Task 30 matches both under the named quest and in the bucket; the
	// named match wins and the emptied bucket drops out.
	fake := &fakeOracle{
		respond: func(prompt string) (string, error) {
			if strings.Contains(prompt, "single standalone task") {
				return `{"task_id": 30, "is_relevant": true, "explanation": "matches"}`, nil
			}
			return `{"quest_id": 1, "is_relevant": true, "explanation": "theme match",
				"relevant_tasks": [{"task_id": 30, "name": "Shared", "description": "", "explanation": "same task"}]}`, nil
		},
	}
	m := NewMatcher(fake, NewRepairer(fake, nil), nil)

	quests := []models.Quest{
		namedQuest(1, "Organize move", models.Task{ID: 30, Title: "Shared", Status: models.TaskStatusToDo}),
		{ID: 9, Unassigned: true, Tasks: []models.Task{{ID: 30, Title: "Shared", Status: models.TaskStatusToDo}}},
	}
	results, err := m.FindRelevant(context.Background(), testContent("moving day"), quests)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected the bucket to be dropped, got %v", results)
	}
	if results[0].QuestID != 1 {
		t.Errorf("Expected the named quest to keep the task, got quest %d", results[0].QuestID)
	}
}
