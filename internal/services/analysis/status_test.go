package analysis

import (
	"context"
	"fmt"
	"testing"

	"github.com/benvon/questline/internal/models"
)

func activeTask(id int64, title string, status models.TaskStatus) models.Task {
	return models.Task{ID: id, Title: title, Status: status}
}

func TestDetectChangeNoActiveTasks(t *testing.T) {
	t.Parallel()

	fake := &fakeOracle{}
	d := NewDetector(fake, NewRepairer(fake, nil), nil)

	change, err := d.DetectChange(context.Background(), testContent("finished everything"), nil)
	if err != nil || change != nil {
		t.Errorf("Expected nil/nil with no active tasks, got %v/%v", change, err)
	}
	if fake.callCount() != 0 {
		t.Errorf("Expected no oracle calls, got %d", fake.callCount())
	}
}

func TestDetectChange(t *testing.T) {
	t.Parallel()

	tasks := []models.Task{
		activeTask(5, "Build login page", models.TaskStatusInProgress),
		activeTask(6, "Write docs", models.TaskStatusToDo),
	}

	tests := []struct {
		name     string
		response string
		want     *models.StatusChange
	}{
		{
			name:     "confident completion",
			response: `{"task_id": 5, "new_status": "done", "confidence": 0.95, "reason": "User says the page is finished"}`,
			want:     &models.StatusChange{TaskID: 5, NewStatus: models.TaskStatusDone, Confidence: 0.95},
		},
		{
			name:     "exactly at the floor",
			response: `{"task_id": 5, "new_status": "done", "confidence": 0.88, "reason": "maybe"}`,
			want:     nil,
		},
		{
			name:     "just above the floor",
			response: `{"task_id": 6, "new_status": "in_progress", "confidence": 0.89, "reason": "started writing"}`,
			want:     &models.StatusChange{TaskID: 6, NewStatus: models.TaskStatusInProgress, Confidence: 0.89},
		},
		{
			name:     "below the floor",
			response: `{"task_id": 5, "new_status": "done", "confidence": 0.87, "reason": "vague"}`,
			want:     nil,
		},
		{
			name:     "no change detected",
			response: `{"task_id": null, "new_status": null, "confidence": 0.1, "reason": "nothing relevant"}`,
			want:     nil,
		},
		{
			name:     "unknown task id",
			response: `{"task_id": 42, "new_status": "done", "confidence": 0.99, "reason": "confident but wrong"}`,
			want:     nil,
		},
		{
			name:     "redundant in_progress transition",
			response: `{"task_id": 5, "new_status": "in_progress", "confidence": 0.95, "reason": "already started"}`,
			want:     nil,
		},
		{
			name:     "unreachable status",
			response: `{"task_id": 6, "new_status": "todo", "confidence": 0.95, "reason": "cannot go back"}`,
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fake := &fakeOracle{respond: func(string) (string, error) { return tt.response, nil }}
			d := NewDetector(fake, NewRepairer(fake, nil), nil)

			change, err := d.DetectChange(context.Background(), testContent("update"), tasks)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.want == nil {
				if change != nil {
					t.Errorf("Expected change to be discarded, got %+v", change)
				}
				return
			}
			if change == nil {
				t.Fatal("Expected a status change, got nil")
			}
			if change.TaskID != tt.want.TaskID || change.NewStatus != tt.want.NewStatus || change.Confidence != tt.want.Confidence {
				t.Errorf("Change = %+v, want %+v", change, tt.want)
			}
		})
	}
}

func TestDetectChangeTransportError(t *testing.T) {
	t.Parallel()

	fake := &fakeOracle{respond: func(string) (string, error) { return "", fmt.Errorf("connection reset") }}
	d := NewDetector(fake, NewRepairer(fake, nil), nil)

	change, err := d.DetectChange(context.Background(), testContent("update"), []models.Task{activeTask(1, "Task", models.TaskStatusToDo)})
	if change != nil {
		t.Errorf("Expected no change, got %+v", change)
	}
	if err == nil {
		t.Error("Expected transport error to surface")
	}
}
