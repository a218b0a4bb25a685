package models

import "testing"

func TestTaskStatusCanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		current TaskStatus
		next    TaskStatus
		want    bool
	}{
		{"todo to in_progress", TaskStatusToDo, TaskStatusInProgress, true},
		{"todo to done", TaskStatusToDo, TaskStatusDone, true},
		{"in_progress to done", TaskStatusInProgress, TaskStatusDone, true},
		{"in_progress to in_progress is a no-op", TaskStatusInProgress, TaskStatusInProgress, false},
		{"done to in_progress", TaskStatusDone, TaskStatusInProgress, false},
		{"done to done", TaskStatusDone, TaskStatusDone, false},
		{"todo to todo", TaskStatusToDo, TaskStatusToDo, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.current.CanTransitionTo(tt.next); got != tt.want {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.current, tt.next, got, tt.want)
			}
		})
	}
}

func TestTaskIsActive(t *testing.T) {
	t.Parallel()

	for status, want := range map[TaskStatus]bool{
		TaskStatusToDo:       true,
		TaskStatusInProgress: true,
		TaskStatusDone:       false,
	} {
		task := &Task{Status: status}
		if got := task.IsActive(); got != want {
			t.Errorf("IsActive() with status %s = %v, want %v", status, got, want)
		}
	}
}

func TestTaskSuggestionContentEqual(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{"identical titles", "Build login page", "Build login page", true},
		{"case insensitive", "build LOGIN page", "Build login page", true},
		{"surrounding whitespace ignored", "  Build login page \n", "Build login page", true},
		{"different titles", "Build login page", "Write API docs", false},
		{"internal whitespace matters", "Buildlogin page", "Build login page", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := &TaskSuggestion{Title: tt.a}
			b := &TaskSuggestion{Title: tt.b}
			if got := a.ContentEqual(b); got != tt.want {
				t.Errorf("ContentEqual(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
