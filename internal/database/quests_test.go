package database

import (
	"testing"

	"github.com/benvon/questline/internal/models"
)

// Note: Full integration testing of GetByUserID requires a database.
// This test focuses on the task distribution logic.
func TestAttachTasks(t *testing.T) {
	t.Parallel()

	questID := int64(1)
	unknownID := int64(99)

	tests := []struct {
		name      string
		quests    []models.Quest
		tasks     []models.Task
		wantPerID map[int64][]string
	}{
		{
			name: "task attached to its quest",
			quests: []models.Quest{
				{ID: 1, Title: "Get fit"},
			},
			tasks: []models.Task{
				{ID: 10, Title: "Run 5k", QuestID: &questID},
			},
			wantPerID: map[int64][]string{1: {"Run 5k"}},
		},
		{
			name: "nil quest id lands in the unassigned bucket",
			quests: []models.Quest{
				{ID: 1, Title: "Get fit"},
				{ID: 2, Unassigned: true},
			},
			tasks: []models.Task{
				{ID: 10, Title: "Run 5k", QuestID: &questID},
				{ID: 11, Title: "Book dentist"},
			},
			wantPerID: map[int64][]string{1: {"Run 5k"}, 2: {"Book dentist"}},
		},
		{
			name: "nil quest id dropped when no bucket exists",
			quests: []models.Quest{
				{ID: 1, Title: "Get fit"},
			},
			tasks: []models.Task{
				{ID: 11, Title: "Book dentist"},
			},
			wantPerID: map[int64][]string{1: nil},
		},
		{
			name: "unknown quest id dropped",
			quests: []models.Quest{
				{ID: 1, Title: "Get fit"},
				{ID: 2, Unassigned: true},
			},
			tasks: []models.Task{
				{ID: 12, Title: "Orphaned", QuestID: &unknownID},
			},
			wantPerID: map[int64][]string{1: nil, 2: nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			attachTasks(tt.quests, tt.tasks)

			for _, quest := range tt.quests {
				want := tt.wantPerID[quest.ID]
				if len(quest.Tasks) != len(want) {
					t.Errorf("Quest %d holds %d tasks, want %d", quest.ID, len(quest.Tasks), len(want))
					continue
				}
				for i, title := range want {
					if quest.Tasks[i].Title != title {
						t.Errorf("Quest %d task %d = %q, want %q", quest.ID, i, quest.Tasks[i].Title, title)
					}
				}
			}
		})
	}
}
