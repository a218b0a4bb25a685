package models

// RelevantTask identifies a single task implicated by a content unit,
// with the oracle's explanation of why.
type RelevantTask struct {
	TaskID      int64  `json:"task_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Explanation string `json:"explanation"`
}

// RelevanceResult is the judgment for one (content unit, quest) pair.
// It is transient: computed by the relevance matcher, consumed by the
// extractor, never persisted.
type RelevanceResult struct {
	QuestID       int64          `json:"quest_id"`
	IsRelevant    bool           `json:"is_relevant"`
	Explanation   *string        `json:"explanation,omitempty"`
	RelevantTasks []RelevantTask `json:"relevant_tasks"`
}
