package models

// StatusChange is a detected implicit status transition on an active task.
// It is consumed immediately to mutate the task through the goal store and
// never stored by the pipeline.
type StatusChange struct {
	TaskID     int64      `json:"task_id"`
	NewStatus  TaskStatus `json:"new_status"`
	Confidence float64    `json:"confidence"`
	Reason     string     `json:"reason"`
}
