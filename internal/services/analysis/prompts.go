package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/benvon/questline/internal/models"
)

// Shape descriptions are embedded in extraction prompts and reused verbatim
// by the repair round-trip, so the oracle sees the same contract both times.

const relevanceShapeDescription = `{
  "quest_id": <integer, the quest id given in the prompt>,
  "is_relevant": <boolean>,
  "explanation": <string, one sentence, or null>,
  "relevant_tasks": [
    {"task_id": <integer>, "name": <string>, "description": <string>, "explanation": <string>}
  ]
}`

const taskRelevanceShapeDescription = `{
  "task_id": <integer, the task id given in the prompt>,
  "is_relevant": <boolean>,
  "explanation": <string, one sentence, or null>
}`

const taskSuggestionShapeDescription = `{
  "title": <string, short imperative phrase>,
  "description": <string>,
  "scheduled_for": <string "YYYY-MM-DD" or null>,
  "deadline": <string "YYYY-MM-DD" or null>,
  "location": <string or null>,
  "priority": <"low" | "medium" | "high">,
  "tags": [<string>, ...]
}`

const goalSuggestionShapeDescription = `{
  "title": <string>,
  "tagline": <string, one short motivating line>,
  "description": <string>,
  "start_date": <string "YYYY-MM-DD" or null>,
  "end_date": <string "YYYY-MM-DD" or null>,
  "related_tasks": [` + "\n" + taskSuggestionShapeDescription + `, ...]
}`

const upgradeShapeDescription = `{
  "tagline": <string, one short motivating line>,
  "description": <string>,
  "start_date": <string "YYYY-MM-DD" or null>,
  "end_date": <string "YYYY-MM-DD" or null>,
  "additional_tasks": [` + "\n" + taskSuggestionShapeDescription + `, ...]
}`

const statusChangeShapeDescription = `{
  "task_id": <integer, one of the ids given in the prompt, or null>,
  "new_status": <"in_progress" | "done" | null>,
  "confidence": <number between 0 and 1>,
  "reason": <string, one sentence>
}`

var (
	relevanceShape      = Shape{Name: "quest_relevance", Description: relevanceShapeDescription}
	taskRelevanceShape  = Shape{Name: "task_relevance", Description: taskRelevanceShapeDescription}
	taskSuggestionShape = Shape{Name: "task_suggestion", Description: taskSuggestionShapeDescription}
	goalSuggestionShape = Shape{Name: "goal_suggestion", Description: goalSuggestionShapeDescription}
	upgradeShape        = Shape{Name: "goal_upgrade", Description: upgradeShapeDescription}
	statusChangeShape   = Shape{Name: "status_change", Description: statusChangeShapeDescription}
)

// writeContentContext appends the content text plus the time/source context
// the oracle needs to resolve relative expressions like "this weekend".
func writeContentContext(b *strings.Builder, content *models.ContentUnit) {
	fmt.Fprintf(b, "User text (%s entry):\n%q\n", content.SourceKind, content.Text)
	b.WriteString("\nTime context:")
	fmt.Fprintf(b, "\n- Current date and time: %s", time.Now().Format(time.RFC3339))
	fmt.Fprintf(b, "\n- Text was written at: %s", content.CreatedAt.Format(time.RFC3339))
}

func buildRelevancePrompt(content *models.ContentUnit, quest *models.Quest) string {
	var b strings.Builder
	b.WriteString("Decide whether the following user text is relevant to the quest described below, and if so, which of its tasks it concerns.\n\n")
	writeContentContext(&b, content)

	fmt.Fprintf(&b, "\n\nQuest (id %d, status %s): %s\n%s\n", quest.ID, quest.Status, quest.Title, quest.Description)
	if len(quest.Tasks) > 0 {
		b.WriteString("\nTasks:")
		for _, task := range quest.Tasks {
			fmt.Fprintf(&b, "\n- id %d (%s): %s — %s", task.ID, task.Status, task.Title, task.Description)
		}
	}

	b.WriteString("\n\nRespond with a JSON object in this format:\n")
	b.WriteString(relevanceShapeDescription)
	b.WriteString("\n\nGuidelines:")
	b.WriteString("\n- Mark the quest relevant only if the text meaningfully pertains to its theme or to one of its tasks.")
	b.WriteString("\n- List only tasks the text actually concerns; an empty relevant_tasks array is fine.")
	b.WriteString("\n- Use the task ids exactly as given above.")
	b.WriteString("\n\nReturn only valid JSON.")
	return b.String()
}

// buildUnassignedTaskPrompt is the narrower prompt for tasks living in the
// unassigned bucket. The bucket carries no theme of its own, so each task is
// judged on its own title and description only.
func buildUnassignedTaskPrompt(content *models.ContentUnit, task *models.Task) string {
	var b strings.Builder
	b.WriteString("Decide whether the following user text is relevant to this single standalone task.\n\n")
	writeContentContext(&b, content)

	fmt.Fprintf(&b, "\n\nTask (id %d, status %s): %s — %s\n", task.ID, task.Status, task.Title, task.Description)

	b.WriteString("\nRespond with a JSON object in this format:\n")
	b.WriteString(taskRelevanceShapeDescription)
	b.WriteString("\n\nReturn only valid JSON.")
	return b.String()
}

func writeRelevanceContext(b *strings.Builder, relevance []models.RelevanceResult) {
	if len(relevance) == 0 {
		return
	}
	b.WriteString("\n\nFor context, the text was judged relevant to these existing quests:")
	for _, r := range relevance {
		explanation := ""
		if r.Explanation != nil {
			explanation = " — " + *r.Explanation
		}
		fmt.Fprintf(b, "\n- quest id %d%s", r.QuestID, explanation)
	}
	b.WriteString("\nPrefer a suggestion that complements rather than duplicates those quests.")
}

func buildTaskExtractionPrompt(content *models.ContentUnit, relevance []models.RelevanceResult) string {
	var b strings.Builder
	b.WriteString("Extract at most one concrete, actionable task from the following user text.\n\n")
	writeContentContext(&b, content)
	writeRelevanceContext(&b, relevance)

	b.WriteString("\n\nRespond with a JSON object in this format:\n")
	b.WriteString(taskSuggestionShapeDescription)
	b.WriteString("\n\nGuidelines:")
	b.WriteString("\n- Only extract a task the user plausibly intends to do; do not invent work.")
	b.WriteString("\n- If the text contains no actionable task, respond with the JSON object {\"title\": null}.")
	b.WriteString("\n- Resolve relative dates against the time context above.")
	b.WriteString("\n\nReturn only valid JSON.")
	return b.String()
}

func buildGoalExtractionPrompt(content *models.ContentUnit, relevance []models.RelevanceResult) string {
	var b strings.Builder
	b.WriteString("Decide whether the following user text expresses a new long-running goal, and if so, extract it.\n\n")
	writeContentContext(&b, content)
	writeRelevanceContext(&b, relevance)

	b.WriteString("\n\nRespond with a JSON object in this format:\n")
	b.WriteString(goalSuggestionShapeDescription)
	b.WriteString("\n\nGuidelines:")
	b.WriteString("\n- A goal is a sustained objective (weeks or longer), not a one-off errand.")
	b.WriteString("\n- If the text expresses no new goal, respond with the JSON object {\"title\": null}.")
	b.WriteString("\n- related_tasks may propose up to three concrete first steps toward the goal.")
	b.WriteString("\n\nReturn only valid JSON.")
	return b.String()
}

func buildUpgradePrompt(task *models.TaskSuggestion) string {
	var b strings.Builder
	b.WriteString("The user wants to grow the following task into a full quest.\n\n")
	fmt.Fprintf(&b, "Task: %s\n%s\n", task.Title, task.Description)

	b.WriteString("\nRespond with a JSON object in this format:\n")
	b.WriteString(upgradeShapeDescription)
	b.WriteString("\n\nGuidelines:")
	b.WriteString("\n- additional_tasks must contain between 1 and 3 new sub-tasks that, together with the original task, advance the quest.")
	b.WriteString("\n- Do not repeat the original task in additional_tasks.")
	b.WriteString("\n\nReturn only valid JSON.")
	return b.String()
}

func buildStatusPrompt(content *models.ContentUnit, activeTasks []models.Task) string {
	var b strings.Builder
	b.WriteString("Decide whether the following user text implies that one of the active tasks below was started or finished.\n\n")
	writeContentContext(&b, content)

	b.WriteString("\n\nActive tasks:")
	for _, task := range activeTasks {
		fmt.Fprintf(&b, "\n- id %d (currently %s): %s — %s", task.ID, task.Status, task.Title, task.Description)
	}

	b.WriteString("\n\nRespond with a JSON object in this format:\n")
	b.WriteString(statusChangeShapeDescription)
	b.WriteString("\n\nGuidelines:")
	b.WriteString("\n- \"in_progress\" means the user has clearly started working on the task; \"done\" means they finished it.")
	b.WriteString("\n- Set task_id and new_status to null unless the text clearly refers to one of the listed tasks.")
	b.WriteString("\n- confidence reflects how certain you are; be conservative.")
	b.WriteString("\n\nReturn only valid JSON.")
	return b.String()
}
