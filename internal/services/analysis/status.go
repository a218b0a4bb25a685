package analysis

import (
	"context"
	"fmt"

	"github.com/benvon/questline/internal/models"
	"github.com/benvon/questline/internal/services/oracle"
	"go.uber.org/zap"
)

// ConfidenceFloor is the exclusive lower bound for acting on a detected
// status change. A change at exactly the floor is discarded.
const ConfidenceFloor = 0.88

// statusChangeRecord is the wire shape for a detected status transition.
// Null task_id or new_status is the oracle's no-change answer.
type statusChangeRecord struct {
	TaskID     *int64   `json:"task_id"`
	NewStatus  *string  `json:"new_status"`
	Confidence *float64 `json:"confidence"`
	Reason     string   `json:"reason"`
}

func (r *statusChangeRecord) Normalize() {
	if r.NewStatus != nil {
		if cleaned := cleanString(*r.NewStatus); cleaned == "" {
			r.NewStatus = nil
		} else {
			r.NewStatus = &cleaned
		}
	}
	r.Reason = cleanString(r.Reason)
}

func (r *statusChangeRecord) Validate() error {
	if r.TaskID == nil || r.NewStatus == nil {
		// The explicit no-change answer is a valid record.
		return nil
	}
	if r.Confidence == nil || *r.Confidence < 0 || *r.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1")
	}
	switch models.TaskStatus(*r.NewStatus) {
	case models.TaskStatusInProgress, models.TaskStatusDone:
		return nil
	default:
		return fmt.Errorf("new_status %q is not a reachable status", *r.NewStatus)
	}
}

func (r *statusChangeRecord) empty() bool {
	return r.TaskID == nil || r.NewStatus == nil
}

// Detector recognizes when a content unit implies an active task was started
// or finished. It is deliberately conservative: anything below or at the
// confidence floor, any unknown task id, and any illegal transition is
// discarded rather than surfaced.
type Detector struct {
	oracle   oracle.Oracle
	repairer *Repairer
	log      *zap.Logger
}

// NewDetector creates a status-change detector. The logger may be nil.
func NewDetector(o oracle.Oracle, repairer *Repairer, log *zap.Logger) *Detector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Detector{oracle: o, repairer: repairer, log: log}
}

// DetectChange inspects the content unit against the active tasks and returns
// at most one status change. A nil result means no confident, legal change
// was detected; the error return carries transport failures only.
func (d *Detector) DetectChange(ctx context.Context, content *models.ContentUnit, activeTasks []models.Task) (*models.StatusChange, error) {
	if len(activeTasks) == 0 {
		return nil, nil
	}

	prompt := buildStatusPrompt(content, activeTasks)
	raw, err := d.oracle.Generate(ctx, prompt, oracle.GenerateOptions{Structured: true})
	if err != nil {
		d.log.Debug("status_detection_failed", zap.String("content_id", content.ID.String()), zap.Error(err))
		return nil, err
	}

	rec := Decode[statusChangeRecord](ctx, d.repairer, raw, statusChangeShape)
	if rec == nil || rec.empty() {
		return nil, nil
	}

	if *rec.Confidence <= ConfidenceFloor {
		d.log.Debug("status_change_below_floor",
			zap.Int64("task_id", *rec.TaskID),
			zap.Float64("confidence", *rec.Confidence),
		)
		return nil, nil
	}

	var task *models.Task
	for i := range activeTasks {
		if activeTasks[i].ID == *rec.TaskID {
			task = &activeTasks[i]
			break
		}
	}
	if task == nil {
		d.log.Debug("status_change_unknown_task", zap.Int64("task_id", *rec.TaskID))
		return nil, nil
	}

	newStatus := models.TaskStatus(*rec.NewStatus)
	if !task.Status.CanTransitionTo(newStatus) {
		d.log.Debug("status_change_illegal_transition",
			zap.Int64("task_id", task.ID),
			zap.String("from", string(task.Status)),
			zap.String("to", string(newStatus)),
		)
		return nil, nil
	}

	return &models.StatusChange{
		TaskID:     task.ID,
		NewStatus:  newStatus,
		Confidence: *rec.Confidence,
		Reason:     rec.Reason,
	}, nil
}
