package suggestions

import (
	"context"
	"sync"
	"time"

	"github.com/benvon/questline/internal/models"
	"go.uber.org/zap"
)

// notifyTimeout bounds the out-of-process publish on each mutation.
const notifyTimeout = 5 * time.Second

// Snapshot is an immutable view of the registry contents. Slices and nested
// related tasks are deep copies; holders can read them without coordination.
type Snapshot struct {
	Tasks []models.TaskSuggestion `json:"tasks"`
	Goals []models.GoalSuggestion `json:"goals"`
}

// Notifier publishes a snapshot to out-of-process subscribers after every
// registry mutation.
type Notifier interface {
	Publish(ctx context.Context, snap Snapshot) error
}

// Registry holds pending suggestions between analysis and a user decision.
// All mutation goes through the mutex, so concurrent analysis paths can add
// results without coordinating with each other. Reads hand out copies.
type Registry struct {
	mu    sync.Mutex
	tasks []models.TaskSuggestion
	goals []models.GoalSuggestion
	seq   uint64

	subs     map[int]chan Snapshot
	nextSub  int
	notifier Notifier
	log      *zap.Logger

	// deliverMu serializes snapshot delivery; delivered tracks the newest
	// sequence handed out so a snapshot that lost the race never lands last.
	deliverMu sync.Mutex
	delivered uint64
}

// NewRegistry creates an empty registry. Both notifier and logger may be nil.
func NewRegistry(notifier Notifier, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		subs:     make(map[int]chan Snapshot),
		notifier: notifier,
		log:      log,
	}
}

// AddTask registers a standalone task suggestion. It is discarded when a
// content-equal task already exists, standalone or inside a pending goal, so
// the same piece of work is never actionable twice.
func (r *Registry) AddTask(t *models.TaskSuggestion) {
	r.mu.Lock()
	if r.taskTitleTaken(t.Title) {
		r.mu.Unlock()
		r.log.Debug("suggestion_discarded",
			zap.String("suggestion_id", t.ID),
			zap.String("reason", "duplicate task title"),
		)
		return
	}
	r.tasks = append(r.tasks, copyTask(t))
	seq, snap := r.stampLocked()
	r.mu.Unlock()

	r.broadcast(seq, snap)
}

// AddGoal registers a goal suggestion. A goal with a content-equal title to a
// pending goal is discarded; otherwise standalone tasks matching any of the
// goal's related tasks are absorbed into it, whichever arrived first.
func (r *Registry) AddGoal(g *models.GoalSuggestion) {
	r.mu.Lock()
	for i := range r.goals {
		if models.TitlesEqual(r.goals[i].Title, g.Title) {
			r.mu.Unlock()
			r.log.Debug("suggestion_discarded",
				zap.String("suggestion_id", g.ID),
				zap.String("reason", "duplicate goal title"),
			)
			return
		}
	}
	r.absorbMatchingTasksLocked(g)
	r.goals = append(r.goals, copyGoal(g))
	seq, snap := r.stampLocked()
	r.mu.Unlock()

	r.broadcast(seq, snap)
}

// Task returns a copy of the standalone task suggestion with the given id.
func (r *Registry) Task(id string) (models.TaskSuggestion, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tasks {
		if r.tasks[i].ID == id {
			return copyTask(&r.tasks[i]), true
		}
	}
	return models.TaskSuggestion{}, false
}

// Goal returns a copy of the goal suggestion with the given id.
func (r *Registry) Goal(id string) (models.GoalSuggestion, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.goals {
		if r.goals[i].ID == id {
			return copyGoal(&r.goals[i]), true
		}
	}
	return models.GoalSuggestion{}, false
}

// Remove discards the suggestion with the given id, of either kind.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	removed := false
	for i := range r.tasks {
		if r.tasks[i].ID == id {
			r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		for i := range r.goals {
			if r.goals[i].ID == id {
				r.goals = append(r.goals[:i], r.goals[i+1:]...)
				removed = true
				break
			}
		}
	}
	if !removed {
		r.mu.Unlock()
		return false
	}
	seq, snap := r.stampLocked()
	r.mu.Unlock()

	r.broadcast(seq, snap)
	return true
}

// ReplaceTaskWithGoal atomically retires a standalone task suggestion and
// registers the goal that grew out of it. The goal dedup pass applies, so
// other standalone tasks now covered by the goal are absorbed as well.
func (r *Registry) ReplaceTaskWithGoal(taskID string, g *models.GoalSuggestion) bool {
	r.mu.Lock()
	found := false
	for i := range r.tasks {
		if r.tasks[i].ID == taskID {
			r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		r.mu.Unlock()
		return false
	}
	r.absorbMatchingTasksLocked(g)
	r.goals = append(r.goals, copyGoal(g))
	seq, snap := r.stampLocked()
	r.mu.Unlock()

	r.broadcast(seq, snap)
	return true
}

// Snapshot returns a deep copy of the current contents.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// LoadSnapshot replaces the registry contents with an externally produced
// snapshot and fans it out to in-process subscribers. The notifier is not
// invoked, so a registry mirroring another process never echoes snapshots
// back to it.
func (r *Registry) LoadSnapshot(snap Snapshot) {
	r.mu.Lock()
	r.tasks = r.tasks[:0]
	for i := range snap.Tasks {
		r.tasks = append(r.tasks, copyTask(&snap.Tasks[i]))
	}
	r.goals = r.goals[:0]
	for i := range snap.Goals {
		r.goals = append(r.goals, copyGoal(&snap.Goals[i]))
	}
	seq, local := r.stampLocked()
	r.mu.Unlock()

	r.deliver(seq, local, false)
}

// Subscribe registers an in-process listener. The returned channel carries a
// snapshot after every mutation, latest-wins when the listener lags. The
// second return value unsubscribes and closes the channel.
func (r *Registry) Subscribe() (<-chan Snapshot, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSub
	r.nextSub++
	ch := make(chan Snapshot, 1)
	r.subs[id] = ch

	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if sub, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(sub)
		}
	}
}

// taskTitleTaken reports whether a content-equal task already exists,
// standalone or inside a pending goal. Caller holds the lock.
func (r *Registry) taskTitleTaken(title string) bool {
	for i := range r.tasks {
		if models.TitlesEqual(r.tasks[i].Title, title) {
			return true
		}
	}
	for i := range r.goals {
		for j := range r.goals[i].RelatedTasks {
			if models.TitlesEqual(r.goals[i].RelatedTasks[j].Title, title) {
				return true
			}
		}
	}
	return false
}

// absorbMatchingTasksLocked removes standalone tasks that are content-equal
// to any of the goal's related tasks. Caller holds the lock.
func (r *Registry) absorbMatchingTasksLocked(g *models.GoalSuggestion) {
	if len(g.RelatedTasks) == 0 {
		return
	}
	kept := r.tasks[:0]
	for i := range r.tasks {
		absorbed := false
		for j := range g.RelatedTasks {
			if models.TitlesEqual(r.tasks[i].Title, g.RelatedTasks[j].Title) {
				absorbed = true
				break
			}
		}
		if absorbed {
			r.log.Debug("suggestion_discarded",
				zap.String("suggestion_id", r.tasks[i].ID),
				zap.String("reason", "absorbed into goal"),
				zap.String("goal_id", g.ID),
			)
			continue
		}
		kept = append(kept, r.tasks[i])
	}
	r.tasks = kept
}

// stampLocked assigns the next sequence number to the current contents.
// Caller holds the lock; the sequence fixes the order in which concurrent
// mutations must reach subscribers and the notifier.
func (r *Registry) stampLocked() (uint64, Snapshot) {
	r.seq++
	return r.seq, r.snapshotLocked()
}

func (r *Registry) snapshotLocked() Snapshot {
	snap := Snapshot{
		Tasks: make([]models.TaskSuggestion, 0, len(r.tasks)),
		Goals: make([]models.GoalSuggestion, 0, len(r.goals)),
	}
	for i := range r.tasks {
		snap.Tasks = append(snap.Tasks, copyTask(&r.tasks[i]))
	}
	for i := range r.goals {
		snap.Goals = append(snap.Goals, copyGoal(&r.goals[i]))
	}
	return snap
}

// broadcast delivers a snapshot to every subscriber and the notifier, outside
// the registry lock so delivery never stalls concurrent mutations.
func (r *Registry) broadcast(seq uint64, snap Snapshot) {
	r.deliver(seq, snap, true)
}

// deliver hands a snapshot to subscribers, and to the notifier when publish
// is set, in sequence order. A snapshot overtaken by a newer one between the
// registry lock and here is dropped; delivering it would leave subscribers
// and mirroring processes on stale state until the next mutation.
func (r *Registry) deliver(seq uint64, snap Snapshot, publish bool) {
	r.deliverMu.Lock()
	defer r.deliverMu.Unlock()
	if seq <= r.delivered {
		return
	}
	r.delivered = seq

	r.fanout(snap)

	if publish && r.notifier != nil {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := r.notifier.Publish(ctx, snap); err != nil {
			r.log.Warn("suggestion_notify_failed", zap.Error(err))
		}
	}
}

// fanout delivers a snapshot to every in-process subscriber, latest-wins.
func (r *Registry) fanout(snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- snap:
		default:
			// Replace the stale pending snapshot with the latest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func copyTask(t *models.TaskSuggestion) models.TaskSuggestion {
	out := *t
	if t.Tags != nil {
		out.Tags = append([]string(nil), t.Tags...)
	}
	return out
}

func copyGoal(g *models.GoalSuggestion) models.GoalSuggestion {
	out := *g
	if g.RelatedTasks != nil {
		out.RelatedTasks = make([]models.TaskSuggestion, 0, len(g.RelatedTasks))
		for i := range g.RelatedTasks {
			out.RelatedTasks = append(out.RelatedTasks, copyTask(&g.RelatedTasks[i]))
		}
	}
	return out
}
