package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"taskqueue/internal/logging"
	"taskqueue/internal/notifications"
	"taskqueue/internal/queue"
)

// NewTask describes a task to enqueue. Zero values take defaults.
type NewTask struct {
	Title       string
	Description string
	AssignedTo  string
	// Priority defaults to queue.PriorityNormal.
	Priority queue.Priority
	// ScheduleAt delays readiness until the instant has passed.
	ScheduleAt *time.Time
	Metadata   queue.Metadata
}

func (n NewTask) validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return &queue.InputError{Field: "title", Reason: "must not be empty"}
	}
	if n.Priority != 0 && !n.Priority.Valid() {
		return &queue.InputError{Field: "priority", Value: n.Priority.String(), Reason: "must be between 1 and 4"}
	}
	for key := range n.Metadata {
		if key == "" {
			return &queue.InputError{Field: "metadata", Reason: "key must not be empty"}
		}
	}
	return nil
}

// AddTask stores a new pending task and returns its id.
func (e *Engine) AddTask(ctx context.Context, spec NewTask) (string, error) {
	if err := spec.validate(); err != nil {
		return "", err
	}

	task := &queue.Task{
		ID:          e.newID(),
		Title:       strings.TrimSpace(spec.Title),
		Description: spec.Description,
		AssignedTo:  strings.TrimSpace(spec.AssignedTo),
		Status:      queue.StatusPending,
		Priority:    spec.Priority,
		CreatedAt:   e.now(),
		Metadata:    spec.Metadata.Clone(),
	}
	if task.Priority == 0 {
		task.Priority = queue.PriorityNormal
	}
	if spec.ScheduleAt != nil {
		scheduled := spec.ScheduleAt.UTC()
		task.ScheduledFor = &scheduled
	}

	if err := e.store.Insert(ctx, task); err != nil {
		return "", err
	}

	logger := e.logger.With(
		logging.String(logging.FieldTaskID, task.ID),
		logging.String(logging.FieldStatus, string(task.Status)),
	)
	logger.Info("task added",
		logging.String("priority", task.Priority.String()),
		logging.String(logging.FieldAssignee, task.AssignedTo),
	)

	if e.publisher != nil {
		event := notifications.TaskAdded{
			ID:         task.ID,
			Title:      task.Title,
			AssignedTo: task.AssignedTo,
			Priority:   task.Priority.String(),
		}
		// The dispatcher logs dropped events itself.
		_ = e.publisher.Publish(event)
	}
	return task.ID, nil
}

// StartTask moves a pending task to in progress. Starting a task that is
// already in progress is an illegal transition.
func (e *Engine) StartTask(ctx context.Context, id string) (*queue.Task, error) {
	return e.transition(ctx, id, queue.StatusInProgress, nil)
}

// CompleteTask finishes a pending or in-progress task. A non-nil result is
// stored under the "result" metadata key.
func (e *Engine) CompleteTask(ctx context.Context, id string, result any) (*queue.Task, error) {
	var meta queue.Metadata
	if result != nil {
		meta = queue.Metadata{queue.MetadataKeyResult: result}
	}
	return e.transition(ctx, id, queue.StatusCompleted, meta)
}

// FailTask marks a pending or in-progress task failed. A non-empty reason is
// stored under the "failure_reason" metadata key; other keys are kept.
func (e *Engine) FailTask(ctx context.Context, id, reason string) (*queue.Task, error) {
	var meta queue.Metadata
	if reason = strings.TrimSpace(reason); reason != "" {
		meta = queue.Metadata{queue.MetadataKeyFailureReason: reason}
	}
	return e.transition(ctx, id, queue.StatusFailed, meta)
}

// CancelTask cancels a pending or in-progress task.
func (e *Engine) CancelTask(ctx context.Context, id string) (*queue.Task, error) {
	return e.transition(ctx, id, queue.StatusCancelled, nil)
}

func (e *Engine) transition(ctx context.Context, id string, next queue.Status, meta queue.Metadata) (*queue.Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &queue.InputError{Field: "id", Reason: "must not be empty"}
	}
	logger := logging.WithContext(logging.WithTaskID(ctx, id), e.logger)

	current, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, next) {
		return nil, &queue.TransitionError{ID: id, Attempted: next, Current: current.Status}
	}

	update := queue.StatusUpdate{SetMetadata: meta}
	if next.SetsCompletedAt() {
		now := e.now()
		update.CompletedAt = &now
	}

	updated, err := e.store.UpdateStatus(ctx, id, current.Status, next, update)
	if err != nil {
		var stale *queue.StaleError
		if errors.As(err, &stale) {
			logger.Warn("transition lost race",
				logging.String("attempted", string(next)),
				logging.String(logging.FieldStatus, string(stale.Current)),
			)
			return nil, &queue.TransitionError{ID: id, Attempted: next, Current: stale.Current, Stale: true}
		}
		return nil, err
	}

	logger.Info("task "+statusVerb(next),
		logging.String("from", string(current.Status)),
		logging.String(logging.FieldStatus, string(updated.Status)),
	)
	return updated, nil
}

func statusVerb(status queue.Status) string {
	switch status {
	case queue.StatusInProgress:
		return "started"
	case queue.StatusCompleted:
		return "completed"
	case queue.StatusFailed:
		return "failed"
	case queue.StatusCancelled:
		return "cancelled"
	default:
		return string(status)
	}
}
