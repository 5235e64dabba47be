package engine

import (
	"context"
	"strings"

	"taskqueue/internal/queue"
)

// TaskQuery selects tasks for GetTasks. Zero values do not constrain.
type TaskQuery struct {
	Statuses    []queue.Status
	AssignedTo  string
	Priority    queue.Priority
	MinPriority queue.Priority
	Metadata    map[string]any
	// ByPriority sorts the way NextTask picks work instead of oldest first.
	ByPriority bool
	Limit      int
}

func (q TaskQuery) filter() queue.Filter {
	filter := queue.Filter{
		Statuses:    q.Statuses,
		Priority:    q.Priority,
		MinPriority: q.MinPriority,
		Metadata:    q.Metadata,
	}
	if assignee := strings.TrimSpace(q.AssignedTo); assignee != "" {
		filter.AssignedTo = &assignee
	}
	return filter
}

func (q TaskQuery) order() queue.Order {
	if q.ByPriority {
		return queue.OrderPriority
	}
	return queue.OrderCreated
}

// GetTask returns the task with id.
func (e *Engine) GetTask(ctx context.Context, id string) (*queue.Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &queue.InputError{Field: "id", Reason: "must not be empty"}
	}
	return e.store.Get(ctx, id)
}

// GetTasks returns every task matching q.
func (e *Engine) GetTasks(ctx context.Context, q TaskQuery) ([]*queue.Task, error) {
	return e.store.Query(ctx, q.filter(), q.order(), q.Limit)
}

// GetPending returns pending tasks in priority order, optionally narrowed to
// an assignee and a minimum priority. Scheduled tasks are included whether or
// not they are due; use GetScheduledTasks for the ready set.
func (e *Engine) GetPending(ctx context.Context, assignedTo string, minPriority queue.Priority) ([]*queue.Task, error) {
	return e.GetTasks(ctx, TaskQuery{
		Statuses:    []queue.Status{queue.StatusPending},
		AssignedTo:  assignedTo,
		MinPriority: minPriority,
		ByPriority:  true,
	})
}

// GetScheduledTasks returns the pending tasks that are ready to run now, in
// priority order.
func (e *Engine) GetScheduledTasks(ctx context.Context) ([]*queue.Task, error) {
	return e.ReadyTasks(ctx, "", 0)
}

// ReadyTasks returns ready tasks for an assignee (or everyone when empty),
// capped at limit when positive. The clock is read once per call.
func (e *Engine) ReadyTasks(ctx context.Context, assignedTo string, limit int) ([]*queue.Task, error) {
	now := e.now()
	filter := TaskQuery{Statuses: []queue.Status{queue.StatusPending}, AssignedTo: assignedTo}.filter()
	filter.ReadyBy = &now
	return e.store.Query(ctx, filter, queue.OrderPriority, limit)
}

// NextTask returns the task a worker should pick up next, or nil when nothing
// is ready.
func (e *Engine) NextTask(ctx context.Context, assignedTo string) (*queue.Task, error) {
	tasks, err := e.ReadyTasks(ctx, assignedTo, 1)
	if err != nil || len(tasks) == 0 {
		return nil, err
	}
	return tasks[0], nil
}
