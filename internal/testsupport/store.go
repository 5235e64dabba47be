package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"taskqueue/internal/config"
	"taskqueue/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// TaskOption customizes a task built by NewTask.
type TaskOption func(*queue.Task)

// WithPriority sets the task priority.
func WithPriority(p queue.Priority) TaskOption {
	return func(task *queue.Task) { task.Priority = p }
}

// WithAssignee sets the task assignee.
func WithAssignee(assignee string) TaskOption {
	return func(task *queue.Task) { task.AssignedTo = assignee }
}

// WithCreatedAt sets the creation timestamp.
func WithCreatedAt(ts time.Time) TaskOption {
	return func(task *queue.Task) { task.CreatedAt = ts.UTC() }
}

// WithSchedule sets scheduled_for.
func WithSchedule(ts time.Time) TaskOption {
	return func(task *queue.Task) {
		utc := ts.UTC()
		task.ScheduledFor = &utc
	}
}

// WithMetadata sets the metadata document.
func WithMetadata(meta queue.Metadata) TaskOption {
	return func(task *queue.Task) { task.Metadata = meta }
}

// NewTask builds a pending task with a fresh id.
func NewTask(title string, opts ...TaskOption) *queue.Task {
	task := &queue.Task{
		ID:        "task_" + uuid.NewString(),
		Title:     title,
		Status:    queue.StatusPending,
		Priority:  queue.PriorityNormal,
		CreatedAt: time.Now().UTC(),
		Metadata:  queue.Metadata{},
	}
	for _, opt := range opts {
		opt(task)
	}
	return task
}

// MustInsert builds a task with NewTask and persists it.
func MustInsert(t testing.TB, store *queue.Store, title string, opts ...TaskOption) *queue.Task {
	t.Helper()

	task := NewTask(title, opts...)
	if err := store.Insert(context.Background(), task); err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	return task
}
