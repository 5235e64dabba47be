package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"taskqueue/internal/logging"
	"taskqueue/internal/notifications"
	"taskqueue/internal/queue"
)

// TaskStore is the persistence surface the engine relies on. *queue.Store
// implements it.
type TaskStore interface {
	Insert(ctx context.Context, task *queue.Task) error
	Get(ctx context.Context, id string) (*queue.Task, error)
	UpdateStatus(ctx context.Context, id string, expected, next queue.Status, update queue.StatusUpdate) (*queue.Task, error)
	Query(ctx context.Context, filter queue.Filter, order queue.Order, limit int) ([]*queue.Task, error)
	StatusCounts(ctx context.Context, filter queue.Filter) (map[queue.Status]int, error)
	AssigneeCounts(ctx context.Context, filter queue.Filter) (map[string]int, error)
}

// Publisher receives task events after they are committed.
type Publisher interface {
	Publish(event notifications.TaskAdded) error
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Engine is the task queue API. It is safe for concurrent use.
type Engine struct {
	store     TaskStore
	clock     Clock
	logger    *slog.Logger
	publisher Publisher
	newID     func() string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logging.NewComponentLogger(logger, "engine")
	}
}

// WithPublisher sends a TaskAdded event for every stored task.
func WithPublisher(publisher Publisher) Option {
	return func(e *Engine) {
		e.publisher = publisher
	}
}

// WithIDGenerator overrides task id generation.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// New constructs an engine over store.
func New(store TaskStore, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		clock:  systemClock{},
		logger: logging.NewComponentLogger(nil, "engine"),
		newID:  newTaskID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func newTaskID() string {
	return "task_" + uuid.NewString()
}

func (e *Engine) now() time.Time {
	return e.clock.Now().UTC()
}
