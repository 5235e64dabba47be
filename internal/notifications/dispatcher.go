package notifications

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"taskqueue/internal/logging"
)

const (
	defaultDispatchBuffer  = 64
	defaultDeliveryTimeout = 10 * time.Second
)

// ErrDispatcherClosed is returned by Publish after Close.
var ErrDispatcherClosed = errors.New("notification dispatcher closed")

// ErrDispatcherFull is returned by Publish when the buffer has no room.
var ErrDispatcherFull = errors.New("notification dispatcher queue is full")

// Dispatcher delivers events to a Service on a background goroutine so the
// publisher never blocks on the network. Delivery failures and panics are
// logged and dropped.
type Dispatcher struct {
	svc     Service
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	events chan TaskAdded
	wg     sync.WaitGroup
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithBuffer sets the number of events that may wait for delivery.
func WithBuffer(size int) DispatcherOption {
	return func(d *Dispatcher) {
		if size > 0 {
			d.events = make(chan TaskAdded, size)
		}
	}
}

// WithDeliveryTimeout bounds each delivery attempt.
func WithDeliveryTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDispatcher starts a worker that forwards events to svc.
func NewDispatcher(svc Service, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	if svc == nil {
		svc = noopService{}
	}
	d := &Dispatcher{
		svc:     svc,
		logger:  logging.NewComponentLogger(logger, "notifications"),
		timeout: defaultDeliveryTimeout,
		events:  make(chan TaskAdded, defaultDispatchBuffer),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.wg.Add(1)
	go d.worker()
	return d
}

// Publish enqueues event without waiting for delivery. A rejected event is
// logged at warn before the error is returned.
func (d *Dispatcher) Publish(event TaskAdded) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped(event, ErrDispatcherClosed)
		return ErrDispatcherClosed
	}
	select {
	case d.events <- event:
		return nil
	default:
		d.dropped(event, ErrDispatcherFull)
		return ErrDispatcherFull
	}
}

// dropped is the only place a rejected event is logged; callers of Publish
// may ignore the returned error.
func (d *Dispatcher) dropped(event TaskAdded, reason error) {
	d.logger.Warn("notification dropped",
		logging.String(logging.FieldTaskID, event.ID),
		logging.Error(reason),
	)
}

// Close stops accepting events and waits for queued ones to be delivered or
// for ctx to expire, whichever comes first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for event := range d.events {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event TaskAdded) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification panic",
				logging.String(logging.FieldTaskID, event.ID),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.svc.NotifyTaskAdded(ctx, event); err != nil {
		d.logger.Warn("notification delivery failed",
			logging.String(logging.FieldTaskID, event.ID),
			logging.Error(err),
		)
		return
	}
	d.logger.Debug("notification delivered", logging.String(logging.FieldTaskID, event.ID))
}
