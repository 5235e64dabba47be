package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks arguments rejected before any write.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks lookups of unknown task ids.
	ErrNotFound = errors.New("task not found")
	// ErrIllegalTransition marks state machine violations, including lost races.
	ErrIllegalTransition = errors.New("illegal transition")
	// ErrStaleTransition marks a conditional update whose expected status no longer matched.
	ErrStaleTransition = errors.New("stale transition")
	// ErrStorageUnavailable marks contention or outage that outlasted the retry budget.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrDuplicateID marks an insert that collided with an existing id.
	ErrDuplicateID = errors.New("duplicate task id")
)

// Error kinds reported through ErrorClassifier.
const (
	KindInvalidInput       = "invalid_input"
	KindNotFound           = "not_found"
	KindIllegalTransition  = "illegal_transition"
	KindStorageUnavailable = "storage_unavailable"
	KindDuplicateID        = "duplicate_id"
	KindInternal           = "internal"
)

// ErrorClassifier allows errors to declare their classification so callers
// can map them to exit codes or responses without string matching.
type ErrorClassifier interface {
	ErrorKind() string
}

// KindOf classifies err. Errors that neither implement ErrorClassifier nor
// wrap a package sentinel are reported as KindInternal.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrIllegalTransition), errors.Is(err, ErrStaleTransition):
		return KindIllegalTransition
	case errors.Is(err, ErrStorageUnavailable):
		return KindStorageUnavailable
	case errors.Is(err, ErrDuplicateID):
		return KindDuplicateID
	default:
		return KindInternal
	}
}

// InputError describes a rejected argument.
type InputError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

func (e *InputError) ErrorKind() string { return KindInvalidInput }

// NotFoundError names the task id that could not be found.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %s not found", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func (e *NotFoundError) ErrorKind() string { return KindNotFound }

// StaleError is returned by Store.UpdateStatus when the stored status no
// longer matches the caller's expectation.
type StaleError struct {
	ID       string
	Expected Status
	Current  Status
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("task %s: expected status %s, found %s", e.ID, e.Expected, e.Current)
}

func (e *StaleError) Unwrap() error { return ErrStaleTransition }

func (e *StaleError) ErrorKind() string { return KindIllegalTransition }

// TransitionError reports a state machine violation. Stale is set when the
// violation was caused by a concurrent writer winning the race.
type TransitionError struct {
	ID        string
	Attempted Status
	Current   Status
	Stale     bool
}

func (e *TransitionError) Error() string {
	if e.Stale {
		return fmt.Sprintf("task %s: cannot move to %s, concurrently changed to %s", e.ID, e.Attempted, e.Current)
	}
	return fmt.Sprintf("task %s: cannot move to %s from %s", e.ID, e.Attempted, e.Current)
}

func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

// Is lets a lost race match ErrStaleTransition as well as ErrIllegalTransition.
func (e *TransitionError) Is(target error) bool {
	return e.Stale && target == ErrStaleTransition
}

func (e *TransitionError) ErrorKind() string { return KindIllegalTransition }

// storageError wraps the last backend error once the retry budget is spent.
type storageError struct {
	op       string
	attempts int
	err      error
}

func (e *storageError) Error() string {
	return fmt.Sprintf("%s: %s after %d attempts: %v", e.op, ErrStorageUnavailable, e.attempts, e.err)
}

func (e *storageError) Unwrap() []error { return []error{ErrStorageUnavailable, e.err} }

func (e *storageError) ErrorKind() string { return KindStorageUnavailable }
