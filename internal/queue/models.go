package queue

import (
	"strconv"
	"strings"
	"time"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

var statusOrder = []Status{
	StatusPending,
	StatusInProgress,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	m := make(map[Status]struct{}, len(statusOrder))
	for _, status := range statusOrder {
		m[status] = struct{}{}
	}
	return m
}()

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(statusOrder))
	copy(out, statusOrder)
	return out
}

// ParseStatus normalizes a status literal. Matching is case-insensitive and
// accepts dashes or spaces in place of underscores.
func ParseStatus(value string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	status := Status(normalized)
	if _, ok := statusSet[status]; !ok {
		return "", &InputError{Field: "status", Value: value, Reason: "unknown status"}
	}
	return status, nil
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := statusSet[s]
	return ok
}

// IsTerminal reports whether no transition may leave s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// SetsCompletedAt reports whether entering s stamps completed_at.
func (s Status) SetsCompletedAt() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Priority orders tasks; higher values run first.
type Priority int

const (
	PriorityLow      Priority = 1
	PriorityNormal   Priority = 2
	PriorityHigh     Priority = 3
	PriorityCritical Priority = 4
)

var priorityNames = map[Priority]string{
	PriorityLow:      "LOW",
	PriorityNormal:   "NORMAL",
	PriorityHigh:     "HIGH",
	PriorityCritical: "CRITICAL",
}

// AllPriorities returns the priorities from lowest to highest.
func AllPriorities() []Priority {
	return []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical}
}

// ParsePriority accepts a name (case-insensitive) or its ordinal.
func ParsePriority(value string) (Priority, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if n, err := strconv.Atoi(trimmed); err == nil {
		p := Priority(n)
		if p.Valid() {
			return p, nil
		}
		return 0, &InputError{Field: "priority", Value: value, Reason: "must be between 1 and 4"}
	}
	for p, name := range priorityNames {
		if name == trimmed {
			return p, nil
		}
	}
	return 0, &InputError{Field: "priority", Value: value, Reason: "unknown priority"}
}

// Valid reports whether p is one of the four defined ordinals.
func (p Priority) Valid() bool {
	_, ok := priorityNames[p]
	return ok
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return "Priority(" + strconv.Itoa(int(p)) + ")"
}

// MarshalText renders the priority by name.
func (p Priority) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, &InputError{Field: "priority", Value: strconv.Itoa(int(p)), Reason: "out of range"}
	}
	return []byte(p.String()), nil
}

// UnmarshalText accepts anything ParsePriority does.
func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Task is the unit of work tracked by the queue.
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	AssignedTo   string     `json:"assigned_to,omitempty"`
	Status       Status     `json:"status"`
	Priority     Priority   `json:"priority"`
	CreatedAt    time.Time  `json:"created_at"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Metadata     Metadata   `json:"metadata"`
}

// DueAt is the instant used to order tasks of equal priority.
func (t Task) DueAt() time.Time {
	if t.ScheduledFor != nil {
		return *t.ScheduledFor
	}
	return t.CreatedAt
}

// IsReady reports whether the task is pending and its schedule has arrived.
func (t Task) IsReady(now time.Time) bool {
	if t.Status != StatusPending {
		return false
	}
	return t.ScheduledFor == nil || !t.ScheduledFor.After(now)
}

// IsTerminal reports whether the task has reached a final status.
func (t Task) IsTerminal() bool {
	return t.Status.IsTerminal()
}
