package engine

import "taskqueue/internal/queue"

var transitions = map[queue.Status][]queue.Status{
	queue.StatusPending:    {queue.StatusInProgress, queue.StatusCompleted, queue.StatusFailed, queue.StatusCancelled},
	queue.StatusInProgress: {queue.StatusCompleted, queue.StatusFailed, queue.StatusCancelled},
}

// CanTransition reports whether a task in from may move to to.
func CanTransition(from, to queue.Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions lists the statuses reachable from from in one step.
func AllowedTransitions(from queue.Status) []queue.Status {
	out := make([]queue.Status, len(transitions[from]))
	copy(out, transitions[from])
	return out
}
