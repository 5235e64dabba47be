package engine

import (
	"context"
	"strings"

	"taskqueue/internal/queue"
)

// Summary aggregates a set of tasks.
type Summary struct {
	ByStatus       map[queue.Status]int `json:"by_status"`
	CompletionRate float64              `json:"completion_rate"`
	// AverageCompletionHours is nil when no task has completed_at set.
	AverageCompletionHours *float64 `json:"average_completion_hours,omitempty"`
}

// Stats aggregates the whole queue.
type Stats struct {
	Total int `json:"total"`
	Summary
	ByAssignee map[string]int `json:"by_assignee"`
}

// AgentStats aggregates the tasks assigned to one assignee.
type AgentStats struct {
	Agent         string `json:"agent"`
	TotalAssigned int    `json:"total_assigned"`
	Summary
}

// Stats returns queue-wide statistics as of the call.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	summary, total, err := e.summarize(ctx, queue.Filter{})
	if err != nil {
		return Stats{}, err
	}
	byAssignee, err := e.store.AssigneeCounts(ctx, queue.Filter{})
	if err != nil {
		return Stats{}, err
	}
	return Stats{Total: total, Summary: summary, ByAssignee: byAssignee}, nil
}

// AgentStats returns statistics restricted to tasks assigned to agent.
func (e *Engine) AgentStats(ctx context.Context, agent string) (AgentStats, error) {
	agent = strings.TrimSpace(agent)
	if agent == "" {
		return AgentStats{}, &queue.InputError{Field: "agent", Reason: "must not be empty"}
	}
	summary, total, err := e.summarize(ctx, queue.Filter{AssignedTo: &agent})
	if err != nil {
		return AgentStats{}, err
	}
	return AgentStats{Agent: agent, TotalAssigned: total, Summary: summary}, nil
}

func (e *Engine) summarize(ctx context.Context, filter queue.Filter) (Summary, int, error) {
	counts, err := e.store.StatusCounts(ctx, filter)
	if err != nil {
		return Summary{}, 0, err
	}

	summary := Summary{ByStatus: make(map[queue.Status]int, len(queue.AllStatuses()))}
	total := 0
	for _, status := range queue.AllStatuses() {
		summary.ByStatus[status] = counts[status]
		total += counts[status]
	}
	if total > 0 {
		summary.CompletionRate = float64(counts[queue.StatusCompleted]) / float64(total) * 100
	}

	finished := filter
	finished.Statuses = []queue.Status{queue.StatusCompleted, queue.StatusFailed}
	tasks, err := e.store.Query(ctx, finished, queue.OrderCreated, 0)
	if err != nil {
		return Summary{}, 0, err
	}
	var (
		hours float64
		n     int
	)
	for _, task := range tasks {
		if task.CompletedAt == nil || task.CreatedAt.IsZero() {
			continue
		}
		hours += task.CompletedAt.Sub(task.CreatedAt).Hours()
		n++
	}
	if n > 0 {
		avg := hours / float64(n)
		summary.AverageCompletionHours = &avg
	}
	return summary, total, nil
}
