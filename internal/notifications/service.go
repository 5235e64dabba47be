package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"taskqueue/internal/config"
)

const userAgent = "taskqueue/0.1.0"

// TaskAdded is published after a task has been stored.
type TaskAdded struct {
	ID         string
	Title      string
	AssignedTo string
	Priority   string
}

// Service defines the notification surface exposed to the engine and CLI.
type Service interface {
	NotifyTaskAdded(ctx context.Context, event TaskAdded) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: cfg.NotificationTimeout()},
		taskAdded: cfg.Notifications.TaskAdded,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	taskAdded bool
}

func (n *ntfyService) NotifyTaskAdded(ctx context.Context, event TaskAdded) error {
	if !n.taskAdded {
		return nil
	}
	title := strings.TrimSpace(event.Title)
	message := fmt.Sprintf("New task: %s", title)
	if assignee := strings.TrimSpace(event.AssignedTo); assignee != "" {
		message = fmt.Sprintf("%s\nAssigned to: %s", message, assignee)
	}
	message = fmt.Sprintf("%s\nID: %s", message, event.ID)

	data := payload{
		title:   "Task Added",
		message: message,
		tags:    []string{"taskqueue", "task", "added"},
	}
	switch strings.ToUpper(event.Priority) {
	case "CRITICAL":
		data.priority = "urgent"
	case "HIGH":
		data.priority = "high"
	case "LOW":
		data.priority = "low"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "taskqueue - Test",
		message:  "Notification system test",
		tags:     []string{"taskqueue", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyTaskAdded(context.Context, TaskAdded) error { return nil }
func (noopService) TestNotification(context.Context) error           { return nil }
