package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"taskqueue/internal/engine"
	"taskqueue/internal/export"
	"taskqueue/internal/queue"
)

func TestAddListShow(t *testing.T) {
	env := setupCLITestEnv(t)

	id := env.addTask(t, "Fix", "bug", "-p", "critical", "-a", "alice", "-m", "team=infra", "-m", "points=3")
	env.addTask(t, "Routine chore")

	var tasks []queue.Task
	env.mustRunJSON(t, &tasks, "list", "--priority", "critical")
	if len(tasks) != 1 || tasks[0].ID != id {
		t.Fatalf("expected only %s, got %+v", id, tasks)
	}
	task := tasks[0]
	if task.Title != "Fix bug" || task.AssignedTo != "alice" || task.Priority != queue.PriorityCritical {
		t.Fatalf("unexpected task %+v", task)
	}
	if team, _ := task.Metadata.String("team"); team != "infra" {
		t.Fatalf("expected team metadata, got %#v", task.Metadata)
	}

	env.mustRunJSON(t, &tasks, "list", "--meta", "points=3")
	if len(tasks) != 1 || tasks[0].ID != id {
		t.Fatalf("metadata filter returned %+v", tasks)
	}

	out := env.mustRun(t, "list")
	for _, want := range []string{"Fix bug", "Routine chore", "Critical", "Pending"} {
		if !strings.Contains(out, want) {
			t.Fatalf("list output missing %q:\n%s", want, out)
		}
	}

	out = env.mustRun(t, "show", id)
	for _, want := range []string{"Title:       Fix bug", "Assignee:    alice", "team: \"infra\"", "points: 3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("show output missing %q:\n%s", want, out)
		}
	}
}

func TestListTableWrapsLongTitles(t *testing.T) {
	env := setupCLITestEnv(t)
	title := "Rotate the signing keys for every staging cluster before the quarterly audit"
	id := env.addTask(t, title, "-a", "alice")

	out := env.mustRun(t, "list")
	for _, want := range []string{"ID", "TITLE", "ASSIGNEE", "SCHEDULED", id, "alice", "Rotate the signing keys"} {
		if !strings.Contains(out, want) {
			t.Fatalf("list output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, title) {
		t.Fatalf("expected title to wrap at %d columns:\n%s", titleWidthMax, out)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "Rotate") && !strings.Contains(line, id) {
			t.Fatalf("first title line should share the row with the id:\n%s", out)
		}
	}
}

func TestCountTableRightAlignsCounts(t *testing.T) {
	var buf strings.Builder
	renderCountTable(&buf, "Assignee", "Tasks", []countRow{{label: "alice", count: 12}, {label: "bob", count: 3}})

	out := buf.String()
	var bobLine string
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "bob") {
			bobLine = line
		}
	}
	if !strings.Contains(bobLine, " 3 │") {
		t.Fatalf("expected right-aligned count, got:\n%s", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("expected trailing newline, got %q", out)
	}
}

func TestTransitionsAndExitCodes(t *testing.T) {
	env := setupCLITestEnv(t)
	id := env.addTask(t, "Ship release")

	out := env.mustRun(t, "start", id)
	if !strings.Contains(out, "In Progress") {
		t.Fatalf("unexpected start output %q", out)
	}

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"start twice", []string{"start", id}, exitIllegalTransition},
		{"unknown task", []string{"show", "task_missing"}, exitNotFound},
		{"unknown transition target", []string{"cancel", "task_missing"}, exitNotFound},
		{"bad priority", []string{"add", "x", "-p", "urgent"}, exitInvalidInput},
		{"bad status filter", []string{"list", "-s", "done"}, exitInvalidInput},
		{"bad schedule", []string{"add", "x", "--schedule", "someday"}, exitInvalidInput},
		{"purge pending", []string{"purge", "-s", "pending"}, exitInvalidInput},
		{"blank agent", []string{"stats", "--agent", " "}, exitInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.run(t, tt.args...)
			if err == nil {
				t.Fatalf("expected error")
			}
			if got := exitCode(err); got != tt.code {
				t.Fatalf("exit code %d, want %d (err: %v)", got, tt.code, err)
			}
		})
	}

	var task queue.Task
	env.mustRunJSON(t, &task, "fail", id, "--reason", "disk full")
	if task.Status != queue.StatusFailed || task.CompletedAt == nil {
		t.Fatalf("unexpected failed task %+v", task)
	}
	if reason, _ := task.Metadata.String(queue.MetadataKeyFailureReason); reason != "disk full" {
		t.Fatalf("expected failure reason, got %#v", task.Metadata)
	}

	_, _, err := env.run(t, "complete", id)
	var transition *queue.TransitionError
	if !errors.As(err, &transition) || transition.Current != queue.StatusFailed {
		t.Fatalf("expected illegal transition from failed, got %v", err)
	}
}

func TestCompleteWithResult(t *testing.T) {
	env := setupCLITestEnv(t)
	id := env.addTask(t, "Build")

	var task queue.Task
	env.mustRunJSON(t, &task, "complete", id, "--result", `{"artifact":"app.tar"}`)
	result, ok := task.Metadata[queue.MetadataKeyResult].(map[string]any)
	if !ok || result["artifact"] != "app.tar" {
		t.Fatalf("expected structured result, got %#v", task.Metadata)
	}
}

func TestReadyAndNext(t *testing.T) {
	env := setupCLITestEnv(t)
	env.addTask(t, "Low", "-p", "low", "-a", "bob")
	high := env.addTask(t, "High", "-p", "high", "-a", "bob")
	env.addTask(t, "Later", "-p", "critical", "-a", "bob", "--schedule", "24h")

	var next queue.Task
	env.mustRunJSON(t, &next, "next", "-a", "bob")
	if next.ID != high {
		t.Fatalf("expected %s next, got %+v", high, next)
	}

	var ready []queue.Task
	env.mustRunJSON(t, &ready, "ready")
	if len(ready) != 2 || ready[0].ID != high {
		t.Fatalf("unexpected ready set %+v", ready)
	}

	out := env.mustRun(t, "next", "-a", "nobody")
	if !strings.Contains(out, "No tasks ready") {
		t.Fatalf("unexpected output %q", out)
	}
	out = env.mustRun(t, "next", "-a", "nobody", "--json")
	if strings.TrimSpace(out) != "null" {
		t.Fatalf("expected null, got %q", out)
	}
}

func TestStats(t *testing.T) {
	env := setupCLITestEnv(t)
	done := env.addTask(t, "Done", "-a", "alice")
	env.addTask(t, "Waiting", "-a", "alice")
	env.addTask(t, "Other", "-a", "bob")
	env.mustRun(t, "complete", done)

	var stats engine.Stats
	env.mustRunJSON(t, &stats, "stats")
	if stats.Total != 3 || stats.ByStatus[queue.StatusCompleted] != 1 || stats.ByStatus[queue.StatusPending] != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(stats.ByStatus) != len(queue.AllStatuses()) {
		t.Fatalf("expected all statuses, got %v", stats.ByStatus)
	}
	if stats.AverageCompletionHours == nil {
		t.Fatal("expected an average completion time")
	}
	if stats.ByAssignee["alice"] != 2 || stats.ByAssignee["bob"] != 1 {
		t.Fatalf("unexpected assignee counts %v", stats.ByAssignee)
	}

	var agent engine.AgentStats
	env.mustRunJSON(t, &agent, "stats", "--agent", "alice")
	if agent.TotalAssigned != 2 || agent.CompletionRate != 50 {
		t.Fatalf("unexpected agent stats %+v", agent)
	}

	out := env.mustRun(t, "stats")
	for _, want := range []string{"Total tasks: 3", "In Progress", "Completion rate: 33.3%", "alice"} {
		if !strings.Contains(out, want) {
			t.Fatalf("stats output missing %q:\n%s", want, out)
		}
	}
}

func TestExport(t *testing.T) {
	env := setupCLITestEnv(t)
	first := env.addTask(t, "One", "-m", "n=9007199254740993")
	env.addTask(t, "Two")

	out := env.mustRun(t, "export", "--format", "yaml")
	tasks, err := export.Read(strings.NewReader(out), export.FormatYAML)
	if err != nil {
		t.Fatalf("read yaml export: %v\n%s", err, out)
	}
	if len(tasks) != 2 || tasks[0].ID != first {
		t.Fatalf("unexpected export %+v", tasks)
	}
	if got := fmt.Sprint(tasks[0].Metadata["n"]); got != "9007199254740993" {
		t.Fatalf("metadata number changed: %s", got)
	}

	path := filepath.Join(t.TempDir(), "tasks.csv")
	env.mustRun(t, "export", "-o", path)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export file: %v", err)
	}
	if !strings.HasPrefix(string(data), "id,title,description") {
		t.Fatalf("expected csv export, got %q", data)
	}

	out = env.mustRun(t, "export")
	if !strings.HasPrefix(strings.TrimSpace(out), "[") {
		t.Fatalf("expected default json export, got %q", out)
	}
}

func TestPurge(t *testing.T) {
	env := setupCLITestEnv(t)
	done := env.addTask(t, "Done")
	kept := env.addTask(t, "Kept")
	env.mustRun(t, "complete", done)

	out := env.mustRun(t, "purge")
	if !strings.Contains(out, "Removed 1 tasks") {
		t.Fatalf("unexpected purge output %q", out)
	}
	if _, _, err := env.run(t, "show", done); exitCode(err) != exitNotFound {
		t.Fatalf("expected purged task to be gone, got %v", err)
	}
	env.mustRun(t, "show", kept)
}

func TestHealth(t *testing.T) {
	env := setupCLITestEnv(t)
	env.addTask(t, "Only")

	out := env.mustRun(t, "health")
	for _, want := range []string{"Database path: " + env.dbPath, "Integrity check: yes", "Missing columns: none", "Total tasks: 1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("health output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out := env.mustRun(t, "config", "show")
	if !strings.Contains(out, "# Database: "+env.dbPath) {
		t.Fatalf("config show missing database path:\n%s", out)
	}

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	env.mustRun(t, "config", "init", "--path", target)
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}
	if _, _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
	env.mustRun(t, "config", "init", "--path", target, "--overwrite")
}

func TestVersion(t *testing.T) {
	env := setupCLITestEnv(t)
	out := env.mustRun(t, "version")
	if !strings.HasPrefix(out, "taskqueue ") {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestExitCodeMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{&queue.InputError{Field: "title"}, exitInvalidInput},
		{&queue.NotFoundError{ID: "x"}, exitNotFound},
		{&queue.TransitionError{ID: "x"}, exitIllegalTransition},
		{fmt.Errorf("wrapped: %w", queue.ErrStorageUnavailable), exitStorageUnavailable},
		{errors.New("boom"), exitFailure},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Fatalf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
