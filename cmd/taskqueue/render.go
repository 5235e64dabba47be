package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"taskqueue/internal/engine"
	"taskqueue/internal/queue"
)

const timeDisplayLayout = "2006-01-02 15:04"

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

var titleCaser = cases.Title(language.Und)

// displayLabel turns identifiers such as "in_progress" or "CRITICAL" into
// "In Progress" and "Critical".
func displayLabel(value string) string {
	value = strings.ReplaceAll(strings.TrimSpace(value), "_", " ")
	return titleCaser.String(strings.ToLower(value))
}

func statusColors(status queue.Status) text.Colors {
	switch status {
	case queue.StatusPending:
		return text.Colors{text.FgBlue}
	case queue.StatusInProgress:
		return text.Colors{text.FgYellow}
	case queue.StatusCompleted:
		return text.Colors{text.FgGreen}
	case queue.StatusFailed:
		return text.Colors{text.FgRed}
	default:
		return text.Colors{text.FgHiBlack}
	}
}

func priorityColors(priority queue.Priority) text.Colors {
	switch priority {
	case queue.PriorityCritical:
		return text.Colors{text.FgRed, text.Bold}
	case queue.PriorityHigh:
		return text.Colors{text.FgYellow}
	default:
		return nil
	}
}

func statusLabel(status queue.Status, colorize bool) string {
	label := displayLabel(string(status))
	if colorize {
		return statusColors(status).Sprint(label)
	}
	return label
}

func priorityLabel(priority queue.Priority, colorize bool) string {
	label := displayLabel(priority.String())
	if colors := priorityColors(priority); colorize && colors != nil {
		return colors.Sprint(label)
	}
	return label
}

func formatOptionalTime(ts *time.Time) string {
	if ts == nil {
		return "-"
	}
	return ts.Local().Format(timeDisplayLayout)
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func renderTaskDetail(out io.Writer, task *queue.Task) error {
	colorize := shouldColorize(out)
	fmt.Fprintf(out, "ID:          %s\n", task.ID)
	fmt.Fprintf(out, "Title:       %s\n", task.Title)
	if task.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", task.Description)
	}
	fmt.Fprintf(out, "Status:      %s\n", statusLabel(task.Status, colorize))
	fmt.Fprintf(out, "Priority:    %s\n", priorityLabel(task.Priority, colorize))
	fmt.Fprintf(out, "Assignee:    %s\n", dash(task.AssignedTo))
	fmt.Fprintf(out, "Created:     %s\n", task.CreatedAt.Local().Format(timeDisplayLayout))
	fmt.Fprintf(out, "Scheduled:   %s\n", formatOptionalTime(task.ScheduledFor))
	fmt.Fprintf(out, "Completed:   %s\n", formatOptionalTime(task.CompletedAt))
	if len(task.Metadata) == 0 {
		return nil
	}
	keys := make([]string, 0, len(task.Metadata))
	for key := range task.Metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	fmt.Fprintln(out, "Metadata:")
	for _, key := range keys {
		encoded, err := json.Marshal(task.Metadata[key])
		if err != nil {
			return fmt.Errorf("render metadata %q: %w", key, err)
		}
		fmt.Fprintf(out, "  %s: %s\n", key, encoded)
	}
	return nil
}

func renderSummary(out io.Writer, summary engine.Summary) {
	colorize := shouldColorize(out)
	rows := make([]countRow, 0, len(summary.ByStatus))
	for _, status := range queue.AllStatuses() {
		rows = append(rows, countRow{label: statusLabel(status, colorize), count: summary.ByStatus[status]})
	}
	renderCountTable(out, "Status", "Count", rows)
	fmt.Fprintf(out, "Completion rate: %.1f%%\n", summary.CompletionRate)
	if summary.AverageCompletionHours != nil {
		fmt.Fprintf(out, "Average completion: %.2fh\n", *summary.AverageCompletionHours)
	} else {
		fmt.Fprintln(out, "Average completion: n/a")
	}
}

func renderAssigneeCounts(out io.Writer, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([]countRow, 0, len(names))
	for _, name := range names {
		rows = append(rows, countRow{label: name, count: counts[name]})
	}
	renderCountTable(out, "Assignee", "Tasks", rows)
}
