package main

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"taskqueue/internal/queue"
)

const titleWidthMax = 48

var taskColumns = table.Row{"ID", "Title", "Status", "Priority", "Assignee", "Created", "Scheduled"}

// newTableWriter returns a rounded table that renders straight to out.
func newTableWriter(out io.Writer, header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(header)
	return tw
}

// renderTaskTable lists tasks one per row, keeping the order it was given.
func renderTaskTable(out io.Writer, tasks []*queue.Task) {
	colorize := shouldColorize(out)
	tw := newTableWriter(out, taskColumns)
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Title", WidthMax: titleWidthMax, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Assignee", WidthMax: 24, WidthMaxEnforcer: text.Trim},
	})
	for _, task := range tasks {
		tw.AppendRow(table.Row{
			task.ID,
			task.Title,
			statusLabel(task.Status, colorize),
			priorityLabel(task.Priority, colorize),
			dash(task.AssignedTo),
			task.CreatedAt.Local().Format(timeDisplayLayout),
			formatOptionalTime(task.ScheduledFor),
		})
	}
	tw.Render()
}

type countRow struct {
	label string
	count int
}

// renderCountTable prints label/count pairs with the counts right-aligned.
func renderCountTable(out io.Writer, labelHeader, countHeader string, rows []countRow) {
	tw := newTableWriter(out, table.Row{labelHeader, countHeader})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignRight},
	})
	for _, row := range rows {
		tw.AppendRow(table.Row{row.label, row.count})
	}
	tw.Render()
}
