package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"taskqueue/internal/queue"
)

var csvHeader = []string{
	"id",
	"title",
	"description",
	"assigned_to",
	"status",
	"priority",
	"created_at",
	"scheduled_for",
	"completed_at",
	"metadata",
}

// Write encodes tasks to w in the requested format.
func Write(w io.Writer, format Format, tasks []*queue.Task) error {
	records := make([]record, 0, len(tasks))
	for _, task := range tasks {
		if task != nil {
			records = append(records, toRecord(task))
		}
	}

	switch format {
	case FormatJSON:
		return writeJSON(w, records)
	case FormatCSV:
		return writeCSV(w, records)
	case FormatYAML:
		return writeYAML(w, records)
	default:
		return &queue.InputError{Field: "format", Value: string(format), Reason: "unsupported"}
	}
}

func writeJSON(w io.Writer, records []record) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("encode json export: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, records []record) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("encode yaml export: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("encode yaml export: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, records []record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		meta, err := queue.Metadata(rec.Metadata).Encode()
		if err != nil {
			return fmt.Errorf("task %s: %w", rec.ID, err)
		}
		row := []string{
			rec.ID,
			rec.Title,
			rec.Description,
			rec.AssignedTo,
			rec.Status,
			rec.Priority,
			rec.CreatedAt,
			rec.ScheduledFor,
			rec.CompletedAt,
			meta,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", rec.ID, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv export: %w", err)
	}
	return nil
}
