package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"taskqueue/internal/queue"
)

// Read decodes tasks previously produced by Write.
func Read(r io.Reader, format Format) ([]*queue.Task, error) {
	var (
		records []record
		err     error
	)
	switch format {
	case FormatJSON:
		records, err = readJSON(r)
	case FormatCSV:
		records, err = readCSV(r)
	case FormatYAML:
		records, err = readYAML(r)
	default:
		return nil, &queue.InputError{Field: "format", Value: string(format), Reason: "unsupported"}
	}
	if err != nil {
		return nil, err
	}

	tasks := make([]*queue.Task, 0, len(records))
	for i, rec := range records {
		task, err := rec.task()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func readJSON(r io.Reader) ([]record, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	var records []record
	if err := decoder.Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode json export: %w", err)
	}
	return records, nil
}

func readYAML(r io.Reader) ([]record, error) {
	var records []record
	if err := yaml.NewDecoder(r).Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode yaml export: %w", err)
	}
	return records, nil
}

func readCSV(r io.Reader) ([]record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(csvHeader)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode csv export: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if strings.Join(rows[0], ",") != strings.Join(csvHeader, ",") {
		return nil, &queue.InputError{Field: "csv header", Value: strings.Join(rows[0], ","), Reason: "unexpected columns"}
	}

	records := make([]record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		meta, err := queue.DecodeMetadata(row[9])
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", row[0], err)
		}
		records = append(records, record{
			ID:           row[0],
			Title:        row[1],
			Description:  row[2],
			AssignedTo:   row[3],
			Status:       row[4],
			Priority:     row[5],
			CreatedAt:    row[6],
			ScheduledFor: row[7],
			CompletedAt:  row[8],
			Metadata:     metadataDoc(meta),
		})
	}
	return records, nil
}
