package main

import (
	"encoding/json"
	"strings"
	"time"

	"taskqueue/internal/queue"
)

// parseMetadataFlags turns repeated key=value arguments into metadata. Values
// that parse as JSON keep their type; anything else is stored as a string.
func parseMetadataFlags(values []string) (queue.Metadata, error) {
	if len(values) == 0 {
		return nil, nil
	}
	raw := make(map[string]any, len(values))
	for _, entry := range values {
		key, value, ok := strings.Cut(entry, "=")
		key = strings.TrimSpace(key)
		if !ok {
			return nil, &queue.InputError{Field: "meta", Value: entry, Reason: "expected key=value"}
		}
		if err := queue.ValidateMetadataKey(key); err != nil {
			return nil, err
		}
		raw[key] = parseLooseValue(value)
	}
	return queue.NormalizeMetadata(raw)
}

func parseLooseValue(value string) any {
	decoder := json.NewDecoder(strings.NewReader(value))
	decoder.UseNumber()
	var decoded any
	if err := decoder.Decode(&decoded); err != nil || decoder.More() {
		return value
	}
	return decoded
}

// parseSchedule accepts an RFC3339 timestamp or a duration relative to now.
func parseSchedule(value string, now time.Time) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return &ts, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		ts := now.Add(d)
		return &ts, nil
	}
	return nil, &queue.InputError{Field: "schedule", Value: value, Reason: "expected RFC3339 timestamp or duration"}
}

func parseStatuses(values []string) ([]queue.Status, error) {
	statuses := make([]queue.Status, 0, len(values))
	for _, value := range values {
		status, err := queue.ParseStatus(value)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// parseOptionalPriority treats an empty flag as unset.
func parseOptionalPriority(value string) (queue.Priority, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	return queue.ParsePriority(value)
}
