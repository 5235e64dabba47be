package export

import (
	"strings"

	"taskqueue/internal/queue"
)

// Format names an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
)

// Formats lists the supported encodings.
func Formats() []Format {
	return []Format{FormatJSON, FormatCSV, FormatYAML}
}

// ParseFormat accepts a format name or a file extension such as ".yml".
func ParseFormat(value string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(value)), ".") {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", &queue.InputError{Field: "format", Value: value, Reason: "must be json, csv or yaml"}
	}
}

// Extension returns the file extension for the format, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}
