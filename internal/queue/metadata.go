package queue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Reserved metadata keys written by lifecycle transitions.
const (
	MetadataKeyResult        = "result"
	MetadataKeyFailureReason = "failure_reason"
)

// Metadata is an opaque JSON document attached to a task. Numbers decode as
// json.Number so they round-trip without precision loss.
type Metadata map[string]any

// DecodeMetadata parses stored metadata JSON. Empty input yields an empty map.
func DecodeMetadata(raw string) (Metadata, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return Metadata{}, nil
	}
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.UseNumber()
	var meta Metadata
	if err := decoder.Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if meta == nil {
		meta = Metadata{}
	}
	return meta, nil
}

// NormalizeMetadata re-encodes values produced by other decoders (YAML, CSV
// cells, CLI flags) into the canonical JSON document form.
func NormalizeMetadata(values map[string]any) (Metadata, error) {
	if len(values) == 0 {
		return Metadata{}, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return DecodeMetadata(string(data))
}

// Encode serializes metadata for storage. Empty metadata encodes as "".
func (m Metadata) Encode() (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	encoded, err := encodeJSONValue(map[string]any(m))
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return encoded, nil
}

func encodeJSONValue(value any) (string, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// Clone returns a shallow copy; nested documents are shared.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// String returns the value at key when it is a JSON string.
func (m Metadata) String(key string) (string, bool) {
	value, ok := m[key].(string)
	return value, ok
}

// ValidateMetadataKey rejects keys that cannot be addressed as a single
// top-level JSON path segment.
func ValidateMetadataKey(key string) error {
	if key == "" {
		return &InputError{Field: "metadata", Value: key, Reason: "key must not be empty"}
	}
	if strings.ContainsAny(key, "\"\\") {
		return &InputError{Field: "metadata", Value: key, Reason: "key must not contain quotes or backslashes"}
	}
	return nil
}

func metadataPath(key string) string {
	return `$."` + key + `"`
}

// metadataScalar converts a filter value into something SQLite can compare
// against json_extract output, along with the json_type values the stored
// element must have. Only scalars are supported. A nil value matches a null or
// missing key and carries no type constraint.
func metadataScalar(key string, value any) (any, []string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil, nil
	case string:
		return v, jsonTypesText, nil
	case bool:
		if v {
			return int64(1), jsonTypesBool, nil
		}
		return int64(0), jsonTypesBool, nil
	case int:
		return int64(v), jsonTypesNumber, nil
	case int64:
		return v, jsonTypesNumber, nil
	case float64:
		return v, jsonTypesNumber, nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, jsonTypesNumber, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, nil, &InputError{Field: "metadata." + key, Value: v.String(), Reason: "invalid number"}
		}
		return f, jsonTypesNumber, nil
	default:
		return nil, nil, &InputError{Field: "metadata." + key, Value: fmt.Sprint(value), Reason: "filter values must be scalars"}
	}
}

// json_type results; SQLite reports JSON true and false as 1 and 0 through
// json_extract, so equality alone cannot tell them from numbers.
var (
	jsonTypesText   = []string{"text"}
	jsonTypesBool   = []string{"true", "false"}
	jsonTypesNumber = []string{"integer", "real"}
)
