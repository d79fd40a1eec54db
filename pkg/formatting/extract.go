package formatting

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidInput is returned when Extract is called with empty text or an empty key.
	ErrInvalidInput = errors.New("invalid extraction input")
	// ErrNotFound is returned when neither extraction strategy locates the key.
	ErrNotFound = errors.New("key not found")
)

// Extract pulls the value stored under key out of model output.
//
// The text is first decoded as a JSON object (after removing any markdown
// code fence). Sequence values are joined with ", ". When the text is not a
// JSON object, Extract falls back to the first `key: value` line and returns
// the trimmed value. ErrNotFound distinguishes a missing key from an empty value.
func Extract(text, key string) (string, error) {
	if strings.TrimSpace(text) == "" || key == "" {
		return "", ErrInvalidInput
	}

	if obj, ok := decodeObject(text); ok {
		raw, found := obj[key]
		if !found {
			return "", fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return stringify(raw, key)
	}

	return extractLine(text, key)
}

func decodeObject(text string) (map[string]json.RawMessage, bool) {
	for _, c := range candidates(text) {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(c), &obj); err == nil && obj != nil {
			return obj, true
		}
	}
	return nil, false
}

func stringify(raw json.RawMessage, key string) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	switch val := v.(type) {
	case nil:
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	case string:
		return val, nil
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, scalar(item))
		}
		return strings.Join(parts, ", "), nil
	default:
		return scalar(val), nil
	}
}

func scalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool, float64:
		return fmt.Sprint(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

func extractLine(text, key string) (string, error) {
	pattern := regexp.MustCompile(`(?m)(?:^|[^\w])["']?` + regexp.QuoteMeta(key) + `["']?[ \t]*:[ \t]*([^\n]+)`)

	m := pattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	value := strings.TrimSpace(m[1])
	value = strings.TrimSuffix(value, ",")
	value = strings.TrimSpace(value)
	value = strings.Trim(value, `"'`)
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return value, nil
}
