package formatting

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ErrParseFailed is returned when content cannot be parsed as JSON,
// either directly or from a markdown code fence.
var ErrParseFailed = errors.New("failed to parse response")

var (
	jsonBlockRegex = regexp.MustCompile(`(?s)` + "```" + `(?:json)?\s*\n?(.*?)\n?` + "```")
	fencePrefix    = regexp.MustCompile("^`*(?:json)?")
)

// Parse unmarshals the first JSON candidate in content into T. Candidates
// are the trimmed content, the body of its first fenced block, and the
// content with an unterminated fence stripped.
func Parse[T any](content string) (T, error) {
	for _, c := range candidates(content) {
		var result T
		if err := json.Unmarshal([]byte(c), &result); err == nil {
			return result, nil
		}
	}

	var zero T
	return zero, fmt.Errorf("%w: %s", ErrParseFailed, strings.TrimSpace(content))
}

// candidates lists the distinct non-empty JSON texts worth trying for
// model output, most literal first.
func candidates(content string) []string {
	trimmed := strings.TrimSpace(content)
	out := make([]string, 0, 3)

	add := func(c string) {
		if c != "" && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}

	add(trimmed)
	if m := jsonBlockRegex.FindStringSubmatch(trimmed); len(m) >= 2 {
		add(strings.TrimSpace(m[1]))
	}
	add(stripFence(trimmed))
	return out
}

func stripFence(text string) string {
	s := strings.TrimSpace(text)
	s = fencePrefix.ReplaceAllString(s, "")
	s = strings.TrimRight(s, "`")
	return strings.TrimSpace(s)
}
