// Package formatting parses model output into Go values and formats
// human-readable quantities such as byte sizes.
package formatting

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Base-1024 units. The IEC spellings (KiB, MiB, ...) are accepted as aliases.
var units = []string{"B", "KB", "MB", "GB", "TB", "PB"}

var sizePattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([A-Za-z]*)$`)

// FormatBytes renders n with the largest unit that keeps the value at or
// above one. Negative precision is treated as zero.
func FormatBytes(n int64, precision int) string {
	precision = max(precision, 0)

	v := float64(n)
	i := 0
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}
	if i == 0 {
		return strconv.FormatInt(n, 10) + " B"
	}
	return strconv.FormatFloat(v, 'f', precision, 64) + " " + units[i]
}

// ParseBytes parses a size such as "20MB", "1.5 GiB", or "512" (bytes).
// Units are case-insensitive.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid byte size: %q", s)
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size number: %w", err)
	}

	unit := strings.ToUpper(m[2])
	if unit == "" {
		unit = "B"
	}
	unit = strings.Replace(unit, "IB", "B", 1)

	mult := float64(1)
	for _, u := range units {
		if u == unit {
			return int64(value * mult), nil
		}
		mult *= 1024
	}
	return 0, fmt.Errorf("unknown byte size unit: %q", m[2])
}
