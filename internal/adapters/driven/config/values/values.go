// Package values converts loosely typed configuration values.
//
// TOML decoding yields int64, float64 and []any, while values set in memory
// or from the CLI may be int, string or []string. The helpers accept all of
// these and return the zero value for anything else.
package values

import (
	"strconv"
	"strings"
)

// String returns v as a string.
func String(v any) string {
	s, _ := v.(string)
	return s
}

// Int returns v as an int. Numeric strings are parsed.
func Int(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Float returns v as a float64. Integers are widened and numeric strings parsed.
func Float(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Bool returns v as a bool. The strings "true" and "false" are parsed.
func Bool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	default:
		return false
	}
}

// StringSlice returns v as a []string. A comma-separated string is split.
func StringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return nil
	}
}
