package structured

import (
	"math"
	"strconv"
	"strings"
)

// Str returns the named field as a trimmed string, empty when missing or null.
func Str(obj map[string]any, key string) string {
	v, ok := obj[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(stringify(v))
}

// StringList returns the named field as a string slice: sequences pass
// through (blank entries dropped), a scalar wraps into a one-element slice,
// missing/null yields an empty slice, never nil semantics leaking upward.
func StringList(obj map[string]any, key string) []string {
	v, ok := obj[key]
	if !ok || v == nil {
		return []string{}
	}

	items, ok := v.([]any)
	if !ok {
		if s := strings.TrimSpace(stringify(v)); s != "" {
			return []string{s}
		}
		return []string{}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(stringify(item)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Float returns the named field as a float64. Numeric strings are parsed;
// anything else reports ok=false.
func Float(obj map[string]any, key string) (float64, bool) {
	v, present := obj[key]
	if !present || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
