package model

import (
	"encoding/json"
	"math"
	"time"
)

// Float reads a numeric field regardless of how the backend decoded it.
func Float(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Int reads an integral field. Floats are truncated.
func Int(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	}
	if f, ok := Float(v); ok {
		return int64(f), true
	}
	return 0, false
}

// String reads a non-empty string field.
func String(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok && s != ""
}

// Bool reads a boolean field.
func Bool(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

// Map reads a nested document.
func Map(v any) (Document, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// Strings reads a list of strings. Non-string elements make it fail.
func Strings(v any) ([]string, bool) {
	switch l := v.(type) {
	case []string:
		return l, true
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// Time reads a timestamp stored natively or as RFC 3339 text.
func Time(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}
