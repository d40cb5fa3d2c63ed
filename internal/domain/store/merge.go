package store

import (
	"encoding/json"
	"time"
)

// ApplyMerge returns existing with fields merged in. Nested maps merge
// recursively and Incr directives add to the current numeric value, treating
// absent or non-numeric values as zero. existing is not modified.
func ApplyMerge(existing, fields Document) Document {
	out := Clone(existing)
	if out == nil {
		out = Document{}
	}
	for k, v := range fields {
		switch val := v.(type) {
		case Incr:
			out[k] = addInt(out[k], val.Delta)
		case map[string]any:
			cur, _ := out[k].(map[string]any)
			out[k] = ApplyMerge(cur, val)
		default:
			out[k] = cloneValue(v)
		}
	}
	return out
}

// Resolve returns fields with every Incr replaced by its delta, as seen by a
// document that does not exist yet.
func Resolve(fields Document) Document {
	return ApplyMerge(nil, fields)
}

func addInt(cur any, delta int64) any {
	switch n := cur.(type) {
	case int64:
		return n + delta
	case int:
		return int64(n) + delta
	case float64:
		return n + float64(delta)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i + delta
		}
		if f, err := n.Float64(); err == nil {
			return f + float64(delta)
		}
	}
	return delta
}

// Clone deep-copies a document.
func Clone(d Document) Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return Clone(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	case time.Time, string, bool, nil, int, int64, float64:
		return val
	}
	return v
}
