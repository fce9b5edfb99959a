package types

import (
	"fmt"
	"strconv"
)

// Record is a normalized entity payload as stored in the cache.
type Record = map[string]any

// CopyRecord returns a deep copy of a record. Nested maps and slices are
// duplicated so mutations of the copy never reach the original.
func CopyRecord(r Record) Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CopyRecord(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}

// MergeRecord merges src into dst field by field and returns dst. Fields
// absent from src keep their prior values.
func MergeRecord(dst, src Record) Record {
	if dst == nil {
		return CopyRecord(src)
	}
	for k, v := range src {
		dst[k] = copyValue(v)
	}
	return dst
}

// StringField returns the string value of a record field, or "" when the
// field is absent or not a string.
func StringField(r Record, key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// IntField returns the integer value of a record field, coercing float64
// (the JSON decoder's number type) and numeric strings.
func IntField(r Record, key string) int {
	n, _ := asInt(r[key])
	return n
}

// BoolField returns the boolean value of a record field, or false.
func BoolField(r Record, key string) bool {
	if v, ok := r[key].(bool); ok {
		return v
	}
	return false
}

// asString coerces ids and other string-or-number fields to their canonical
// string form.
func asString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatInt(int64(val), 10), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	default:
		return "", false
	}
}

// asInt coerces discriminants and positions to their canonical integer form.
func asInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case string:
		n, err := strconv.Atoi(val)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// coerceID rewrites r[key] to its canonical string form when present.
func coerceID(r Record, key string) error {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	s, ok := asString(v)
	if !ok {
		return fmt.Errorf("field %q is not a valid id", key)
	}
	r[key] = s
	return nil
}

// coerceInt rewrites r[key] to its canonical integer form when present.
func coerceInt(r Record, key string) error {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	n, ok := asInt(v)
	if !ok {
		return fmt.Errorf("field %q is not a valid integer", key)
	}
	r[key] = n
	return nil
}
