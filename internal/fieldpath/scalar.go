package fieldpath

import (
	"encoding/json"
	"strconv"
)

// Scalar converts strings and numbers to their display form. Booleans render
// as "true"/"false". Anything else reports false.
func Scalar(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int8:
		return strconv.FormatInt(int64(v), 10), true
	case int16:
		return strconv.FormatInt(int64(v), 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint8:
		return strconv.FormatUint(uint64(v), 10), true
	case uint16:
		return strconv.FormatUint(uint64(v), 10), true
	case uint32:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case json.Number:
		return v.String(), true
	default:
		return "", false
	}
}

// String resolves path and returns its scalar form, or def.
func String(payload any, path string, def string) string {
	value, ok := Lookup(payload, path)
	if !ok {
		return def
	}
	if s, ok := Scalar(value); ok {
		return s
	}
	return def
}

// Slice resolves path to a sequence and returns it as []any. Missing paths and
// non-sequences yield nil.
func Slice(payload any, path string) []any {
	value, ok := Lookup(payload, path)
	if !ok {
		return nil
	}
	return AsSlice(value)
}

// AsSlice converts a sequence value into []any.
func AsSlice(value any) []any {
	switch typed := value.(type) {
	case []any:
		return typed
	case []string:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = item
		}
		return out
	case []map[string]any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = item
		}
		return out
	default:
		return nil
	}
}
