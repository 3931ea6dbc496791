// Package fieldpath resolves dotted and bracketed paths such as
// "items.2.title" or "items[2].title" against JSON-like payloads.
package fieldpath

import (
	"reflect"
	"strconv"
	"strings"
)

// Split breaks a path into its steps. Bracket indices are treated exactly like
// dotted segments and empty segments are dropped.
func Split(path string) []string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(path), "]", "")
	if cleaned == "" {
		return nil
	}
	steps := make([]string, 0, 4)
	for _, segment := range strings.Split(cleaned, ".") {
		for _, part := range strings.Split(segment, "[") {
			if part != "" {
				steps = append(steps, part)
			}
		}
	}
	return steps
}

// Join appends sub-paths to base using dotted notation.
func Join(base string, parts ...string) string {
	var b strings.Builder
	b.WriteString(base)
	for _, part := range parts {
		if part == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

// Lookup walks payload along path. The payload root must be a mapping and the
// path must be non-empty. Sequence steps need an in-range non-negative integer
// index, mapping steps need an existing key, and scalars cannot be traversed.
func Lookup(payload any, path string) (any, bool) {
	steps := Split(path)
	if len(steps) == 0 || !isMapping(payload) {
		return nil, false
	}
	current := payload
	for _, step := range steps {
		next, ok := stepInto(current, step)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Get returns the value at path, or def when the lookup fails or resolves to
// nil.
func Get(payload any, path string, def any) any {
	value, ok := Lookup(payload, path)
	if !ok || value == nil {
		return def
	}
	return value
}

func stepInto(current any, step string) (any, bool) {
	switch typed := current.(type) {
	case map[string]any:
		value, ok := typed[step]
		return value, ok
	case []any:
		idx, ok := index(step, len(typed))
		if !ok {
			return nil, false
		}
		return typed[idx], true
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(current)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		value := rv.MapIndex(reflect.ValueOf(step).Convert(rv.Type().Key()))
		if !value.IsValid() {
			return nil, false
		}
		return value.Interface(), true
	case reflect.Slice, reflect.Array:
		idx, ok := index(step, rv.Len())
		if !ok {
			return nil, false
		}
		return rv.Index(idx).Interface(), true
	default:
		return nil, false
	}
}

func index(step string, length int) (int, bool) {
	idx, err := strconv.Atoi(step)
	if err != nil || idx < 0 || idx >= length {
		return 0, false
	}
	return idx, true
}

func isMapping(value any) bool {
	if _, ok := value.(map[string]any); ok {
		return true
	}
	if value == nil {
		return false
	}
	rv := reflect.ValueOf(value)
	return rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String
}
