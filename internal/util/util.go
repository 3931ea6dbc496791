package util

// FirstNonEmpty returns the first non-empty string in values.
func FirstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

// CloneStringMap returns a shallow copy of input.
// It returns a non-nil map even when input is nil.
func CloneStringMap(input map[string]string) map[string]string {
	if input == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}

// DeepCloneMap copies a JSON-shaped map so that nested maps and slices are
// independent of the source. A nil input yields nil.
func DeepCloneMap(input map[string]any) map[string]any {
	if input == nil {
		return nil
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = DeepCloneValue(value)
	}
	return out
}

// DeepCloneTranslations copies a locale-keyed payload map.
func DeepCloneTranslations(input map[string]map[string]any) map[string]map[string]any {
	if input == nil {
		return nil
	}
	out := make(map[string]map[string]any, len(input))
	for locale, payload := range input {
		out[locale] = DeepCloneMap(payload)
	}
	return out
}

// DeepCloneValue copies maps and slices recursively. Scalars are returned as is.
func DeepCloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return DeepCloneMap(typed)
	case map[string]string:
		return CloneStringMap(typed)
	case map[string]map[string]any:
		return DeepCloneTranslations(typed)
	case []any:
		if typed == nil {
			return typed
		}
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = DeepCloneValue(item)
		}
		return out
	case []string:
		if typed == nil {
			return typed
		}
		out := make([]string, len(typed))
		copy(out, typed)
		return out
	case []map[string]any:
		if typed == nil {
			return typed
		}
		out := make([]map[string]any, len(typed))
		for i, item := range typed {
			out[i] = DeepCloneMap(item)
		}
		return out
	default:
		return value
	}
}
