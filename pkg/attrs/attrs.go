// Package attrs works with slog-style key/value attribute slices
// ([key1, value1, key2, value2, ...]) shared by loggers and audit emitters.
package attrs

// ExtractString returns the string value stored under key, or "" when the
// key is absent or its value is not a string.
func ExtractString(kv []any, key string) string {
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok && k == key {
			if v, ok := kv[i+1].(string); ok {
				return v
			}
		}
	}
	return ""
}

// Without returns a copy of kv with the given keys (and their values) removed.
// Used to strip raw PII before attributes reach a log line.
func Without(kv []any, keys ...string) []any {
	out := make([]any, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok && contains(keys, k) {
			continue
		}
		out = append(out, kv[i], kv[i+1])
	}
	return out
}

func contains(keys []string, k string) bool {
	for _, key := range keys {
		if key == k {
			return true
		}
	}
	return false
}
