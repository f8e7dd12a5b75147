package tool

import (
	"encoding/json"
	"strings"
)

// ParseArguments decodes a JSON object payload. Anything that is not a valid
// JSON object yields an empty map.
func ParseArguments(raw string) map[string]any {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}

// String returns the trimmed string argument, or def when absent, blank or not a string.
func String(args map[string]any, key, def string) string {
	v, ok := args[key].(string)
	if !ok {
		return def
	}
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

// Number returns a numeric argument. JSON numbers decode as float64.
func Number(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
