package core

import (
	"encoding/json"
	"strings"
)

const RedactedValue = "[REDACTED]"

// RedactSensitiveMap copies metadata with signing material replaced by
// RedactedValue. Identifiers needed to trace a request stay visible.
func RedactSensitiveMap(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return map[string]any{}
	}
	return redactSensitiveMap(metadata)
}

// RedactRequestBody returns a loggable form of a ledger request body. Bodies
// that do not decode to an object are reduced to their length.
func RedactRequestBody(body string) map[string]any {
	var raw map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &raw); err != nil || raw == nil {
		return map[string]any{"unparsed_length": len(body)}
	}
	return redactSensitiveMap(raw)
}

func redactSensitiveMap(source map[string]any) map[string]any {
	target := make(map[string]any, len(source))
	for key, value := range source {
		if shouldRedactKey(key) {
			target[key] = RedactedValue
			continue
		}
		target[key] = redactSensitiveValue(value)
	}
	return target
}

func redactSensitiveValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return redactSensitiveMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = redactSensitiveValue(typed[i])
		}
		return out
	default:
		return value
	}
}

func shouldRedactKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || isTraceabilityKey(key) {
		return false
	}
	for _, token := range []string{"signature", "seed", "secret", "private", "sig"} {
		if strings.Contains(key, token) {
			return true
		}
	}
	return false
}

func isTraceabilityKey(key string) bool {
	switch key {
	case "reqid",
		"identifier",
		"protocolversion",
		"operation",
		"type",
		"dest",
		"pool_handle",
		"request_handle",
		"operation_id":
		return true
	default:
		return false
	}
}
