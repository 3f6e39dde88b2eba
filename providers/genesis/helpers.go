package genesis

import (
	"encoding/json"
	"strconv"
	"strings"
)

// rawString accepts both "0" and 0 for fields that ledgers encode either way.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(string(raw))
}

func rawInt(raw json.RawMessage) (int, bool) {
	value := rawString(raw)
	if value == "" {
		return 0, false
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func itoa(value int) string {
	return strconv.Itoa(value)
}
