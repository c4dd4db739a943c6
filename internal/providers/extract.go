package providers

import (
	"encoding/json"
	"strings"
)

// extractJSON returns the first JSON document in s, looking through a
// markdown code fence if present. It returns nil when s holds no valid JSON.
func extractJSON(s string) json.RawMessage {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			s = strings.TrimSpace(rest[:end])
		}
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(s[start:]))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil
	}
	return raw
}
