package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Models are loose about member types: a field documented as a string comes
// back as a list, booleans come back quoted. The helpers below coerce members
// into the Go types the shapes use.

// members decodes an object candidate into its raw members.
func members(candidate []byte) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(candidate, &m); err != nil || m == nil {
		return nil, fmt.Errorf("%w: want a JSON object", ErrShape)
	}
	return m, nil
}

// require checks that every key is present in m.
func require(m map[string]json.RawMessage, keys ...string) error {
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return fmt.Errorf("%w: missing %q", ErrShape, k)
		}
	}
	return nil
}

// text renders a member as a string. Strings are unquoted, string lists are
// joined with newlines, null is empty and anything else is returned as
// compact JSON.
func text(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		parts := make([]string, 0, len(items))
		for _, it := range items {
			if t := text(it); t != "" {
				parts = append(parts, t)
			}
		}
		return strings.Join(parts, "\n")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// list renders a member as a string slice. A single non-empty string becomes
// a one-element list. The result is never nil.
func list(raw json.RawMessage) []string {
	out := []string{}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		for _, it := range items {
			if t := strings.TrimSpace(text(it)); t != "" {
				out = append(out, t)
			}
		}
		return out
	}
	if t := strings.TrimSpace(text(raw)); t != "" {
		out = append(out, t)
	}
	return out
}

// boolean accepts JSON booleans and the strings "true"/"false" in any case.
// Anything else is false.
func boolean(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.EqualFold(strings.TrimSpace(s), "true")
	}
	return false
}
