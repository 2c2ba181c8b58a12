package records

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Remote is one dataset entry as published by a remote catalog feed.
// It is kept untyped because the exchange format is open-ended.
type Remote map[string]any

// Identifier returns the remote identifier, or "" when missing or not a string.
func (r Remote) Identifier() string {
	return strings.TrimSpace(r.String("identifier"))
}

// Title returns the remote title.
func (r Remote) Title() string {
	return r.String("title")
}

// String returns the value at key when it is a string.
func (r Remote) String(key string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

// Clone returns a deep copy of the document.
func (r Remote) Clone() Remote {
	if r == nil {
		return nil
	}
	return Remote(cloneMap(r))
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Remote:
		return Remote(cloneMap(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// IsBlank reports whether v carries no information: nil, whitespace-only
// strings, false, zero numbers, empty lists and empty objects.
func IsBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case int:
		return t == 0
	case json.Number:
		return t == "" || t == "0"
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case Remote:
		return len(t) == 0
	default:
		return false
	}
}

// Stringify renders a remote value as a string. Strings are returned verbatim,
// everything else is JSON encoded.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case json.Number:
		return t.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// StringList coerces a remote value into a list of non-blank strings.
// A single string is split on commas.
func StringList(v any) []string {
	var out []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	switch t := v.(type) {
	case string:
		for _, part := range strings.Split(t, ",") {
			add(part)
		}
	case []string:
		for _, s := range t {
			add(s)
		}
	case []any:
		for _, e := range t {
			switch s := e.(type) {
			case string:
				add(s)
			case nil:
			default:
				add(Stringify(s))
			}
		}
	}
	return out
}
