package util

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_.-]*)\}`)

// RenderTemplate resolves {key} placeholders in an instruction against a
// state map. Placeholders without a matching key are left untouched so
// braces in literal text (JSON examples etc.) survive rendering.
func RenderTemplate(text string, state map[string]any) (string, error) {
	if !strings.Contains(text, "{") { // fast path: no placeholders
		return text, nil
	}

	out := placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		key := match[1 : len(match)-1]
		val, ok := state[key]
		if !ok {
			return match
		}
		if s, ok := val.(string); ok {
			return s
		}
		return Stringify(val)
	})

	return out, nil
}

// Stringify renders an arbitrary value for embedding in text: strings pass
// through, structured values are JSON-encoded.
func Stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}

	return string(b)
}
