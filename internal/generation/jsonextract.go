package generation

import (
	"encoding/json"
	"regexp"
	"strings"
)

// wrapper keys models commonly nest a single array under
var wrapperKeys = []string{"items", "data", "results", "questions", "vocabulary"}

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// ExtractJSON pulls structured data out of model output. Models wrap JSON
// in markdown fences, prepend prose, leave trailing commas and nest arrays
// under wrapper objects; each repair step below targets one of those
// habits. Returns nil when nothing recoverable remains.
func ExtractJSON(content string) any {
	content = stripCodeFences(content)
	if content == "" {
		return nil
	}

	if v, ok := tryParse(content); ok {
		return unwrap(v)
	}

	// The response isn't cleanly JSON; locate the first well-formed
	// array or object substring.
	if candidate := firstJSONValue(content); candidate != "" {
		if v, ok := tryParse(candidate); ok {
			return unwrap(v)
		}
	}

	// Last resort: parse individual object literals independently and
	// keep whichever succeed.
	if objects := salvageObjects(content); len(objects) > 0 {
		return objects
	}

	return nil
}

// stripCodeFences removes markdown code block wrappers and surrounding
// whitespace.
func stripCodeFences(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
	} else {
		return content
	}
	if idx := strings.LastIndex(content, "```"); idx != -1 {
		content = content[:idx]
	}
	return strings.TrimSpace(content)
}

// tryParse attempts to parse content, applying cleanup on the first miss
func tryParse(content string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(content), &v); err == nil {
		return v, true
	}

	cleaned := cleanJSON(content)
	if err := json.Unmarshal([]byte(cleaned), &v); err == nil {
		return v, true
	}
	return nil, false
}

// cleanJSON strips trailing commas and control characters that break
// strict parsing.
func cleanJSON(content string) string {
	content = trailingCommaRe.ReplaceAllString(content, "$1")

	var sb strings.Builder
	sb.Grow(len(content))
	for _, r := range content {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// firstJSONValue returns the first balanced array or object substring
func firstJSONValue(content string) string {
	start := -1
	var open, close rune
	for i, r := range content {
		if r == '[' || r == '{' {
			start = i
			open = r
			close = ']'
			if r == '{' {
				close = '}'
			}
			break
		}
	}
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i, r := range content[start:] {
		if escaped {
			escaped = false
			continue
		}
		switch {
		case r == '\\' && inString:
			escaped = true
		case r == '"':
			inString = !inString
		case inString:
		case r == open:
			depth++
		case r == close:
			depth--
			if depth == 0 {
				return content[start : start+i+1]
			}
		}
	}
	return ""
}

// unwrap flattens an object that nests a single array under a common
// wrapper key.
func unwrap(v any) any {
	obj, ok := v.(map[string]any)
	if !ok {
		return v
	}

	for _, key := range wrapperKeys {
		inner, present := obj[key]
		if !present {
			continue
		}
		if arr, isArr := inner.([]any); isArr {
			return arr
		}
	}
	return v
}

// salvageObjects scans for individual {...} literals and parses each
// independently.
func salvageObjects(content string) []any {
	var objects []any

	rest := content
	for {
		candidate := firstObjectLiteral(rest)
		if candidate == "" {
			break
		}
		if v, ok := tryParse(candidate); ok {
			objects = append(objects, v)
		}
		idx := strings.Index(rest, candidate)
		rest = rest[idx+len(candidate):]
	}
	return objects
}

// firstObjectLiteral is firstJSONValue restricted to objects
func firstObjectLiteral(content string) string {
	idx := strings.IndexRune(content, '{')
	if idx == -1 {
		return ""
	}
	return firstJSONValue(content[idx:])
}
