package synth

import (
	"errors"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

var errNoJSONObject = errors.New("no json object found in response")

// extractJSONObject pulls the first well-formed JSON object out of a
// response that may be wrapped in code fences or surrounded by prose.
func extractJSONObject(content string) (string, error) {
	content = stripCodeFences(content)

	start := strings.IndexByte(content, '{')
	if start < 0 {
		return "", errNoJSONObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					candidate := content[start : i+1]
					if sonic.Valid([]byte(candidate)) {
						return candidate, nil
					}
					return "", errNoJSONObject
				}
			}
		}
	}
	return "", errNoJSONObject
}

func stripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	if idx := strings.Index(content, "```"); idx >= 0 {
		rest := content[idx+3:]
		// Drop an optional language tag on the fence line.
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}
	return content
}

// decodeDraft parses a JSON response into the draft type, tolerating
// prose wrapping. Missing fields stay at their zero values; the caller
// reconstructs a best-effort draft from whatever survived.
func decodeDraft[T any](content string, out *T) error {
	obj, err := extractJSONObject(content)
	if err != nil {
		return err
	}
	if err := sonic.UnmarshalString(obj, out); err != nil {
		return err
	}
	return nil
}

// parseLabelled reads loose "LABEL: value" lines from a plain-text
// response. Keys are lower-cased and underscored; empty and "None"
// values are treated as absent so defaults can fill them in.
func parseLabelled(content string) map[string]string {
	fields := map[string]string{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		key := normalizeLabel(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		value = strings.Trim(value, "`\"'")
		if value == "" || strings.EqualFold(value, "none") || strings.EqualFold(value, "n/a") {
			continue
		}
		if _, exists := fields[key]; !exists {
			fields[key] = value
		}
	}
	return fields
}

func normalizeLabel(label string) string {
	label = strings.TrimSpace(strings.ToLower(label))
	label = strings.TrimPrefix(label, "- ")
	label = strings.ReplaceAll(label, " ", "_")
	label = strings.ReplaceAll(label, "-", "_")
	return label
}

// labelledFloat reads a float field from a labelled map.
func labelledFloat(fields map[string]string, key string, fallback float64) float64 {
	if raw, ok := fields[key]; ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return fallback
}

// labelledInt reads an int field from a labelled map.
func labelledInt(fields map[string]string, key string, fallback int) int {
	if raw, ok := fields[key]; ok {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}
