package services

import "strings"

// ExtractJSONObject returns the substring from the first '{' to the last '}'
// of a model reply. It does not check that the result is valid JSON, so
// braces in surrounding prose can widen the match.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	if start < 0 {
		return "", false
	}
	end := strings.LastIndex(text, "}")
	if end < start {
		return "", false
	}
	return text[start : end+1], true
}
