// Package extract recovers structured payloads from free-form model output.
//
// Models wrap JSON in prose, fence it with or without a language tag, or emit
// it bare. [JSONString] tries a fixed chain of independent strategies and
// returns the first candidate that parses.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Strategy locates one JSON candidate in text.
type Strategy func(text string) (string, bool)

// Strategies is the order JSONString tries candidates in.
var Strategies = []Strategy{FromFence, FromWhole, FromBraces}

// JSONString returns the first syntactically valid JSON document found in
// text, trimmed. It never panics.
func JSONString(text string) (string, bool) {
	for _, try := range Strategies {
		if s, ok := try(text); ok {
			return s, true
		}
	}
	return "", false
}

var fencePattern = regexp.MustCompile("(?s)```[ \\t]*([A-Za-z0-9_+#.-]*)[^\\n]*\\n(.*?)```")

// FromFence returns the body of the first fenced block tagged json, or of
// the first untagged fence whose body looks like JSON, if it parses.
func FromFence(text string) (string, bool) {
	for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
		tag := strings.ToLower(m[1])
		body := strings.TrimSpace(m[2])
		switch {
		case tag == "json" || tag == "jsonc" || tag == "json5":
		case tag == "" && (strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[")):
		default:
			continue
		}
		if s, ok := validJSON(body); ok {
			return s, true
		}
	}
	return "", false
}

// FromWhole accepts the entire trimmed text when it is delimited by a
// matching pair of braces or brackets.
func FromWhole(text string) (string, bool) {
	s := strings.TrimSpace(text)
	if len(s) < 2 {
		return "", false
	}
	first, last := s[0], s[len(s)-1]
	if (first == '{' && last == '}') || (first == '[' && last == ']') {
		return validJSON(s)
	}
	return "", false
}

// FromBraces accepts the span from the first '{' to the last '}'.
func FromBraces(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return validJSON(text[start : end+1])
}

// HasCandidate reports whether text contains anything JSONString would try
// to parse. It separates "no JSON at all" from "malformed JSON".
func HasCandidate(text string) bool {
	for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
		if strings.HasPrefix(strings.ToLower(m[1]), "json") {
			return true
		}
	}
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		return true
	}
	s := strings.TrimSpace(text)
	return strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")
}

var smartQuotes = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`,
	"‘", "'", "’", "'",
)

// validJSON returns s if it parses, retrying once with typographic quotes
// replaced by ASCII ones.
func validJSON(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if json.Valid([]byte(s)) {
		return s, true
	}
	if normalized := smartQuotes.Replace(s); normalized != s && json.Valid([]byte(normalized)) {
		return normalized, true
	}
	return "", false
}

// Decode extracts a JSON document from text and unmarshals it into v.
// It returns false when nothing could be extracted, and an error when the
// extracted document does not fit v.
func Decode(text string, v any) (bool, error) {
	s, ok := JSONString(text)
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal([]byte(s), v)
}
