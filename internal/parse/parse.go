// Package parse classifies raw LLM output as usable JSON or not.
package parse

import (
	"encoding/json"
	"strings"
)

// Classification describes what a raw LLM response turned out to be.
type Classification int

const (
	// Empty means the model returned no text at all (or a blocked response).
	Empty Classification = iota
	// Malformed means text came back but did not parse as a JSON object.
	Malformed
	// Valid means the response parsed into a JSON object.
	Valid
)

func (c Classification) String() string {
	switch c {
	case Empty:
		return "empty"
	case Malformed:
		return "malformed"
	case Valid:
		return "valid"
	default:
		return "unknown"
	}
}

// Result is the outcome of cleaning and parsing one raw response.
// When the text is Malformed, Stripped and Err keep the cleaned text and the
// decode error around for diagnostics.
type Result struct {
	Classification Classification
	Parsed         map[string]any
	Stripped       string
	Err            error
}

const (
	jsonFenceOpener = "```json"
	bareFence       = "```"
)

// StripFences removes exactly one layer of markdown code fences, language
// tagged or bare, trimming surrounding whitespace. It is a single pass: a
// doubly fenced payload keeps its inner fence.
func StripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, jsonFenceOpener) {
		cleaned = strings.TrimSpace(cleaned[len(jsonFenceOpener):])
	} else if strings.HasPrefix(cleaned, bareFence) {
		cleaned = strings.TrimSpace(cleaned[len(bareFence):])
	}
	if strings.HasSuffix(cleaned, bareFence) {
		cleaned = strings.TrimSpace(cleaned[:len(cleaned)-len(bareFence)])
	}
	return cleaned
}

// Parse cleans raw text and classifies it. Decode failure is a
// classification, not an error: Parse never fails.
func Parse(raw string) Result {
	if strings.TrimSpace(raw) == "" {
		return Result{Classification: Empty}
	}
	stripped := StripFences(raw)
	if stripped == "" {
		return Result{Classification: Empty}
	}
	var parsed map[string]any
	if decodeErr := json.Unmarshal([]byte(stripped), &parsed); decodeErr != nil {
		return Result{Classification: Malformed, Stripped: stripped, Err: decodeErr}
	}
	return Result{Classification: Valid, Parsed: parsed, Stripped: stripped}
}
