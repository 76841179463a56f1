package classify

import (
	"encoding/json"
	"strings"
)

// parseStatus reports how a model response was recovered into JSON.
type parseStatus int

const (
	// parsedDirect: the response was valid JSON as-is.
	parsedDirect parseStatus = iota
	// parsedFenced: JSON was recovered from a markdown code fence.
	parsedFenced
	// parseFailed: no JSON could be recovered.
	parseFailed
)

// parseModelJSON decodes LLM output into v. Models asked for strict JSON
// still wrap it in markdown fences often enough that a second unfencing
// pass is part of the contract, not a workaround.
func parseModelJSON(raw string, v any) parseStatus {
	raw = strings.TrimSpace(raw)

	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return parsedDirect
	}

	inner, ok := extractFencedBlock(raw)
	if !ok {
		return parseFailed
	}
	if err := json.Unmarshal([]byte(inner), v); err != nil {
		return parseFailed
	}
	return parsedFenced
}

// extractFencedBlock returns the contents of the first ``` fence, tolerating
// an optional language tag after the opening backticks.
func extractFencedBlock(raw string) (string, bool) {
	start := strings.Index(raw, "```")
	if start < 0 {
		return "", false
	}
	rest := raw[start+3:]

	// Skip a language tag like "json" up to the first newline.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		firstLine := strings.TrimSpace(rest[:nl])
		if firstLine == "" || isLanguageTag(firstLine) {
			rest = rest[nl+1:]
		}
	}

	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

func isLanguageTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return len(s) > 0
}
