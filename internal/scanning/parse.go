package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseCandidateJSON carves the JSON object out of a model response and
// decodes it into a generic key-value tree. Providers drift structurally, so
// nothing here is schema-aware - strict decoding is the validator's job.
// Numbers are kept as json.Number so the validator sees the exact text.
func parseCandidateJSON(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)

	// Remove markdown code blocks if present
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var candidate map[string]any
	if err := dec.Decode(&candidate); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	return candidate, nil
}
