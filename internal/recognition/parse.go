package recognition

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseCandidateJSON parses the JSON response from an AI strategy into
// candidate lines. Models frequently wrap the payload in a markdown code
// fence or return a single bare object instead of an array; both are
// tolerated. Anything else is a malformed-response failure.
func parseCandidateJSON(text string) ([]CandidateLine, error) {
	payload, err := extractJSON(text)
	if err != nil {
		return nil, &Error{Kind: FailureMalformed, Err: err}
	}

	if strings.HasPrefix(payload, "[") {
		var lines []CandidateLine
		if err := json.Unmarshal([]byte(payload), &lines); err != nil {
			return nil, &Error{Kind: FailureMalformed, Err: fmt.Errorf("unmarshaling line array: %w", err)}
		}
		return lines, nil
	}

	// Bare object: wrap as a singleton list
	var line CandidateLine
	if err := json.Unmarshal([]byte(payload), &line); err != nil {
		return nil, &Error{Kind: FailureMalformed, Err: fmt.Errorf("unmarshaling line object: %w", err)}
	}
	return []CandidateLine{line}, nil
}

// extractJSON strips markdown code fences and surrounding prose, returning
// the outermost JSON array or object in the text.
func extractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)

	if idx := strings.Index(text, "```json"); idx != -1 {
		text = text[idx+len("```json"):]
		if end := strings.Index(text, "```"); end != -1 {
			text = text[:end]
		}
	} else {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	text = strings.TrimSpace(text)

	arrStart := strings.Index(text, "[")
	objStart := strings.Index(text, "{")

	if arrStart != -1 && (objStart == -1 || arrStart < objStart) {
		end := strings.LastIndex(text, "]")
		if end == -1 || end < arrStart {
			return "", fmt.Errorf("unterminated JSON array in response")
		}
		return text[arrStart : end+1], nil
	}

	if objStart != -1 {
		end := strings.LastIndex(text, "}")
		if end == -1 || end < objStart {
			return "", fmt.Errorf("unterminated JSON object in response")
		}
		return text[objStart : end+1], nil
	}

	return "", fmt.Errorf("no JSON payload found in response")
}
