package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSONObject finds the first balanced {...} object in an LLM response
// and returns it together with the remaining text (everything before and
// after the object, joined and trimmed). Responses often wrap the object in
// markdown fences or follow it with free text; both are handled.
func ExtractJSONObject(response string) (jsonStr string, remainder string, err error) {
	cleaned := stripCodeFences(response)

	start := strings.IndexByte(cleaned, '{')
	if start < 0 {
		return "", "", fmt.Errorf("no JSON object found in response")
	}

	end, ok := findBalancedEnd(cleaned, start)
	if !ok {
		return "", "", fmt.Errorf("unbalanced JSON object in response")
	}

	candidate := cleaned[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", "", fmt.Errorf("invalid JSON object in response")
	}

	remainder = strings.TrimSpace(cleaned[:start] + cleaned[end+1:])
	return candidate, remainder, nil
}

// ParseJSONResponse extracts the first JSON object from a response and
// unmarshals it into the target type.
func ParseJSONResponse[T any](response string) (T, error) {
	var result T

	jsonStr, _, err := ExtractJSONObject(response)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("unmarshal JSON: %w", err)
	}

	return result, nil
}

// stripCodeFences removes markdown code fences that models wrap JSON in.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// findBalancedEnd returns the index of the brace closing the object opened at
// start, accounting for nesting and string literals.
func findBalancedEnd(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}

		if c == '\\' && inString {
			escaped = true
			continue
		}

		if c == '"' {
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}

	return 0, false
}
