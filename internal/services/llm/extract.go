package llm

import (
	"strings"
)

// ExtractJSONObject pulls the first JSON object out of an LLM response,
// handling markdown code fences and surrounding prose.
func ExtractJSONObject(response string) string {
	return extractJSON(response, '{', '}')
}

// ExtractJSONArray pulls the first JSON array out of an LLM response.
func ExtractJSONArray(response string) string {
	return extractJSON(response, '[', ']')
}

func extractJSON(response string, openDelim, closeDelim byte) string {
	response = strings.TrimSpace(response)

	// Strip markdown code fences first
	if strings.HasPrefix(response, "```") {
		lines := strings.Split(response, "\n")
		var jsonLines []string
		inCodeBlock := false

		for _, line := range lines {
			if strings.HasPrefix(line, "```") {
				if inCodeBlock {
					break
				}
				inCodeBlock = true
				continue
			}
			if inCodeBlock {
				jsonLines = append(jsonLines, line)
			}
		}

		if len(jsonLines) > 0 {
			response = strings.TrimSpace(strings.Join(jsonLines, "\n"))
		}
	}

	startIdx := strings.IndexByte(response, openDelim)
	if startIdx < 0 {
		return response
	}

	// Scan for the matching close delimiter, ignoring nesting inside
	// string literals.
	depth := 0
	inString := false
	escaped := false
	for i := startIdx; i < len(response); i++ {
		c := response[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == openDelim:
			depth++
		case c == closeDelim:
			depth--
			if depth == 0 {
				return response[startIdx : i+1]
			}
		}
	}

	// Unbalanced - fall back to the widest slice
	endIdx := strings.LastIndexByte(response, closeDelim)
	if endIdx > startIdx {
		return response[startIdx : endIdx+1]
	}
	return response
}
