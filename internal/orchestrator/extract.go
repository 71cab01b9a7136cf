package orchestrator

import (
	"encoding/json"
)

// ExtractJSON returns the first balanced JSON object embedded in text.
// Braces inside string literals are ignored. Models often wrap the object
// in prose or a fenced code block.
func ExtractJSON(text string) (json.RawMessage, bool) {
	var closes map[int]int
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		end, known := closes[i]
		if !known {
			// The brace sat inside a string of the previous scan, so it
			// opens a different reading of the text.
			closes = matchObjects(text, i)
			end = closes[i]
		}
		if end > i {
			if candidate := text[i : end+1]; json.Valid([]byte(candidate)) {
				return json.RawMessage(candidate), true
			}
		}
	}
	return nil, false
}

// matchObjects scans text once from start and maps the index of every
// opening brace outside a string literal to the index of its closing
// brace, or -1 when it is never closed.
func matchObjects(text string, start int) map[int]int {
	closes := make(map[int]int)
	var open []int
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			closes[i] = -1
			open = append(open, i)
		case '}':
			if n := len(open); n > 0 {
				closes[open[n-1]] = i
				open = open[:n-1]
			}
		}
	}
	return closes
}
