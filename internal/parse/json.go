package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSONObject is returned when no balanced JSON object is present.
var ErrNoJSONObject = errors.New("no JSON object in response")

// FirstJSONObject returns the first balanced {...} substring of text. Braces
// inside string literals are ignored. If an opening brace is never closed the
// scan resumes at the next opening brace.
func FirstJSONObject(text string) (string, error) {
	for from := 0; from < len(text); {
		rel := strings.IndexByte(text[from:], '{')
		if rel < 0 {
			break
		}
		start := from + rel
		if end, ok := matchBrace(text, start); ok {
			return text[start : end+1], nil
		}
		from = start + 1
	}
	return "", ErrNoJSONObject
}

func matchBrace(text string, start int) (int, bool) {
	depth := 0
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

// JSONObject extracts the first JSON object in text and decodes it into v.
func JSONObject(text string, v any) error {
	raw, err := FirstJSONObject(StripFences(text))
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decoding JSON object: %w", err)
	}
	return nil
}
