package parse

import (
	"regexp"
	"strings"
)

// Grammar for one list line:
//
//	line   := ws* marker? ws* item
//	marker := digit+ ("." | ")" | "、" | "．") | "-" | "*" | "•" | "・"
//
// Markdown emphasis and enclosing quotes are removed from item. Lines whose
// item is empty are dropped.
var listMarker = regexp.MustCompile(`^(?:\d+\s*[.)、．]|[-*•・])\s*`)

// NumberedList parses a numbered or bulleted list, one item per line, in the
// order returned.
func NumberedList(text string) []string {
	var items []string
	for _, l := range lines(StripFences(text)) {
		if item := listItem(l); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// UniqueList is NumberedList with later duplicates removed.
func UniqueList(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, item := range NumberedList(text) {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

func listItem(line string) string {
	item := strings.ReplaceAll(line, "**", "")
	item = listMarker.ReplaceAllString(strings.TrimSpace(item), "")
	return unquote(strings.TrimSpace(item))
}

// unquote strips one pair of matching enclosing quotes.
func unquote(s string) string {
	pairs := [][2]string{{`"`, `"`}, {"'", "'"}, {"「", "」"}, {"『", "』"}, {"`", "`"}}
	for _, p := range pairs {
		if len(s) >= len(p[0])+len(p[1]) && strings.HasPrefix(s, p[0]) && strings.HasSuffix(s, p[1]) {
			return strings.TrimSpace(s[len(p[0]) : len(s)-len(p[1])])
		}
	}
	return s
}

// Label cleans a single-answer response such as a classification: fences and
// quotes are removed and only the first non-empty line is kept.
func Label(text string) string {
	ls := lines(StripFences(text))
	if len(ls) == 0 {
		return ""
	}
	return listItem(ls[0])
}
