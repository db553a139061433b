package llm

import "strings"

var thinkingTags = [][2]string{{"<think>", "</think>"}, {"<thinking>", "</thinking>"}}

// StripThinkingTags removes <think>...</think> and <thinking>...</thinking>
// blocks that some models prepend to their answer. An unclosed block
// truncates the text at its opening tag.
func StripThinkingTags(s string) string {
	for _, tag := range thinkingTags {
		for {
			start := strings.Index(s, tag[0])
			if start == -1 {
				break
			}
			end := strings.Index(s[start:], tag[1])
			if end == -1 {
				s = strings.TrimSpace(s[:start])
				break
			}
			s = s[:start] + s[start+end+len(tag[1]):]
		}
	}
	return strings.TrimSpace(s)
}
