// Package parse turns semi-structured generative model output into typed
// values. Every grammar here is total: malformed input degrades according to
// a documented fallback rule instead of failing the caller, except where an
// error is the only meaningful answer (FirstJSONObject).
package parse

import (
	"strings"

	"github.com/efebarandurmaz/anzen/internal/llm"
)

// StripFences removes thinking tags and the outermost markdown code fence
// pair. Text without fences is returned trimmed.
func StripFences(s string) string {
	s = llm.StripThinkingTags(s)
	lines := strings.Split(s, "\n")

	start := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			start = i
			break
		}
	}
	if start == -1 {
		return strings.TrimSpace(s)
	}

	end := len(lines)
	for i := len(lines) - 1; i > start; i-- {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
			end = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[start+1:end], "\n"))
}

// lines splits on any newline convention and drops blank lines.
func lines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
