package synthesis

import (
	"regexp"
	"strings"
)

// tracePattern matches lines carrying internal reasoning markers. Applied to
// every line, including lines inside code fences: leaking a raw trace is
// worse than mangling a code block that happens to contain one.
var tracePattern = regexp.MustCompile(`(?i)^\s*(hypothesis|confidence|evidence|thought|reasoning step|round \d+|chain.of.thought)\s*[:\-]`)

// Sanitize removes internal reasoning trace lines from answer text and
// collapses the blank runs left behind.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if tracePattern.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	out := strings.Join(kept, "\n")
	out = collapseBlankLines(out)
	return strings.TrimSpace(out)
}

func collapseBlankLines(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}
