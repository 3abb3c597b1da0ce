package reason

import (
	"strconv"
	"strings"
	"time"
)

const defaultConfidence = 0.5

// parseStep reads the structured-section reasoning reply into a step:
//
//	HYPOTHESIS: <text>
//	CONFIDENCE: <0.0-1.0>
//	EVIDENCE:
//	- <reference>
//
// A missing hypothesis falls back to the first non-empty line of the reply.
// Confidence outside [0,1] is clamped; an unparsable confidence defaults to
// 0.5.
func parseStep(round int, raw string) Step {
	step := Step{
		Round:      round,
		Raw:        raw,
		Confidence: defaultConfidence,
		Timestamp:  time.Now().UTC(),
	}
	inEvidence := false
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "HYPOTHESIS:"):
			step.Hypothesis = strings.TrimSpace(line[len("HYPOTHESIS:"):])
			inEvidence = false
		case strings.HasPrefix(upper, "CONFIDENCE:"):
			step.Confidence = parseConfidence(line[len("CONFIDENCE:"):])
			inEvidence = false
		case strings.HasPrefix(upper, "EVIDENCE:"):
			inEvidence = true
		case strings.HasPrefix(line, "-") && inEvidence:
			if ref := strings.TrimSpace(strings.TrimPrefix(line, "-")); ref != "" {
				step.Evidence = append(step.Evidence, ref)
			}
		default:
			inEvidence = false
		}
	}
	if step.Hypothesis == "" {
		step.Hypothesis = firstLine(raw)
	}
	return step
}

func parseConfidence(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return defaultConfidence
	}
	return clamp01(v)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// summarize returns a one-line summary of a hypothesis for prompt context.
func summarize(hypothesis string, maxLen int) string {
	s := strings.Join(strings.Fields(hypothesis), " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
