// Package synthesis turns a reasoning result and its verification report
// into the user-visible answer text.
package synthesis

import (
	"fmt"
	"strings"

	"github.com/metalagman/quest/internal/reason"
)

// Compose builds the structured answer from the final reasoning result and
// the verification report. The output is sanitized: internal reasoning
// traces never reach the caller.
func Compose(question string, res reason.Result, report reason.VerificationReport) string {
	var b strings.Builder

	conclusion := Sanitize(res.FinalHypothesis)
	if conclusion == "" {
		conclusion = "No conclusive answer could be produced for this question."
	}
	b.WriteString(conclusion)
	b.WriteString("\n")

	sources := evidenceSources(res)
	if len(sources) > 0 {
		b.WriteString("\n## Sources\n\n")
		for _, s := range sources {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	if uncertainty := uncertaintySection(res, report); uncertainty != "" {
		b.WriteString("\n## Uncertainty\n\n")
		b.WriteString(uncertainty)
		b.WriteString("\n")
	}

	return Sanitize(b.String())
}

// evidenceSources collects distinct evidence references across all steps,
// preserving first-seen order.
func evidenceSources(res reason.Result) []string {
	seen := make(map[string]struct{})
	var sources []string
	for _, step := range res.Steps {
		for _, ev := range step.Evidence {
			ev = strings.TrimSpace(ev)
			if ev == "" {
				continue
			}
			if _, ok := seen[ev]; ok {
				continue
			}
			seen[ev] = struct{}{}
			sources = append(sources, ev)
		}
	}
	return sources
}

func uncertaintySection(res reason.Result, report reason.VerificationReport) string {
	var lines []string
	switch res.StopReason {
	case reason.StopMaxRounds:
		lines = append(lines, "Reasoning stopped at the round budget before full convergence.")
	case reason.StopNoProgress:
		lines = append(lines, "Reasoning stopped after consecutive rounds produced no new insight.")
	case reason.StopTimeout:
		lines = append(lines, "Reasoning was cut short by a timeout; this answer is based on partial results.")
	case reason.StopError:
		lines = append(lines, "A reasoning round failed; this answer may be incomplete.")
	}
	if res.FinalConfidence < 0.5 {
		lines = append(lines, fmt.Sprintf("Overall confidence is low (%.0f%%).", res.FinalConfidence*100))
	}
	if !report.Verified {
		for _, c := range report.Contradictions {
			lines = append(lines, "Possible contradiction: "+c.Description)
		}
		for _, f := range report.Factuality {
			lines = append(lines, "Unverified claim: "+f.Claim)
		}
		for _, claim := range report.UnresolvedClaims {
			lines = append(lines, "Unresolved: "+claim)
		}
	}
	return strings.Join(lines, "\n")
}
