package tools

import (
	"context"
	"encoding/json"

	"github.com/metalagman/quest/internal/reason"
	"github.com/rs/zerolog/log"
)

// Verifier runs the verification tools against a reasoning result and
// assembles the report consumed by synthesis. Tool failures degrade the
// report, they never fail the caller.
type Verifier struct {
	invoker Invoker
}

// NewVerifier constructs a verifier over a tool invoker.
func NewVerifier(invoker Invoker) *Verifier {
	return &Verifier{invoker: invoker}
}

// Verify checks the reasoning steps for consistency and the final hypothesis
// for factuality. A zero report is returned when both tools fail.
func (v *Verifier) Verify(ctx context.Context, result reason.Result) reason.VerificationReport {
	var report reason.VerificationReport

	hypotheses := make([]string, 0, len(result.Steps))
	for _, step := range result.Steps {
		hypotheses = append(hypotheses, step.Hypothesis)
	}

	consistencyOK := false
	res, err := v.invoker.Call(ctx, ToolVerifyConsistency, map[string]any{
		"hypotheses": hypotheses,
	})
	if err != nil || !res.OK {
		log.Warn().Err(err).Msg("consistency check unavailable")
	} else if err := json.Unmarshal(res.Result, &report); err != nil {
		log.Warn().Err(err).Msg("malformed consistency report")
	} else {
		consistencyOK = true
	}

	factOK := false
	res, err = v.invoker.Call(ctx, ToolVerifyFactCheck, map[string]any{
		"claim":    result.FinalHypothesis,
		"evidence": evidenceRefs(result),
	})
	if err != nil || !res.OK {
		log.Warn().Err(err).Msg("fact check unavailable")
	} else {
		var factual struct {
			Flags            []reason.FactualityFlag `json:"flags"`
			UnresolvedClaims []string                `json:"unresolved_claims"`
		}
		if err := json.Unmarshal(res.Result, &factual); err != nil {
			log.Warn().Err(err).Msg("malformed fact check report")
		} else {
			report.Factuality = append(report.Factuality, factual.Flags...)
			report.UnresolvedClaims = append(report.UnresolvedClaims, factual.UnresolvedClaims...)
			factOK = true
		}
	}

	report.Verified = consistencyOK && factOK &&
		len(report.Contradictions) == 0 && len(report.Factuality) == 0
	return report
}

func evidenceRefs(result reason.Result) []string {
	var refs []string
	for _, step := range result.Steps {
		refs = append(refs, step.Evidence...)
	}
	return refs
}
