package reason

// ContradictionFlag names two steps whose hypotheses conflict.
type ContradictionFlag struct {
	StepA       int    `json:"step_a"`
	StepB       int    `json:"step_b"`
	Description string `json:"description"`
}

// FactualityFlag marks a claim the fact-check tool could not support.
type FactualityFlag struct {
	Claim       string `json:"claim"`
	Description string `json:"description"`
}

// VerificationReport is produced by the external verification tools and
// consumed by synthesis. A zero report reads as "not verified, no findings".
type VerificationReport struct {
	ConsistencyScore float64             `json:"consistency_score"`
	Contradictions   []ContradictionFlag `json:"contradictions,omitempty"`
	Factuality       []FactualityFlag    `json:"factuality,omitempty"`
	UnresolvedClaims []string            `json:"unresolved_claims,omitempty"`
	Verified         bool                `json:"verified"`
	Issues           []string            `json:"issues,omitempty"`
	Recommendations  []string            `json:"recommendations,omitempty"`
}
