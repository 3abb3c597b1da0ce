package reason

import "time"

// StopReason classifies why the reasoning loop terminated. Exactly one stop
// reason is attached to each completed run.
type StopReason string

const (
	StopConfidence StopReason = "confidence_reached"
	StopMaxRounds  StopReason = "max_rounds"
	StopNoProgress StopReason = "no_progress"
	StopTimeout    StopReason = "timeout"
	StopError      StopReason = "error"
)

// Step is one completed reasoning round. Steps are immutable once created
// and appended to an ordered, append-only list.
type Step struct {
	Round      int       `json:"round"`
	Hypothesis string    `json:"hypothesis"`
	Raw        string    `json:"raw"`
	Evidence   []string  `json:"evidence,omitempty"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// Result is the terminal record of a reasoning run.
type Result struct {
	Steps           []Step     `json:"steps"`
	FinalHypothesis string     `json:"final_hypothesis"`
	FinalConfidence float64    `json:"final_confidence"`
	StopReason      StopReason `json:"stop_reason"`
}

// RoundProgress is the sanitized per-round record pushed onto the progress
// side channel while the loop is still running. It intentionally carries no
// hypothesis or evidence text.
type RoundProgress struct {
	Round      int     `json:"round"`
	MaxRounds  int     `json:"max_rounds"`
	Confidence float64 `json:"confidence"`
	Status     string  `json:"status"`
}
