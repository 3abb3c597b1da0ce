// Package event defines the envelope format for the outward run event stream.
package event

import "time"

// Stage names used on envelopes. Stages not listed here (custom pipeline
// stages) use their registered name verbatim.
const (
	StageStart     = "start"
	StageHistory   = "history"
	StageRetrieval = "retrieval"
	StagePlan      = "plan"
	StageReasoning = "reasoning"
	StageVerify    = "verify"
	StageSynthesis = "synthesis"
	StageAnswer    = "answer"
	StageError     = "error"
)

// Envelope is one unit of the outward event stream. Envelopes are never
// mutated after creation; a correction is always a new envelope with a
// higher sequence number.
type Envelope struct {
	Stage     string         `json:"stage"`
	Message   string         `json:"message"`
	Payload   map[string]any `json:"payload,omitempty"`
	Seq       int64          `json:"seq"`
	Timestamp time.Time      `json:"timestamp"`
	TraceID   string         `json:"trace_id"`
	SessionID string         `json:"session_id"`
}

// New builds an envelope with the current timestamp.
func New(stage, message string, payload map[string]any, seq int64, traceID, sessionID string) Envelope {
	return Envelope{
		Stage:     stage,
		Message:   message,
		Payload:   payload,
		Seq:       seq,
		Timestamp: time.Now().UTC(),
		TraceID:   traceID,
		SessionID: sessionID,
	}
}
