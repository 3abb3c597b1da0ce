// Package engine implements the pipeline execution engine: an ordered list
// of stages run sequentially against one run context, producing one ordered
// event stream with per-stage failure isolation.
package engine

import (
	"context"
	"time"

	"github.com/metalagman/quest/internal/runctx"
)

const defaultStageTimeout = 30 * time.Second

// ProcessFunc is the unit of stage work. The returned value may be an
// event.Envelope (forwarded as-is), a <-chan event.Envelope (forwarded
// verbatim until closed), or any other value (stored in working memory and
// optionally wrapped into one event named after the stage).
type ProcessFunc func(ctx context.Context, rc *runctx.Context) (any, error)

// Condition decides whether a stage runs for a given run context.
type Condition func(rc *runctx.Context) bool

// StageConfig controls timeout, gating, and event emission for one stage.
type StageConfig struct {
	// Timeout bounds one execution of the stage.
	Timeout time.Duration
	// Condition gates the stage; nil means always run. A skipped stage
	// produces no event, consumes no timeout, and writes no output key.
	Condition Condition
	// EmitEvent wraps a non-envelope output into one emitted event.
	EmitEvent bool
	// EmitErrorEvent surfaces a stage failure as one error envelope. When
	// false the failure is logged and swallowed.
	EmitErrorEvent bool
}

// DefaultConfig returns the config used by ordinary visible stages.
func DefaultConfig() StageConfig {
	return StageConfig{
		Timeout:        defaultStageTimeout,
		EmitEvent:      true,
		EmitErrorEvent: true,
	}
}

// SilentConfig returns the config for stages that affect working memory and
// external systems but never appear in the event stream. Their failures
// never abort the pipeline and never surface to the caller.
func SilentConfig() StageConfig {
	return StageConfig{Timeout: defaultStageTimeout}
}

// Stage is one named unit of pipeline work.
type Stage struct {
	Name    string
	Process ProcessFunc
	Config  StageConfig
}

// NewStage builds a stage, applying the default timeout when unset.
func NewStage(name string, process ProcessFunc, config StageConfig) Stage {
	if config.Timeout <= 0 {
		config.Timeout = defaultStageTimeout
	}
	return Stage{Name: name, Process: process, Config: config}
}

// OutputKey returns the working-memory key holding the stage's raw output.
func OutputKey(stageName string) string {
	return stageName + ".output"
}
