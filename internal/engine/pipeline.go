package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/metalagman/quest/internal/event"
	"github.com/metalagman/quest/internal/metrics"
	"github.com/metalagman/quest/internal/runctx"
	"github.com/rs/zerolog/log"
)

const defaultGlobalTimeout = 5 * time.Minute

// Pipeline executes stages in registration order against one run context
// and produces one ordered event stream.
type Pipeline struct {
	stages        []Stage
	globalTimeout time.Duration
}

// New builds a pipeline. A non-positive timeout falls back to the default
// global timeout.
func New(globalTimeout time.Duration, stages ...Stage) *Pipeline {
	if globalTimeout <= 0 {
		globalTimeout = defaultGlobalTimeout
	}
	return &Pipeline{stages: stages, globalTimeout: globalTimeout}
}

// Execute runs the pipeline and returns the event stream. The stream always
// starts with a start envelope and is always terminated by exactly one
// answer envelope, even under global timeout or a defect escaping stage
// isolation. The channel is closed after the terminal envelope.
func (p *Pipeline) Execute(parent context.Context, rc *runctx.Context) <-chan event.Envelope {
	out := make(chan event.Envelope, 16)
	go p.run(parent, rc, out)
	return out
}

func (p *Pipeline) run(parent context.Context, rc *runctx.Context, out chan<- event.Envelope) {
	defer close(out)

	ctx, cancel := context.WithTimeout(parent, p.globalTimeout)
	defer cancel()

	hasError := false
	finalSent := false
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("run_id", rc.RunID).Any("panic", r).Msg("pipeline defect")
			p.emit(out, rc, event.StageError, "internal error", map[string]any{
				"class": "panic",
			})
			if !finalSent {
				p.emitFinal(out, rc, true)
			}
		}
	}()

	metrics.RunsStarted.WithLabelValues(rc.Strategy.String()).Inc()
	p.emit(out, rc, event.StageStart, "run started", map[string]any{
		"run_id":   rc.RunID,
		"strategy": rc.Strategy.String(),
		"scope":    rc.Scope,
	})

	for _, stage := range p.stages {
		if ctx.Err() != nil {
			hasError = true
			p.emit(out, rc, event.StageError, "run timed out", map[string]any{
				"class": "timeout",
			})
			break
		}
		if stage.Config.Condition != nil && !stage.Config.Condition(rc) {
			log.Debug().Str("run_id", rc.RunID).Str("stage", stage.Name).Msg("stage skipped")
			continue
		}
		if !p.runStage(ctx, rc, stage, out) && stage.Config.EmitErrorEvent {
			hasError = true
		}
	}

	result := "ok"
	if hasError {
		result = "error"
	}
	metrics.RunsCompleted.WithLabelValues(rc.Strategy.String(), result).Inc()

	p.emitFinal(out, rc, hasError)
	finalSent = true
}

func (p *Pipeline) runStage(ctx context.Context, rc *runctx.Context, stage Stage, out chan<- event.Envelope) bool {
	started := time.Now()
	sctx, cancel := context.WithTimeout(ctx, stage.Config.Timeout)
	defer cancel()

	output, err := invoke(sctx, rc, stage)
	if err != nil {
		metrics.StageFailures.WithLabelValues(stage.Name).Inc()
		class := "error"
		if errors.Is(err, context.DeadlineExceeded) || sctx.Err() != nil {
			class = "timeout"
		}
		log.Warn().
			Err(err).
			Str("run_id", rc.RunID).
			Str("stage", stage.Name).
			Str("class", class).
			Dur("duration", time.Since(started)).
			Msg("stage failed")
		if stage.Config.EmitErrorEvent {
			p.emit(out, rc, event.StageError, fmt.Sprintf("stage %s failed", stage.Name), map[string]any{
				"stage":   stage.Name,
				"class":   class,
				"message": err.Error(),
			})
		}
		return false
	}

	rc.Put(OutputKey(stage.Name), output)

	switch v := output.(type) {
	case <-chan event.Envelope:
		for ev := range v {
			out <- ev
		}
	case chan event.Envelope:
		for ev := range v {
			out <- ev
		}
	case event.Envelope:
		out <- v
	default:
		if stage.Config.EmitEvent {
			p.emit(out, rc, stage.Name, fmt.Sprintf("%s completed", stage.Name), map[string]any{
				"result": output,
			})
		}
	}

	log.Debug().
		Str("run_id", rc.RunID).
		Str("stage", stage.Name).
		Dur("duration", time.Since(started)).
		Msg("stage completed")
	return true
}

// invoke runs the stage function with panic isolation so a defective stage
// degrades like any other stage failure.
func invoke(ctx context.Context, rc *runctx.Context, stage Stage) (output any, err error) {
	defer func() {
		if r := recover(); r != nil {
			output = nil
			err = fmt.Errorf("stage panic: %v", r)
		}
	}()
	return stage.Process(ctx, rc)
}

func (p *Pipeline) emit(out chan<- event.Envelope, rc *runctx.Context, stage, message string, payload map[string]any) {
	out <- event.New(stage, message, payload, rc.NextSeq(), rc.TraceID, rc.SessionID)
}

func (p *Pipeline) emitFinal(out chan<- event.Envelope, rc *runctx.Context, hasError bool) {
	message := "run completed"
	if hasError {
		message = "run completed with errors"
	}
	p.emit(out, rc, event.StageAnswer, message, map[string]any{
		"answer":     rc.FinalAnswer(),
		"elapsed_ms": rc.Elapsed().Milliseconds(),
		"has_error":  hasError,
	})
}
