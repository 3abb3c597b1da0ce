package workflows

import (
	"context"
	"fmt"
	"iter"

	"github.com/metalagman/quest/internal/engine"
	"github.com/metalagman/quest/internal/event"
	"github.com/metalagman/quest/internal/llm"
	"github.com/metalagman/quest/internal/metrics"
	"github.com/metalagman/quest/internal/reason"
	"github.com/metalagman/quest/internal/runctx"
	"github.com/metalagman/quest/internal/synthesis"
	"github.com/metalagman/quest/internal/tools"
	"github.com/rs/zerolog/log"
)

// deepGenerator adapts the streaming LLM client to the coordinator's
// single-prompt contract, pinning deep mode and the loaded history.
type deepGenerator struct {
	gen     llm.Generator
	history []llm.Message
}

func (g deepGenerator) Stream(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return g.gen.Stream(ctx, prompt, g.history, llm.ModeDeep)
}

// planStage asks the model for a structured plan. A malformed or failed
// response degrades to the single-subtask fallback plan.
func (f *Factory) planStage() engine.Stage {
	return engine.NewStage(event.StagePlan, func(ctx context.Context, rc *runctx.Context) (any, error) {
		raw, err := llm.Collect(f.gen.Stream(ctx, planPrompt(rc), historyMessages(rc), llm.ModeDeep))
		var plan reason.Plan
		if err != nil {
			log.Warn().Err(err).Str("run_id", rc.RunID).Msg("plan generation failed, using fallback")
			plan = reason.FallbackPlan(rc.Question)
		} else {
			plan = reason.ParsePlan(raw, rc.Question)
		}
		rc.SetPlan(plan)
		return map[string]any{"subtasks": len(plan.Subtasks)}, nil
	}, f.stageConfig())
}

// deepReasoningStage runs the convergence loop and bridges its round events
// into the pipeline stream. The stage output is the event stream itself; the
// terminal result lands in working memory before the stream closes, so later
// stages always observe it.
func (f *Factory) deepReasoningStage() engine.Stage {
	cfg := f.stageConfig()
	cfg.Timeout = f.cfg.DeepTimeout
	return engine.NewStage(event.StageReasoning, func(ctx context.Context, rc *runctx.Context) (any, error) {
		coord := reason.NewCoordinator(deepGenerator{gen: f.gen, history: historyMessages(rc)}, f.cfg.Reasoning)
		rounds := coord.EffectiveMaxRounds(rc.Policy.MaxReasoningRounds)

		req := reason.Request{
			Question:  deepQuestion(rc),
			Plan:      rc.Plan(),
			MaxRounds: rc.Policy.MaxReasoningRounds,
		}

		progress := make(chan reason.RoundProgress, rounds)
		resultCh := make(chan reason.Result, 1)
		go func() {
			resultCh <- coord.Run(ctx, req, progress)
		}()

		events := make(chan event.Envelope, rounds+1)
		go func() {
			defer close(events)
			for p := range progress {
				metrics.ReasoningRounds.Inc()
				events <- event.New(event.StageReasoning,
					fmt.Sprintf("round %d/%d", p.Round, p.MaxRounds),
					map[string]any{
						"round":      p.Round,
						"max_rounds": p.MaxRounds,
						"confidence": p.Confidence,
						"status":     p.Status,
					}, rc.NextSeq(), rc.TraceID, rc.SessionID)
			}
			result := <-resultCh
			rc.SetReasoning(result)
			metrics.ReasoningStops.WithLabelValues(string(result.StopReason)).Inc()
			events <- event.New(event.StageReasoning, "reasoning complete",
				map[string]any{
					"rounds":      len(result.Steps),
					"confidence":  result.FinalConfidence,
					"stop_reason": string(result.StopReason),
				}, rc.NextSeq(), rc.TraceID, rc.SessionID)
		}()

		return (<-chan event.Envelope)(events), nil
	}, cfg)
}

// verifyStage runs consistency and fact checks over the reasoning result.
// With no tool invoker configured the stage is skipped.
func (f *Factory) verifyStage() engine.Stage {
	cfg := f.stageConfig()
	cfg.Condition = func(rc *runctx.Context) bool { return f.invoker != nil }
	return engine.NewStage(event.StageVerify, func(ctx context.Context, rc *runctx.Context) (any, error) {
		report := tools.NewVerifier(f.invoker).Verify(ctx, rc.Reasoning())
		rc.SetVerification(report)
		rc.AddToolCalls(2)
		return map[string]any{
			"verified":       report.Verified,
			"consistency":    report.ConsistencyScore,
			"contradictions": len(report.Contradictions),
		}, nil
	}, cfg)
}

// synthesisStage builds and sanitizes the final answer.
func (f *Factory) synthesisStage() engine.Stage {
	return engine.NewStage(event.StageSynthesis, func(ctx context.Context, rc *runctx.Context) (any, error) {
		answer := synthesis.Compose(rc.Question, rc.Reasoning(), rc.Verification())
		rc.SetFinalAnswer(answer)
		return map[string]any{"chars": len(answer)}, nil
	}, f.stageConfig())
}

func planPrompt(rc *runctx.Context) string {
	return fmt.Sprintf(`Break the question below into a research plan.
Respond with these sections, one per line, list items prefixed with "-":
OBJECTIVE:
CONSTRAINTS:
SUBTASKS:
SUCCESS:

Question: %s`, rc.Question)
}

// deepQuestion folds retrieval context into the coordinator's question so
// every round reasons over the same grounding material.
func deepQuestion(rc *runctx.Context) string {
	res := rc.Retrieval()
	if res.Empty() {
		return rc.Question
	}
	return fmt.Sprintf("%s\n\nContext:\n%s", rc.Question, res.Context)
}
