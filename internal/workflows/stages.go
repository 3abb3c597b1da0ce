package workflows

import (
	"context"
	"fmt"
	"strings"

	"github.com/metalagman/quest/internal/engine"
	"github.com/metalagman/quest/internal/event"
	"github.com/metalagman/quest/internal/llm"
	"github.com/metalagman/quest/internal/retrieval"
	"github.com/metalagman/quest/internal/runctx"
	"github.com/rs/zerolog/log"
)

// historyStage loads recent conversation messages. A failing cache yields an
// empty history, never a stage failure.
func (f *Factory) historyStage() engine.Stage {
	return engine.NewStage(event.StageHistory, func(ctx context.Context, rc *runctx.Context) (any, error) {
		messages, err := f.histStore.GetRecent(ctx, rc.SessionID, f.cfg.HistoryLimit)
		if err != nil {
			log.Warn().Err(err).Str("run_id", rc.RunID).Msg("history cache unavailable")
			messages = nil
		}
		rc.SetHistory(messages)
		return map[string]any{"messages": len(messages)}, nil
	}, f.stageConfig())
}

// retrievalStage fetches grounding context. It runs only when the policy
// allows retrieval, and fails open to an empty result.
func (f *Factory) retrievalStage() engine.Stage {
	cfg := f.stageConfig()
	cfg.Condition = func(rc *runctx.Context) bool {
		return rc.Policy.AllowRetrieval && f.searcher != nil
	}
	return engine.NewStage(event.StageRetrieval, func(ctx context.Context, rc *runctx.Context) (any, error) {
		result, err := f.searcher.Search(ctx, rc.Question, f.cfg.TopK, f.cfg.MinScore)
		if err != nil {
			log.Warn().Err(err).Str("run_id", rc.RunID).Msg("retrieval unavailable")
			result = retrieval.Result{}
		}
		rc.SetRetrieval(result)
		return map[string]any{"hits": len(result.Hits)}, nil
	}, cfg)
}

// generateStage is the fast path's single model call.
func (f *Factory) generateStage() engine.Stage {
	return engine.NewStage("generate", func(ctx context.Context, rc *runctx.Context) (any, error) {
		prompt := fastPrompt(rc)
		answer, err := llm.Collect(f.gen.Stream(ctx, prompt, historyMessages(rc), llm.ModeFast))
		if err != nil {
			return nil, fmt.Errorf("generate answer: %w", err)
		}
		rc.SetFinalAnswer(answer)
		return map[string]any{"chars": len(answer)}, nil
	}, f.stageConfig())
}

// historySaveStage persists the exchange. Silent: it never appears in the
// event stream and its failure never aborts the run.
func (f *Factory) historySaveStage() engine.Stage {
	return engine.NewStage("history-save", func(ctx context.Context, rc *runctx.Context) (any, error) {
		if err := f.histStore.Save(ctx, rc.SessionID, "user", rc.Question); err != nil {
			return nil, fmt.Errorf("save question: %w", err)
		}
		if answer := rc.FinalAnswer(); answer != "" {
			if err := f.histStore.Save(ctx, rc.SessionID, "assistant", answer); err != nil {
				return nil, fmt.Errorf("save answer: %w", err)
			}
		}
		return nil, nil
	}, f.silentConfig())
}

func (f *Factory) telemetryStartStage() engine.Stage {
	return engine.NewStage("telemetry-start", func(ctx context.Context, rc *runctx.Context) (any, error) {
		f.publisher.Publish(map[string]any{
			"type":     "run.start",
			"run_id":   rc.RunID,
			"trace_id": rc.TraceID,
			"strategy": rc.Strategy.String(),
			"scope":    rc.Scope,
		})
		return nil, nil
	}, f.silentConfig())
}

func (f *Factory) telemetryFinalStage() engine.Stage {
	return engine.NewStage("telemetry-final", func(ctx context.Context, rc *runctx.Context) (any, error) {
		res := rc.Reasoning()
		f.publisher.Publish(map[string]any{
			"type":        "run.final",
			"run_id":      rc.RunID,
			"trace_id":    rc.TraceID,
			"strategy":    rc.Strategy.String(),
			"elapsed_ms":  rc.Elapsed().Milliseconds(),
			"rounds":      len(res.Steps),
			"stop_reason": string(res.StopReason),
			"tool_calls":  rc.ToolCalls(),
		})
		return nil, nil
	}, f.silentConfig())
}

// fastPrompt folds retrieval context and the question into one prompt.
func fastPrompt(rc *runctx.Context) string {
	var b strings.Builder
	b.WriteString("Answer the user's question concisely and accurately.\n")
	if res := rc.Retrieval(); !res.Empty() {
		b.WriteString("\nContext:\n")
		b.WriteString(res.Context)
		b.WriteString("\n")
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(rc.Question)
	return b.String()
}

func historyMessages(rc *runctx.Context) []llm.Message {
	recent := rc.History()
	if len(recent) == 0 {
		return nil
	}
	messages := make([]llm.Message, 0, len(recent))
	for _, m := range recent {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	return messages
}
