package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"sync"
	"testing"

	"github.com/metalagman/quest/internal/event"
	"github.com/metalagman/quest/internal/llm"
	"github.com/metalagman/quest/internal/reason"
	"github.com/metalagman/quest/internal/runctx"
	"github.com/metalagman/quest/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLLM returns canned responses in call order, repeating the last one
// once the script runs out. A non-nil err fails every call.
type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
}

func newFakeLLM(responses ...string) *fakeLLM {
	return &fakeLLM{responses: responses}
}

func (g *fakeLLM) Stream(ctx context.Context, prompt string, history []llm.Message, mode string) iter.Seq2[string, error] {
	g.mu.Lock()
	idx := g.calls
	g.calls++
	g.mu.Unlock()
	return func(yield func(string, error) bool) {
		if g.err != nil {
			yield("", g.err)
			return
		}
		if len(g.responses) == 0 {
			yield("", nil)
			return
		}
		if idx >= len(g.responses) {
			idx = len(g.responses) - 1
		}
		yield(g.responses[idx], nil)
	}
}

// fakeInvoker answers verify tools with fixed JSON payloads.
type fakeInvoker struct {
	results map[string]string
	calls   []string
}

func (i *fakeInvoker) Call(ctx context.Context, toolName string, args map[string]any) (tools.CallResult, error) {
	i.calls = append(i.calls, toolName)
	raw, ok := i.results[toolName]
	if !ok {
		return tools.CallResult{Err: &tools.CallError{Code: "unknown_tool", Message: toolName}}, nil
	}
	return tools.CallResult{OK: true, Result: json.RawMessage(raw)}, nil
}

func TestDeepPipeline_HappyPath(t *testing.T) {
	gen := newFakeLLM(
		"OBJECTIVE: explain sky color\nSUBTASKS:\n- physics of scattering\nSUCCESS:\n- cites mechanism",
		"HYPOTHESIS: Rayleigh scattering favors blue light.\nCONFIDENCE: 0.6\nEVIDENCE:\n- doc-1",
		"HYPOTHESIS: The sky is blue because Rayleigh scattering disperses short wavelengths most.\nCONFIDENCE: 0.93\nEVIDENCE:\n- doc-1\n- doc-2",
	)
	invoker := &fakeInvoker{results: map[string]string{
		tools.ToolVerifyConsistency: `{"consistency_score": 0.97, "verified": true}`,
		tools.ToolVerifyFactCheck:   `{"verified": true}`,
	}}
	f := NewFactory(gen, nil, invoker, nil, nil, Config{})

	rc := newRunContext(t, runctx.StrategyDeep, runctx.Policy{MaxReasoningRounds: 3})
	events := drain(t, f.Build(rc).Execute(context.Background(), rc))

	names := stageNames(events)
	assert.Contains(t, names, event.StagePlan)
	assert.Contains(t, names, event.StageReasoning)
	assert.Contains(t, names, event.StageVerify)
	assert.Contains(t, names, event.StageSynthesis)

	res := rc.Reasoning()
	require.Len(t, res.Steps, 2)
	assert.Equal(t, reason.StopConfidence, res.StopReason)
	assert.InDelta(t, 0.93, res.FinalConfidence, 1e-9)

	assert.ElementsMatch(t, []string{tools.ToolVerifyConsistency, tools.ToolVerifyFactCheck}, invoker.calls)
	assert.Equal(t, 2, rc.ToolCalls())

	answer := rc.FinalAnswer()
	assert.Contains(t, answer, "Rayleigh scattering")
	assert.NotContains(t, answer, "HYPOTHESIS")
	assert.NotContains(t, answer, "CONFIDENCE")
}

func TestDeepPipeline_RoundEventsBridged(t *testing.T) {
	gen := newFakeLLM(
		"SUBTASKS:\n- only task",
		"HYPOTHESIS: first guess\nCONFIDENCE: 0.3",
		"HYPOTHESIS: better guess\nCONFIDENCE: 0.95",
	)
	f := NewFactory(gen, nil, nil, nil, nil, Config{})

	rc := newRunContext(t, runctx.StrategyDeep, runctx.Policy{MaxReasoningRounds: 4})
	events := drain(t, f.Build(rc).Execute(context.Background(), rc))

	var rounds []event.Envelope
	for _, ev := range events {
		if ev.Stage == event.StageReasoning {
			rounds = append(rounds, ev)
		}
	}
	// one envelope per round plus the terminal reasoning summary
	require.Len(t, rounds, 3)
	assert.Equal(t, "round 1/4", rounds[0].Message)
	assert.Equal(t, "round 2/4", rounds[1].Message)
	assert.Equal(t, "reasoning complete", rounds[2].Message)
	assert.Equal(t, "confidence_reached", rounds[2].Payload["stop_reason"])

	// round envelopes never leak hypothesis text
	for _, ev := range rounds[:2] {
		_, hasHypothesis := ev.Payload["hypothesis"]
		assert.False(t, hasHypothesis)
	}
}

func TestDeepPipeline_GeneratorErrorDegrades(t *testing.T) {
	gen := &fakeLLM{err: errors.New("upstream 503")}
	f := NewFactory(gen, nil, nil, nil, nil, Config{})

	rc := newRunContext(t, runctx.StrategyDeep, runctx.Policy{MaxReasoningRounds: 3})
	events := drain(t, f.Build(rc).Execute(context.Background(), rc))

	// plan falls back, the single degraded round stops the loop, and the
	// run still terminates with an answer envelope.
	res := rc.Reasoning()
	require.Len(t, res.Steps, 1)
	assert.Equal(t, reason.StopError, res.StopReason)
	assert.Equal(t, float64(0), res.FinalConfidence)

	plan := rc.Plan()
	require.Len(t, plan.Subtasks, 1)

	final := events[len(events)-1]
	assert.Equal(t, event.StageAnswer, final.Stage)
}

func TestDeepPipeline_VerifySkippedWithoutInvoker(t *testing.T) {
	gen := newFakeLLM("SUBTASKS:\n- t", "HYPOTHESIS: h\nCONFIDENCE: 0.9")
	f := NewFactory(gen, nil, nil, nil, nil, Config{})

	rc := newRunContext(t, runctx.StrategyDeep, runctx.Policy{MaxReasoningRounds: 2})
	events := drain(t, f.Build(rc).Execute(context.Background(), rc))

	assert.NotContains(t, stageNames(events), event.StageVerify)
	assert.Equal(t, 0, rc.ToolCalls())
}

func TestDeepPipeline_StepCountNeverExceedsBudget(t *testing.T) {
	// low-confidence answers that keep changing force a max_rounds stop
	gen := newFakeLLM(
		"SUBTASKS:\n- t",
		"HYPOTHESIS: alpha theory\nCONFIDENCE: 0.2",
		"HYPOTHESIS: beta framework\nCONFIDENCE: 0.3",
		"HYPOTHESIS: gamma model\nCONFIDENCE: 0.4",
		"HYPOTHESIS: delta approach\nCONFIDENCE: 0.5",
	)
	f := NewFactory(gen, nil, nil, nil, nil, Config{Reasoning: reason.Config{MaxRoundsCap: 3}})

	rc := newRunContext(t, runctx.StrategyDeep, runctx.Policy{MaxReasoningRounds: 10})
	drain(t, f.Build(rc).Execute(context.Background(), rc))

	res := rc.Reasoning()
	assert.LessOrEqual(t, len(res.Steps), 3)
	assert.Equal(t, reason.StopMaxRounds, res.StopReason)
}
