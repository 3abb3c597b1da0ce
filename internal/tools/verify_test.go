package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/metalagman/quest/internal/reason"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInvoker struct {
	results map[string]CallResult
	errs    map[string]error
	calls   []string
}

func (s *stubInvoker) Call(ctx context.Context, toolName string, args map[string]any) (CallResult, error) {
	s.calls = append(s.calls, toolName)
	if err := s.errs[toolName]; err != nil {
		return CallResult{}, err
	}
	return s.results[toolName], nil
}

func sampleResult() reason.Result {
	return reason.Result{
		Steps: []reason.Step{
			{Round: 1, Hypothesis: "first", Evidence: []string{"doc-1"}},
			{Round: 2, Hypothesis: "final", Evidence: []string{"doc-2"}},
		},
		FinalHypothesis: "final",
	}
}

func TestVerify_AllChecksPass(t *testing.T) {
	inv := &stubInvoker{results: map[string]CallResult{
		ToolVerifyConsistency: {OK: true, Result: json.RawMessage(`{"consistency_score": 0.98}`)},
		ToolVerifyFactCheck:   {OK: true, Result: json.RawMessage(`{"flags": []}`)},
	}}

	report := NewVerifier(inv).Verify(context.Background(), sampleResult())

	assert.True(t, report.Verified)
	assert.InDelta(t, 0.98, report.ConsistencyScore, 1e-9)
	assert.ElementsMatch(t, []string{ToolVerifyConsistency, ToolVerifyFactCheck}, inv.calls)
}

func TestVerify_ContradictionBlocksVerified(t *testing.T) {
	inv := &stubInvoker{results: map[string]CallResult{
		ToolVerifyConsistency: {OK: true, Result: json.RawMessage(
			`{"consistency_score": 0.4, "contradictions": [{"step_a": 0, "step_b": 1, "description": "steps disagree"}]}`)},
		ToolVerifyFactCheck: {OK: true, Result: json.RawMessage(`{}`)},
	}}

	report := NewVerifier(inv).Verify(context.Background(), sampleResult())

	assert.False(t, report.Verified)
	require.Len(t, report.Contradictions, 1)
	assert.Equal(t, "steps disagree", report.Contradictions[0].Description)
}

func TestVerify_FactualityFlagsBlockVerified(t *testing.T) {
	inv := &stubInvoker{results: map[string]CallResult{
		ToolVerifyConsistency: {OK: true, Result: json.RawMessage(`{"consistency_score": 0.9}`)},
		ToolVerifyFactCheck: {OK: true, Result: json.RawMessage(
			`{"flags": [{"claim": "final", "description": "no source found"}], "unresolved_claims": ["final"]}`)},
	}}

	report := NewVerifier(inv).Verify(context.Background(), sampleResult())

	assert.False(t, report.Verified)
	require.Len(t, report.Factuality, 1)
	assert.Equal(t, []string{"final"}, report.UnresolvedClaims)
}

func TestVerify_ToolFailureFailsOpen(t *testing.T) {
	inv := &stubInvoker{
		errs: map[string]error{
			ToolVerifyConsistency: errors.New("mcp session lost"),
			ToolVerifyFactCheck:   errors.New("mcp session lost"),
		},
	}

	report := NewVerifier(inv).Verify(context.Background(), sampleResult())

	// degraded report, not a panic or error
	assert.False(t, report.Verified)
	assert.Empty(t, report.Contradictions)
}

func TestVerify_ToolErrorResultBlocksVerified(t *testing.T) {
	inv := &stubInvoker{results: map[string]CallResult{
		ToolVerifyConsistency: {OK: false, Err: &CallError{Code: "timeout", Message: "deadline", Retryable: true}},
		ToolVerifyFactCheck:   {OK: true, Result: json.RawMessage(`{}`)},
	}}

	report := NewVerifier(inv).Verify(context.Background(), sampleResult())

	assert.False(t, report.Verified)
}

func TestCallError_Error(t *testing.T) {
	err := &CallError{Code: "timeout", Message: "deadline exceeded"}
	assert.Equal(t, "deadline exceeded", err.Error())
}
