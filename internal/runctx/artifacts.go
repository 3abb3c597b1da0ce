package runctx

import (
	"github.com/metalagman/quest/internal/history"
	"github.com/metalagman/quest/internal/reason"
	"github.com/metalagman/quest/internal/retrieval"
)

// Working-memory keys owned by the artifact accessors. Stage outputs are
// stored separately under "<stage>.output" by the engine.
const (
	keyHistory       = "history.messages"
	keyRetrieval     = "retrieval.result"
	keyPlan          = "reasoning.plan"
	keyReasoning     = "reasoning.result"
	keyVerification  = "verification.report"
	keyFinalAnswer   = "answer.final"
	keyToolCallCount = "tools.call_count"
)

// Every typed getter returns its zero value when the key is absent or holds
// an unexpected type, so stages can run before their upstream dependency ran
// (replays with a subset of stages) without failing.

// SetHistory stores the recent conversation messages.
func (c *Context) SetHistory(messages []history.Message) { c.Put(keyHistory, messages) }

// History returns the recent conversation messages, or nil.
func (c *Context) History() []history.Message {
	if v, ok := c.Get(keyHistory); ok {
		if messages, ok := v.([]history.Message); ok {
			return messages
		}
	}
	return nil
}

// SetRetrieval stores the retrieval result.
func (c *Context) SetRetrieval(result retrieval.Result) { c.Put(keyRetrieval, result) }

// Retrieval returns the retrieval result, or an empty result.
func (c *Context) Retrieval() retrieval.Result {
	if v, ok := c.Get(keyRetrieval); ok {
		if result, ok := v.(retrieval.Result); ok {
			return result
		}
	}
	return retrieval.Result{}
}

// SetPlan stores the deep plan.
func (c *Context) SetPlan(plan reason.Plan) { c.Put(keyPlan, plan) }

// Plan returns the deep plan, or an empty plan.
func (c *Context) Plan() reason.Plan {
	if v, ok := c.Get(keyPlan); ok {
		if plan, ok := v.(reason.Plan); ok {
			return plan
		}
	}
	return reason.Plan{}
}

// SetReasoning stores the terminal reasoning result.
func (c *Context) SetReasoning(result reason.Result) { c.Put(keyReasoning, result) }

// Reasoning returns the reasoning result, or a zero result.
func (c *Context) Reasoning() reason.Result {
	if v, ok := c.Get(keyReasoning); ok {
		if result, ok := v.(reason.Result); ok {
			return result
		}
	}
	return reason.Result{}
}

// SetVerification stores the verification report.
func (c *Context) SetVerification(report reason.VerificationReport) { c.Put(keyVerification, report) }

// Verification returns the verification report, or a zero report.
func (c *Context) Verification() reason.VerificationReport {
	if v, ok := c.Get(keyVerification); ok {
		if report, ok := v.(reason.VerificationReport); ok {
			return report
		}
	}
	return reason.VerificationReport{}
}

// SetFinalAnswer stores the answer surfaced in the terminal envelope.
func (c *Context) SetFinalAnswer(answer string) { c.Put(keyFinalAnswer, answer) }

// FinalAnswer returns the accumulated answer, or "".
func (c *Context) FinalAnswer() string {
	if v, ok := c.Get(keyFinalAnswer); ok {
		if answer, ok := v.(string); ok {
			return answer
		}
	}
	return ""
}

// AddToolCalls increments the run's tool-call counter and returns the total.
func (c *Context) AddToolCalls(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total, _ := c.memory[keyToolCallCount].(int)
	total += n
	c.memory[keyToolCallCount] = total
	return total
}

// ToolCalls returns the number of tool calls made so far.
func (c *Context) ToolCalls() int {
	if v, ok := c.Get(keyToolCallCount); ok {
		if total, ok := v.(int); ok {
			return total
		}
	}
	return 0
}
