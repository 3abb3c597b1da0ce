// Package tools provides the tool-invocation collaborator contract and its
// MCP-backed implementation.
package tools

import (
	"context"
	"encoding/json"
)

// Verification tools exposed by the tool service.
const (
	ToolVerifyConsistency = "verify.consistency"
	ToolVerifyFactCheck   = "verify.fact_check"
)

// CallError is the structured failure returned by a tool call.
type CallError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// Error implements the error interface.
func (e *CallError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// CallResult is the outcome of one tool invocation.
type CallResult struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Err    *CallError      `json:"error,omitempty"`
}

// Invoker calls named tools with JSON arguments. Implementations apply a
// short per-call timeout and at most one retry on retryable failures;
// callers never retry on top of that.
type Invoker interface {
	Call(ctx context.Context, toolName string, args map[string]any) (CallResult, error)
}
