// Package runctx holds the per-request state container shared by all stages
// of one run: identifiers, the resolved policy, the event sequence counter,
// and the working-memory map.
package runctx

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Strategy selects the stage sequence for a run. It is resolved once at run
// creation and never changes afterward.
type Strategy int

const (
	// StrategyFast is the low-latency fixed stage sequence.
	StrategyFast Strategy = iota
	// StrategyDeep is the iterative plan/reason/verify/synthesize sequence.
	StrategyDeep
)

// String returns the strategy name used on envelopes and run records.
func (s Strategy) String() string {
	switch s {
	case StrategyDeep:
		return "deep"
	default:
		return "fast"
	}
}

// ParseStrategy resolves a strategy name; unknown names fall back to fast.
func ParseStrategy(name string) Strategy {
	if name == "deep" {
		return StrategyDeep
	}
	return StrategyFast
}

// Policy is the resolved execution policy for one run.
type Policy struct {
	MaxReasoningRounds int    `json:"max_reasoning_rounds" mapstructure:"max_reasoning_rounds"`
	MaxToolRounds      int    `json:"max_tool_rounds" mapstructure:"max_tool_rounds"`
	ToolTier           string `json:"tool_tier,omitempty" mapstructure:"tool_tier"`
	AllowRetrieval     bool   `json:"allow_retrieval" mapstructure:"allow_retrieval"`
	AllowFileAccess    bool   `json:"allow_file_access" mapstructure:"allow_file_access"`
}

// Request describes one incoming question.
type Request struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Scope     string `json:"scope,omitempty"`
	Strategy  string `json:"strategy,omitempty"`
}

// Context is the per-run state container. The identifier fields are
// immutable after New; the sequence counter and working memory are safe for
// concurrent use because the reasoning coordinator's round loop runs
// concurrently with the stage that forwards its events.
type Context struct {
	RunID     string
	TraceID   string
	SessionID string
	UserID    string
	Question  string
	Scope     string
	Policy    Policy
	Strategy  Strategy
	StartedAt time.Time

	seq atomic.Int64

	mu     sync.RWMutex
	memory map[string]any
}

// New builds a run context for a request. Run IDs are timestamp-prefixed for
// sortable run logs; trace IDs are UUIDs.
func New(req Request, policy Policy, strategy Strategy) (*Context, error) {
	runID, err := newRunID()
	if err != nil {
		return nil, err
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &Context{
		RunID:     runID,
		TraceID:   uuid.NewString(),
		SessionID: sessionID,
		UserID:    req.UserID,
		Question:  req.Question,
		Scope:     req.Scope,
		Policy:    policy,
		Strategy:  strategy,
		StartedAt: time.Now().UTC(),
		memory:    make(map[string]any),
	}, nil
}

// NextSeq returns the next event sequence number. Sequence numbers start at
// 1, are strictly increasing for the lifetime of the run, and are safe to
// draw from multiple goroutines.
func (c *Context) NextSeq() int64 {
	return c.seq.Add(1)
}

// Put stores a value in working memory.
func (c *Context) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memory[key] = value
}

// Get reads a value from working memory.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.memory[key]
	return v, ok
}

// Elapsed returns the wall-clock duration since run start.
func (c *Context) Elapsed() time.Duration {
	return time.Since(c.StartedAt)
}

func newRunID() (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	ts := time.Now().UTC().Format("20060102-150405")
	return fmt.Sprintf("%s-%s", ts, hex.EncodeToString(buf)), nil
}
