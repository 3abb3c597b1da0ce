package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

const (
	defaultCallTimeout = 2 * time.Second
	maxRetries         = 1
)

// MCPConfig describes the tool service endpoint.
type MCPConfig struct {
	Endpoint    string        `json:"endpoint" mapstructure:"endpoint"`
	CallTimeout time.Duration `json:"call_timeout,omitempty" mapstructure:"call_timeout"`
}

// MCPInvoker implements Invoker over a streamable MCP session.
type MCPInvoker struct {
	session     *mcp.ClientSession
	callTimeout time.Duration
}

// NewMCPInvoker connects to the tool service and performs the MCP handshake.
func NewMCPInvoker(ctx context.Context, cfg MCPConfig) (*MCPInvoker, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("tools endpoint is required")
	}
	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "quest", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: endpoint}, nil)
	if err != nil {
		return nil, fmt.Errorf("connect tool service: %w", err)
	}
	return &MCPInvoker{session: session, callTimeout: callTimeout}, nil
}

// Call implements Invoker. Retryable failures are retried once; every call
// runs under the configured short timeout.
func (m *MCPInvoker) Call(ctx context.Context, toolName string, args map[string]any) (CallResult, error) {
	var res CallResult
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		res, err = m.callOnce(ctx, toolName, args)
		if err != nil {
			return CallResult{}, err
		}
		if res.OK || res.Err == nil || !res.Err.Retryable {
			return res, nil
		}
		log.Debug().Str("tool", toolName).Str("code", res.Err.Code).Msg("retrying tool call")
	}
	return res, nil
}

func (m *MCPInvoker) callOnce(ctx context.Context, toolName string, args map[string]any) (CallResult, error) {
	ctx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()

	result, err := m.session.CallTool(ctx, &mcp.CallToolParams{Name: toolName, Arguments: args})
	if err != nil {
		if ctx.Err() != nil {
			return CallResult{Err: &CallError{Code: "timeout", Message: err.Error(), Retryable: true}}, nil
		}
		return CallResult{}, fmt.Errorf("call tool %s: %w", toolName, err)
	}

	payload := textContent(result)
	if result.IsError {
		return CallResult{Err: &CallError{Code: "tool_error", Message: payload}}, nil
	}
	return CallResult{OK: true, Result: json.RawMessage(payload)}, nil
}

func textContent(result *mcp.CallToolResult) string {
	var b strings.Builder
	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			b.WriteString(text.Text)
		}
	}
	return b.String()
}

// Close terminates the MCP session.
func (m *MCPInvoker) Close() error {
	return m.session.Close()
}
