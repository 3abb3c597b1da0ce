// Package llm provides the text-generation collaborator contract and its
// Gemini-backed implementation.
package llm

import (
	"iter"
	"strings"

	"context"
)

// Generation modes. They select prompt framing server-side and are carried
// through to telemetry.
const (
	ModeFast = "fast"
	ModeDeep = "deep"
)

// Message is one conversation turn handed to generation as history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generator streams generated text chunks for a prompt. Timeout and transport
// failures surface as the iteration error; callers treat both as recoverable.
type Generator interface {
	Stream(ctx context.Context, prompt string, history []Message, mode string) iter.Seq2[string, error]
}

// Collect drains a chunk stream into one string, stopping at the first error.
func Collect(chunks iter.Seq2[string, error]) (string, error) {
	var b strings.Builder
	for chunk, err := range chunks {
		if err != nil {
			return "", err
		}
		b.WriteString(chunk)
	}
	return b.String(), nil
}
