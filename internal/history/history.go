// Package history provides the conversation-history cache. All operations
// fail open: a broken cache degrades a run, it never aborts one.
package history

import "context"

// Message is one stored conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Store is the conversation-history collaborator contract.
type Store interface {
	// GetRecent returns up to limit messages for the session, oldest first.
	// A failing cache yields an empty slice and an error the caller logs
	// and ignores.
	GetRecent(ctx context.Context, sessionID string, limit int) ([]Message, error)
	// Save appends one message to the session history.
	Save(ctx context.Context, sessionID, role, content string) error
}

// Noop is the history store used when no cache is configured.
type Noop struct{}

// GetRecent implements Store.
func (Noop) GetRecent(context.Context, string, int) ([]Message, error) { return nil, nil }

// Save implements Store.
func (Noop) Save(context.Context, string, string, string) error { return nil }
