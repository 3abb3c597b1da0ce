// Package retrieval provides the client for the knowledge-retrieval service.
package retrieval

import "context"

// Hit is one scored retrieval match.
type Hit struct {
	ID      string  `json:"id"`
	Title   string  `json:"title,omitempty"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float64 `json:"score"`
}

// Result is the retrieval response: raw documents, scored hits, and the
// concatenated context text handed to generation.
type Result struct {
	Documents []string `json:"documents,omitempty"`
	Hits      []Hit    `json:"hits,omitempty"`
	Context   string   `json:"context,omitempty"`
}

// Empty reports whether the result carries nothing usable.
func (r Result) Empty() bool {
	return len(r.Documents) == 0 && len(r.Hits) == 0 && r.Context == ""
}

// Searcher is the retrieval collaborator contract. Implementations return an
// error on transport failure; callers treat any failure as an empty result
// and never fail a run over it.
type Searcher interface {
	Search(ctx context.Context, query string, topK int, minScore float64) (Result, error)
}
