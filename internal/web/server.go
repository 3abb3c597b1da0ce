// Package web exposes the question-answering pipeline over HTTP: an SSE ask
// endpoint, the run-log browser, and Prometheus metrics.
package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/metalagman/quest/internal/event"
	"github.com/metalagman/quest/internal/runctx"
	"github.com/metalagman/quest/internal/runlog"
	"github.com/metalagman/quest/internal/workflows"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Server provides the HTTP handlers and state.
type Server struct {
	factory *workflows.Factory
	store   *runlog.Store
	policy  runctx.Policy
}

// NewServer creates a new HTTP server. The store may be nil, in which case
// runs are not persisted and the run-log endpoints return 404.
func NewServer(factory *workflows.Factory, store *runlog.Store, policy runctx.Policy) *Server {
	return &Server{factory: factory, store: store, policy: policy}
}

// Routes returns the router.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("GET /runs", s.handleRuns)
	mux.HandleFunc("GET /runs/{id}/events", s.handleRunEvents)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req runctx.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}

	rc, err := runctx.New(req, s.policy, runctx.ParseStrategy(req.Strategy))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Run-Id", rc.RunID)

	events := s.factory.Build(rc).Execute(r.Context(), rc)
	if s.store != nil {
		events = s.store.Record(r.Context(), rc, events)
	}

	for ev := range events {
		if err := writeSSE(w, ev); err != nil {
			log.Warn().Err(err).Str("run_id", rc.RunID).Msg("client gone, draining run")
			for range events {
			}
			return
		}
		flusher.Flush()
	}
}

func writeSSE(w http.ResponseWriter, ev event.Envelope) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Stage, data); err != nil {
		return fmt.Errorf("write envelope: %w", err)
	}
	return nil
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.NotFound(w, r)
		return
	}
	runs, err := s.store.ListRuns(r.Context(), 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.NotFound(w, r)
		return
	}
	events, err := s.store.GetEvents(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(events) == 0 {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, events)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}
