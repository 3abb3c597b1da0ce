package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/metalagman/quest/internal/event"
	"github.com/metalagman/quest/internal/runctx"
	"github.com/rs/zerolog/log"
)

// Run statuses stored on run records.
const (
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusFailed   = "failed"
)

// RunRecord is one persisted run.
type RunRecord struct {
	RunID      string    `json:"run_id"`
	CreatedAt  time.Time `json:"created_at"`
	SessionID  string    `json:"session_id"`
	TraceID    string    `json:"trace_id"`
	Question   string    `json:"question"`
	Strategy   string    `json:"strategy"`
	Status     string    `json:"status"`
	StopReason string    `json:"stop_reason,omitempty"`
	Answer     string    `json:"answer,omitempty"`
	ElapsedMS  int64     `json:"elapsed_ms"`
}

// Store persists runs and their envelopes.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over an opened run-log database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// CreateRun inserts the run record in running state.
func (s *Store) CreateRun(ctx context.Context, rc *runctx.Context) error {
	createdAt := rc.StartedAt.Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx, `INSERT INTO runs(run_id, created_at, session_id, trace_id, question, strategy, status)
		VALUES(?, ?, ?, ?, ?, ?, ?)`,
		rc.RunID, createdAt, rc.SessionID, rc.TraceID, rc.Question, rc.Strategy.String(), StatusRunning); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// AppendEnvelope stores one envelope for a run.
func (s *Store) AppendEnvelope(ctx context.Context, runID string, ev event.Envelope) error {
	var payload any
	if len(ev.Payload) > 0 {
		raw, err := json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		payload = string(raw)
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO events(run_id, seq, ts, stage, message, payload_json)
		VALUES(?, ?, ?, ?, ?, ?)`,
		runID, ev.Seq, ev.Timestamp.Format(time.RFC3339Nano), ev.Stage, ev.Message, payload); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// FinishRun marks the run terminal and stores its outcome.
func (s *Store) FinishRun(ctx context.Context, runID, status, stopReason, answer string, elapsedMS int64) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE runs SET status=?, stop_reason=?, answer=?, elapsed_ms=? WHERE run_id=?`,
		status, nullableString(stopReason), nullableString(answer), elapsedMS, runID); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, created_at, session_id, trace_id, question, strategy, status,
		COALESCE(stop_reason, ''), COALESCE(answer, ''), elapsed_ms
		FROM runs ORDER BY created_at DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var createdAt string
		if err := rows.Scan(&r.RunID, &createdAt, &r.SessionID, &r.TraceID, &r.Question, &r.Strategy,
			&r.Status, &r.StopReason, &r.Answer, &r.ElapsedMS); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetEvents returns a run's envelopes in sequence order.
func (s *Store) GetEvents(ctx context.Context, runID string) ([]event.Envelope, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq, ts, stage, message, COALESCE(payload_json, '')
		FROM events WHERE run_id=? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []event.Envelope
	for rows.Next() {
		var ev event.Envelope
		var ts, payload string
		if err := rows.Scan(&ev.Seq, &ts, &ev.Stage, &ev.Message, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		if payload != "" {
			if err := json.Unmarshal([]byte(payload), &ev.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal payload: %w", err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Record tees an event stream into the store while forwarding it unchanged.
// Persistence failures are logged, never surfaced: the caller's stream is
// the priority.
func (s *Store) Record(ctx context.Context, rc *runctx.Context, in <-chan event.Envelope) <-chan event.Envelope {
	out := make(chan event.Envelope, 16)
	go func() {
		defer close(out)
		if err := s.CreateRun(ctx, rc); err != nil {
			log.Warn().Err(err).Str("run_id", rc.RunID).Msg("run log create failed")
		}
		var last event.Envelope
		for ev := range in {
			if err := s.AppendEnvelope(ctx, rc.RunID, ev); err != nil {
				log.Warn().Err(err).Str("run_id", rc.RunID).Int64("seq", ev.Seq).Msg("run log append failed")
			}
			last = ev
			out <- ev
		}
		s.finishFromFinal(ctx, rc, last)
	}()
	return out
}

func (s *Store) finishFromFinal(ctx context.Context, rc *runctx.Context, final event.Envelope) {
	status := StatusFinished
	if hasError, _ := final.Payload["has_error"].(bool); hasError {
		status = StatusFailed
	}
	answer, _ := final.Payload["answer"].(string)
	stopReason := string(rc.Reasoning().StopReason)
	if err := s.FinishRun(ctx, rc.RunID, status, stopReason, answer, rc.Elapsed().Milliseconds()); err != nil {
		log.Warn().Err(err).Str("run_id", rc.RunID).Msg("run log finish failed")
	}
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
