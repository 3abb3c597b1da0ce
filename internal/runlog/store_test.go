package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/metalagman/quest/internal/event"
	"github.com/metalagman/quest/internal/runctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "quest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func testRunContext(t *testing.T, question string) *runctx.Context {
	t.Helper()
	rc, err := runctx.New(runctx.Request{Question: question}, runctx.Policy{}, runctx.StrategyFast)
	require.NoError(t, err)
	return rc
}

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openTestStore(t)
	rc := testRunContext(t, "what is sqlite?")

	require.NoError(t, store.CreateRun(ctx, rc))
	require.NoError(t, store.AppendEnvelope(ctx, rc.RunID,
		event.New(event.StageStart, "run started", map[string]any{"strategy": "fast"}, 1, rc.TraceID, rc.SessionID)))
	require.NoError(t, store.AppendEnvelope(ctx, rc.RunID,
		event.New(event.StageAnswer, "run completed", map[string]any{"answer": "a database"}, 2, rc.TraceID, rc.SessionID)))
	require.NoError(t, store.FinishRun(ctx, rc.RunID, StatusFinished, "", "a database", 42))

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, rc.RunID, runs[0].RunID)
	assert.Equal(t, StatusFinished, runs[0].Status)
	assert.Equal(t, "a database", runs[0].Answer)
	assert.Equal(t, int64(42), runs[0].ElapsedMS)

	events, err := store.GetEvents(ctx, rc.RunID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].Seq)
	assert.Equal(t, event.StageAnswer, events[1].Stage)
	assert.Equal(t, "a database", events[1].Payload["answer"])
}

func TestStore_RecordTeesStream(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openTestStore(t)
	rc := testRunContext(t, "tee me")

	in := make(chan event.Envelope, 3)
	in <- event.New(event.StageStart, "run started", nil, 1, rc.TraceID, rc.SessionID)
	in <- event.New("generate", "generate completed", nil, 2, rc.TraceID, rc.SessionID)
	in <- event.New(event.StageAnswer, "run completed", map[string]any{"answer": "done", "has_error": false}, 3, rc.TraceID, rc.SessionID)
	close(in)

	var forwarded []event.Envelope
	for ev := range store.Record(ctx, rc, in) {
		forwarded = append(forwarded, ev)
	}
	require.Len(t, forwarded, 3)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusFinished, runs[0].Status)
	assert.Equal(t, "done", runs[0].Answer)

	events, err := store.GetEvents(ctx, rc.RunID)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestStore_RecordMarksFailedRuns(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openTestStore(t)
	rc := testRunContext(t, "fail me")

	in := make(chan event.Envelope, 1)
	in <- event.New(event.StageAnswer, "run completed with errors", map[string]any{"has_error": true}, 1, rc.TraceID, rc.SessionID)
	close(in)

	for range store.Record(ctx, rc, in) {
	}

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusFailed, runs[0].Status)
}

func TestStore_PruneKeepLast(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openTestStore(t)

	var ids []string
	for i := 0; i < 5; i++ {
		rc := testRunContext(t, "q")
		// spread created_at so ordering is deterministic
		rc.StartedAt = time.Now().UTC().Add(time.Duration(i-5) * time.Minute)
		require.NoError(t, store.CreateRun(ctx, rc))
		require.NoError(t, store.FinishRun(ctx, rc.RunID, StatusFinished, "", "", 0))
		ids = append(ids, rc.RunID)
	}

	res, err := store.Prune(ctx, RetentionPolicy{KeepLast: 2}, false)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Considered)
	assert.Equal(t, 2, res.Kept)
	assert.Equal(t, 3, res.Deleted)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestStore_PruneKeepsRunningRuns(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openTestStore(t)

	running := testRunContext(t, "still going")
	running.StartedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, store.CreateRun(ctx, running))

	old := testRunContext(t, "ancient")
	old.StartedAt = time.Now().UTC().Add(-72 * time.Hour)
	require.NoError(t, store.CreateRun(ctx, old))
	require.NoError(t, store.FinishRun(ctx, old.RunID, StatusFinished, "", "", 0))

	res, err := store.Prune(ctx, RetentionPolicy{KeepDays: 1}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, running.RunID, runs[0].RunID)
}

func TestStore_PruneDryRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := openTestStore(t)

	rc := testRunContext(t, "q")
	rc.StartedAt = time.Now().UTC().Add(-72 * time.Hour)
	require.NoError(t, store.CreateRun(ctx, rc))
	require.NoError(t, store.FinishRun(ctx, rc.RunID, StatusFinished, "", "", 0))

	res, err := store.Prune(ctx, RetentionPolicy{KeepDays: 1}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
