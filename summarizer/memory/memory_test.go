package memory

import (
	"context"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tempoflow/tempo/dbopen"
	"github.com/tempoflow/tempo/events"
	"github.com/tempoflow/tempo/summarizer/store"
)

func testRecall(t *testing.T) (*Recall, *store.Store) {
	t.Helper()
	db := dbopen.OpenMemory(t)
	st := store.NewStore(db)
	if err := st.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return NewRecall(st, Config{}), st
}

func insertSummary(t *testing.T, st *store.Store, userID string, idx int, vec []float32, startedAt time.Time) {
	t.Helper()
	err := st.InsertSummary(context.Background(), events.IntervalSummary{
		IntervalIndex:     idx,
		SessionID:         "sess1",
		UserID:            userID,
		StartedAt:         startedAt,
		EndedAt:           startedAt.Add(15 * time.Minute),
		ProductivityScore: 70,
		SummaryText:       "worked on tests",
		Insights:          []string{"stayed focused"},
		AppUsage:          map[string]int{"vscode": 900},
		EmbeddingVector:   vec,
		MemoryType:        events.MemoryInterval,
		AIGenerated:       true,
	}, "vscode", "coding")
	if err != nil {
		t.Fatalf("InsertSummary: %v", err)
	}
}

func TestSimilarScopesToUser(t *testing.T) {
	rec, st := testRecall(t)
	now := time.Now()
	insertSummary(t, st, "alice", 0, []float32{1, 0, 0}, now)
	insertSummary(t, st, "bob", 0, []float32{1, 0, 0}, now)

	results, err := rec.Similar(context.Background(), "alice", []float32{1, 0, 0})
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (scoped to alice)", len(results))
	}
}

func TestSimilarRespectsThreshold(t *testing.T) {
	rec, st := testRecall(t)
	now := time.Now()
	insertSummary(t, st, "alice", 0, []float32{1, 0, 0}, now)

	results, err := rec.Similar(context.Background(), "alice", []float32{0, 1, 0})
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected orthogonal vector to fall below threshold, got %d results", len(results))
	}
}

func TestAtThisHourFiltersByTime(t *testing.T) {
	rec, st := testRecall(t)
	target := time.Date(2026, 7, 20, 9, 0, 0, 0, time.UTC)
	other := time.Date(2026, 7, 20, 22, 0, 0, 0, time.UTC)
	insertSummary(t, st, "alice", 0, nil, target)
	insertSummary(t, st, "alice", 1, nil, other)

	results, err := rec.AtThisHour(context.Background(), "alice", target)
	if err != nil {
		t.Fatalf("AtThisHour: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
}
