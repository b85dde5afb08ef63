package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tempoflow/tempo/dbopen"
	"github.com/tempoflow/tempo/events"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	return NewStore(db)
}

func TestSummaryRoundTrip(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now()

	in := events.IntervalSummary{
		IntervalIndex:       0,
		SessionID:           "sess1",
		UserID:              "alice",
		StartedAt:           now,
		EndedAt:             now.Add(15 * time.Minute),
		ProductivityScore:   82,
		SummaryText:         "deep work on the parser",
		Insights:            []string{"long uninterrupted editor stretch"},
		BreakRecommendation: "stretch before the next block",
		AppUsage:            map[string]int{"goland": 12, "chrome": 3},
		MemoryType:          events.MemoryInterval,
		AIGenerated:         true,
	}
	if err := st.InsertSummary(ctx, in, "goland", "Mon 09:00"); err != nil {
		t.Fatalf("InsertSummary: %v", err)
	}

	got, err := st.SummariesForSession(ctx, "sess1")
	if err != nil {
		t.Fatalf("SummariesForSession: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d summaries, want 1", len(got))
	}
	out := got[0]
	if out.ProductivityScore != 82 || out.SummaryText != in.SummaryText || !out.AIGenerated {
		t.Errorf("round trip mismatch: %+v", out)
	}
	if len(out.Insights) != 1 || out.Insights[0] != in.Insights[0] {
		t.Errorf("insights = %v", out.Insights)
	}
	if out.AppUsage["goland"] != 12 {
		t.Errorf("app usage = %v", out.AppUsage)
	}
	if out.BreakRecommendation != in.BreakRecommendation {
		t.Errorf("break recommendation = %q", out.BreakRecommendation)
	}
}

func TestSummaryUniquePerInterval(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	sum := events.IntervalSummary{
		SessionID: "sess1", UserID: "alice",
		StartedAt: time.Now(), EndedAt: time.Now(),
		Insights: []string{}, AppUsage: map[string]int{},
		MemoryType: events.MemoryInterval,
	}
	if err := st.InsertSummary(ctx, sum, "", ""); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := st.InsertSummary(ctx, sum, "", ""); err == nil {
		t.Fatal("duplicate (user_id, session_id, interval_index) insert succeeded")
	}
}

// TestBatchAIEventsRoundTrip checks the export round-trip law: ai_events
// written through InsertBatch come back byte-for-byte identical once
// re-marshalled.
func TestBatchAIEventsRoundTrip(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().Round(time.Millisecond)

	in := events.Batch{
		BatchID:   "batch1",
		SessionID: "sess1",
		StartedAt: now,
		EndedAt:   now.Add(20 * time.Second),
		Reason:    events.FlushInterval,
		RawEvents: []events.RawEvent{{Sequence: 1, Timestamp: now, Layer: events.LayerOSInput, Kind: events.KindKeyDown}},
		AIEvents: []events.AIEvent{{
			Kind:       events.AIEventKeystroke,
			Timestamp:  now,
			RawRefs:    events.RawRange{Start: 0, End: 1},
			ObjectType: events.ObjectApp,
			ObjectID:   "Editor",
			TextInput:  &events.TextInputEvent{Text: "Hello world.", WordCount: 2, CharCount: 12, ContainsPunctuation: true, FlushReason: events.FlushPunctuation},
		}},
		OptimizationSummary: events.OptimizationSummary{InputCount: 1, OutputCount: 1},
	}
	if err := st.InsertBatch(ctx, in); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	got, err := st.BatchesForSession(ctx, "sess1")
	if err != nil {
		t.Fatalf("BatchesForSession: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d batches, want 1", len(got))
	}

	wantJSON, _ := json.Marshal(in.AIEvents)
	gotJSON, _ := json.Marshal(got[0].AIEvents)
	if string(wantJSON) != string(gotJSON) {
		t.Errorf("ai_events round trip differs:\nwant %s\ngot  %s", wantJSON, gotJSON)
	}
	if got[0].OptimizationSummary != in.OptimizationSummary {
		t.Errorf("optimization summary = %+v", got[0].OptimizationSummary)
	}
}

func TestPreviousSessionAverage(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := st.InsertSession(ctx, "old", "alice", now.Add(-2*time.Hour), ""); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}
	if err := st.CloseSession(ctx, "old", now.Add(-time.Hour), events.FinalSessionSummary{AverageProductivity: 64}); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if err := st.InsertSession(ctx, "new", "alice", now, ""); err != nil {
		t.Fatalf("InsertSession: %v", err)
	}

	avg, ok, err := st.PreviousSessionAverage(ctx, "alice", "new")
	if err != nil {
		t.Fatalf("PreviousSessionAverage: %v", err)
	}
	if !ok || avg != 64 {
		t.Fatalf("avg = %v ok = %v, want 64 true", avg, ok)
	}

	_, ok, err = st.PreviousSessionAverage(ctx, "bob", "new")
	if err != nil {
		t.Fatalf("PreviousSessionAverage: %v", err)
	}
	if ok {
		t.Fatal("found a previous session for a user with none")
	}
}
