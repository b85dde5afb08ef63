package rawlog

import (
	"context"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tempoflow/tempo/dbopen"
	"github.com/tempoflow/tempo/events"
)

func testLog(t *testing.T) *Log {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	l := New(db, nil)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestForSessionPreservesSequenceOrder(t *testing.T) {
	l := testLog(t)
	now := time.Now()
	for i := uint64(1); i <= 5; i++ {
		l.RecordAsync("sess1", events.RawEvent{
			Sequence:  i,
			Timestamp: now.Add(time.Duration(i) * time.Millisecond),
			Layer:     events.LayerOSInput,
			Kind:      events.KindKeyDown,
			Payload:   events.KeyPayload{KeyCode: int(i), Char: "a"},
		})
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := l.ForSession(context.Background(), "sess1")
	if err != nil {
		t.Fatalf("ForSession: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d events, want 5", len(got))
	}
	for i, ev := range got {
		if ev.Sequence != uint64(i+1) {
			t.Errorf("event %d sequence = %d, want %d (strictly increasing, contiguous, from 1)", i, ev.Sequence, i+1)
		}
	}
}

func TestForSessionScopesToSession(t *testing.T) {
	l := testLog(t)
	l.RecordAsync("sess1", events.RawEvent{Sequence: 1, Timestamp: time.Now(), Layer: events.LayerClipboard, Kind: events.KindClipboardChange, Payload: events.ClipboardPayload{Content: "x"}})
	l.RecordAsync("sess2", events.RawEvent{Sequence: 1, Timestamp: time.Now(), Layer: events.LayerClipboard, Kind: events.KindClipboardChange, Payload: events.ClipboardPayload{Content: "y"}})
	l.Close()

	got, err := l.ForSession(context.Background(), "sess1")
	if err != nil {
		t.Fatalf("ForSession: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1 (scoped to sess1)", len(got))
	}
}

func TestRotateDeletesOldEvents(t *testing.T) {
	l := testLog(t)
	old := time.Now().AddDate(0, 0, -(RetentionDays + 1))
	l.RecordAsync("sess1", events.RawEvent{Sequence: 1, Timestamp: old, Layer: events.LayerOSInput, Kind: events.KindKeyDown, Payload: events.KeyPayload{}})
	l.RecordAsync("sess1", events.RawEvent{Sequence: 2, Timestamp: time.Now(), Layer: events.LayerOSInput, Kind: events.KindKeyDown, Payload: events.KeyPayload{}})
	l.Close()

	deleted, err := l.Rotate(context.Background())
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}

	got, err := l.ForSession(context.Background(), "sess1")
	if err != nil {
		t.Fatalf("ForSession: %v", err)
	}
	if len(got) != 1 || got[0].Sequence != 2 {
		t.Fatalf("retained = %+v, want only sequence 2", got)
	}
}
