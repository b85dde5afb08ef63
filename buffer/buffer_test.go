package buffer

import (
	"testing"
	"time"

	"github.com/tempoflow/tempo/events"
)

func mkEvent(seq uint64) events.RawEvent {
	return events.RawEvent{Sequence: seq, Timestamp: time.Now(), Layer: events.LayerOSInput, Kind: events.KindMouseMove}
}

func TestBufferDropsOldestWhenFull(t *testing.T) {
	b := New(Config{MaxEvents: 3}, nil)
	for i := uint64(1); i <= 5; i++ {
		b.Append(mkEvent(i))
	}
	if b.Len() != 3 {
		t.Fatalf("len = %d, want 3", b.Len())
	}
	if b.Dropped() != 2 {
		t.Fatalf("dropped = %d, want 2", b.Dropped())
	}
	got := b.Snapshot()
	if got[0].Sequence != 3 {
		t.Errorf("oldest retained sequence = %d, want 3", got[0].Sequence)
	}
}

func TestGroupNoDoubleReference(t *testing.T) {
	now := time.Now()
	raw := []events.RawEvent{
		{Sequence: 1, Timestamp: now, Kind: events.KindMouseDown},
		{Sequence: 2, Timestamp: now.Add(100 * time.Millisecond), Kind: events.KindMouseUp},
	}
	candidates := []Enriched{
		{RawIndex: 0, Kind: events.AIEventClick, Click: &events.ClickTarget{}},
		{RawIndex: 1, Kind: events.AIEventClick, Click: &events.ClickTarget{}},
	}
	ai := Group(raw, candidates)
	if len(ai) != 1 {
		t.Fatalf("expected one merged click AI event, got %d", len(ai))
	}
	if ai[0].RawRefs.Start != 0 || ai[0].RawRefs.End != 2 {
		t.Errorf("raw refs = %+v, want [0,2)", ai[0].RawRefs)
	}
}

func TestBufferFromSequence(t *testing.T) {
	b := New(Config{MaxEvents: 10}, nil)
	for i := uint64(1); i <= 5; i++ {
		b.Append(mkEvent(i))
	}
	got := b.FromSequence(3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Sequence != 3 {
		t.Errorf("first = %d, want 3", got[0].Sequence)
	}
	if out := b.FromSequence(9); out != nil {
		t.Errorf("past-end read = %+v, want nil", out)
	}
}

func TestGroupWebClickWinsOverNative(t *testing.T) {
	now := time.Now()
	raw := []events.RawEvent{
		{Sequence: 1, Timestamp: now, Kind: events.KindMouseDown},
		{Sequence: 2, Timestamp: now.Add(50 * time.Millisecond), Kind: events.KindDOMClick},
	}
	candidates := []Enriched{
		{RawIndex: 0, Kind: events.AIEventClick, Click: &events.ClickTarget{Native: &events.NativeTarget{Role: "button"}}},
		{RawIndex: 1, Kind: events.AIEventClick, Click: &events.ClickTarget{Web: &events.WebTarget{Tag: "a"}}},
	}
	ai := Group(raw, candidates)
	if len(ai) != 1 {
		t.Fatalf("expected one merged click, got %d", len(ai))
	}
	if ai[0].Click == nil || !ai[0].Click.IsWeb() {
		t.Errorf("merged click = %+v, want the web-sourced target", ai[0].Click)
	}
}

func TestObjectInferenceKnownHost(t *testing.T) {
	inf := NewObjectInference(4)
	ot, id := inf.Infer("Chrome", "", "https://github.com/foo/bar")
	if ot != events.ObjectRepository {
		t.Errorf("object type = %q, want repository", ot)
	}
	if id != "github.com" {
		t.Errorf("object id = %q, want github.com", id)
	}
}
