package optimize

import (
	"reflect"
	"testing"
	"time"

	"github.com/tempoflow/tempo/events"
)

func textEvent(text string, start time.Time) events.AIEvent {
	end := start.Add(time.Duration(len(text)) * 10 * time.Millisecond)
	return events.AIEvent{
		Kind:      events.AIEventKeystroke,
		Timestamp: end,
		TextInput: &events.TextInputEvent{
			Text: text, App: "Editor", WindowTitle: "doc.txt",
			CharCount: len(text), StartTS: start, EndTS: end,
		},
	}
}

func TestOptimizeIdempotent(t *testing.T) {
	now := time.Now()
	batch := events.Batch{
		AIEvents: []events.AIEvent{
			textEvent("Hello", now),
			textEvent(" world", now.Add(time.Second)),
			{Kind: events.AIEventKeystroke, TextInput: &events.TextInputEvent{CharCount: 0}},
		},
	}
	cfg := DefaultConfig()
	once := Optimize(cfg, batch)
	twice := Optimize(cfg, once)

	if !reflect.DeepEqual(once.AIEvents, twice.AIEvents) {
		t.Fatalf("optimize not idempotent:\nonce  = %+v\ntwice = %+v", once.AIEvents, twice.AIEvents)
	}
}

func TestOptimizeDropsZeroCharKeystroke(t *testing.T) {
	batch := events.Batch{AIEvents: []events.AIEvent{
		{Kind: events.AIEventKeystroke, TextInput: &events.TextInputEvent{CharCount: 0}},
	}}
	out := Optimize(DefaultConfig(), batch)
	if len(out.AIEvents) != 0 {
		t.Fatalf("expected zero-char keystroke dropped, got %+v", out.AIEvents)
	}
	if out.OptimizationSummary.OutputCount != 0 || out.OptimizationSummary.InputCount != 1 {
		t.Errorf("summary = %+v", out.OptimizationSummary)
	}
}

func TestThrottleScrollCapsPerMinute(t *testing.T) {
	now := time.Now()
	var ai []events.AIEvent
	for i := 0; i < 10; i++ {
		ai = append(ai, events.AIEvent{Kind: events.AIEventScroll, Timestamp: now.Add(time.Duration(i) * time.Second)})
	}
	out := throttleScroll(ai, 3)
	if len(out) != 3 {
		t.Fatalf("expected 3 scroll events retained, got %d", len(out))
	}
}

func TestCoalesceTextPreservesTimestamps(t *testing.T) {
	now := time.Now()
	a := textEvent("foo", now)
	b := textEvent("bar", now.Add(500*time.Millisecond))
	out := coalesceTextInputs([]events.AIEvent{a, b}, 2*time.Second)
	if len(out) != 1 {
		t.Fatalf("expected merge into 1 event, got %d", len(out))
	}
	if !out[0].TextInput.EndTS.Equal(b.TextInput.EndTS) {
		t.Errorf("merged EndTS = %v, want %v", out[0].TextInput.EndTS, b.TextInput.EndTS)
	}
	if !out[0].TextInput.StartTS.Equal(a.TextInput.StartTS) {
		t.Errorf("merged StartTS = %v, want %v", out[0].TextInput.StartTS, a.TextInput.StartTS)
	}
}
