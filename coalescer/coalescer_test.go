package coalescer

import (
	"testing"
	"time"

	"github.com/tempoflow/tempo/events"
)

func charKey(ch string) events.KeyPayload { return events.KeyPayload{Char: ch} }

func TestScenario_PunctuationThenContextChange(t *testing.T) {
	var got []events.TextInputEvent
	c := New(Config{}, func(e events.TextInputEvent) { got = append(got, e) })

	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	typeText(c, "Hello world.", "Editor", "doc.txt", base)

	// idle timer fires after the trailing period
	if c.TimerC() == nil {
		t.Fatal("expected idle timer armed after punctuation")
	}
	c.OnTimer()

	typeText(c, "Next line", "Editor", "doc.txt", base.Add(500*time.Millisecond))

	// switching app flushes the second buffer via context_change
	c.Key(charKey("x"), "Browser", "tab", base.Add(900*time.Millisecond))

	if len(got) != 2 {
		t.Fatalf("expected 2 TextInputEvents, got %d: %+v", len(got), got)
	}
	if got[0].Text != "Hello world." || got[0].FlushReason != events.FlushPunctuation {
		t.Errorf("event 1 = %+v, want text %q reason %q", got[0], "Hello world.", events.FlushPunctuation)
	}
	if got[1].Text != "Next line" || got[1].FlushReason != events.FlushContextChange {
		t.Errorf("event 2 = %+v, want text %q reason %q", got[1], "Next line", events.FlushContextChange)
	}
}

func TestBackspaceNeverGoesBelowEmpty(t *testing.T) {
	c := New(Config{}, func(events.TextInputEvent) {})
	now := time.Now()
	for i := 0; i < 5; i++ {
		c.Key(events.KeyPayload{KeyCode: keyCodeBackspace}, "App", "Win", now)
	}
	if c.buf.Len() != 0 {
		t.Fatalf("buffer should stay empty, got %q", c.buf.String())
	}
}

func TestMaxLengthForcesFlush(t *testing.T) {
	var got []events.TextInputEvent
	c := New(Config{MaxLength: 5}, func(e events.TextInputEvent) { got = append(got, e) })
	now := time.Now()
	for _, ch := range []string{"a", "b", "c", "d", "e"} {
		c.Key(charKey(ch), "App", "Win", now)
	}
	if len(got) != 1 || got[0].FlushReason != events.FlushMaxLength {
		t.Fatalf("expected one max_length flush, got %+v", got)
	}
	if got[0].Text != "abcde" {
		t.Errorf("text = %q, want abcde", got[0].Text)
	}
}

// typeText feeds a string through the coalescer one rune at a time.
func typeText(c *Coalescer, s, app, window string, at time.Time) {
	for _, r := range s {
		c.Key(charKey(string(r)), app, window, at)
	}
}
