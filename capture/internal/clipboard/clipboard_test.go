package clipboard

import (
	"strings"
	"testing"

	"github.com/tempoflow/tempo/events"
)

func TestBuildEventTruncatesLongContent(t *testing.T) {
	s := New(Config{})
	content := strings.Repeat("a", 1200)

	ev := s.buildEvent(content)
	p, ok := ev.Payload.(events.ClipboardPayload)
	if !ok {
		t.Fatalf("payload type = %T", ev.Payload)
	}
	if p.ContentLength != 1200 {
		t.Errorf("content_length = %d, want 1200", p.ContentLength)
	}
	if !p.Truncated {
		t.Error("truncated flag not set")
	}
	if got := len([]rune(p.Content)); got != 1000 {
		t.Errorf("content len = %d, want 1000", got)
	}
}

func TestBuildEventShortContentNotTruncated(t *testing.T) {
	s := New(Config{})
	ev := s.buildEvent("hello clipboard")
	p := ev.Payload.(events.ClipboardPayload)
	if p.Truncated {
		t.Error("short content marked truncated")
	}
	if p.WordCount != 2 {
		t.Errorf("word_count = %d, want 2", p.WordCount)
	}
	if p.ContentType != events.ContentText {
		t.Errorf("content_type = %q, want text", p.ContentType)
	}
}

func TestBuildEventClassifiesURL(t *testing.T) {
	s := New(Config{})
	ev := s.buildEvent("https://example.com/a")
	p := ev.Payload.(events.ClipboardPayload)
	if p.ContentType != events.ContentURL {
		t.Errorf("content_type = %q, want url", p.ContentType)
	}
	if !p.ContainsURL {
		t.Error("contains_url not set")
	}
}
