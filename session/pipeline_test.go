package session

import (
	"strings"
	"testing"
	"time"

	"github.com/tempoflow/tempo/events"
)

func TestPipelineStateIndexResetsOnFlush(t *testing.T) {
	var p pipelineState
	p.init()

	if idx := p.nextIndex(); idx != 0 {
		t.Fatalf("first index = %d, want 0", idx)
	}
	if idx := p.nextIndex(); idx != 1 {
		t.Fatalf("second index = %d, want 1", idx)
	}
	p.resetIndex()
	if idx := p.nextIndex(); idx != 0 {
		t.Fatalf("index after reset = %d, want 0", idx)
	}
}

func TestPipelineStateLastIndexDoesNotConsumeASlot(t *testing.T) {
	var p pipelineState
	p.init()

	if idx := p.nextIndex(); idx != 0 {
		t.Fatalf("first index = %d, want 0", idx)
	}
	// onTextInput calls lastIndex to reference the raw event nextIndex
	// already handed out to handleRaw, without reserving a slot of its
	// own — a raw event the text run was never associated with via
	// AddRaw would otherwise desync every later RawIndex in this batch.
	if idx := p.lastIndex(); idx != 0 {
		t.Fatalf("lastIndex = %d, want 0 (same as the prior nextIndex)", idx)
	}
	if idx := p.lastIndex(); idx != 0 {
		t.Fatalf("repeated lastIndex = %d, want 0 (still unconsumed)", idx)
	}
	if idx := p.nextIndex(); idx != 1 {
		t.Fatalf("next index after lastIndex = %d, want 1 (unaffected by lastIndex)", idx)
	}
}

func TestPipelineStateLastIndexBeforeAnyNextIndexIsZero(t *testing.T) {
	var p pipelineState
	p.init()
	if idx := p.lastIndex(); idx != 0 {
		t.Fatalf("lastIndex on fresh state = %d, want 0", idx)
	}
}

func TestPipelineStatePauseDropsNothingByItself(t *testing.T) {
	var p pipelineState
	p.init()

	if p.isPaused() {
		t.Fatal("fresh pipelineState should not be paused")
	}
	p.setPaused(true)
	if !p.isPaused() {
		t.Fatal("setPaused(true) should make isPaused true")
	}
	p.setPaused(false)
	if p.isPaused() {
		t.Fatal("setPaused(false) should make isPaused false")
	}
}

func TestPipelineStateContextTracksAppFocus(t *testing.T) {
	var p pipelineState
	p.init()

	if got := p.context(); got != (events.Context{}) {
		t.Fatalf("fresh context = %+v, want zero value", got)
	}
	want := events.Context{ActiveApp: "Code", ActiveWindow: "main.go"}
	p.setContext(want)
	if got := p.context(); got != want {
		t.Fatalf("context = %+v, want %+v", got, want)
	}
}

func TestSummaryStateRebasesRawRefsAcrossBatches(t *testing.T) {
	var s summaryState
	s.init()

	batch1 := events.Batch{
		RawEvents: make([]events.RawEvent, 2),
		AIEvents: []events.AIEvent{
			{Kind: events.AIEventClick, RawRefs: events.RawRange{Start: 0, End: 1}},
		},
	}
	batch2 := events.Batch{
		RawEvents: make([]events.RawEvent, 3),
		AIEvents: []events.AIEvent{
			{Kind: events.AIEventScroll, RawRefs: events.RawRange{Start: 1, End: 2}},
		},
	}

	s.add(batch1)
	s.add(batch2)

	ai, raw := s.drain()
	if len(raw) != 5 {
		t.Fatalf("drained %d raw events, want 5", len(raw))
	}
	if len(ai) != 2 {
		t.Fatalf("drained %d ai events, want 2", len(ai))
	}
	if ai[0].RawRefs != (events.RawRange{Start: 0, End: 1}) {
		t.Fatalf("first batch's raw refs = %+v, want unshifted {0 1}", ai[0].RawRefs)
	}
	if ai[1].RawRefs != (events.RawRange{Start: 3, End: 4}) {
		t.Fatalf("second batch's raw refs = %+v, want shifted by first batch's 2 raw events", ai[1].RawRefs)
	}

	aiAgain, rawAgain := s.drain()
	if aiAgain != nil || rawAgain != nil {
		t.Fatal("drain should empty the accumulator")
	}
}

func TestComputeAppTimeEstimate(t *testing.T) {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	raw := []events.RawEvent{
		{Kind: events.KindAppFocus, Timestamp: base, Payload: events.AppFocusPayload{AppName: "Code"}},
		{Kind: events.KindKeyDown, Timestamp: base.Add(2 * time.Minute)},
		{Kind: events.KindAppFocus, Timestamp: base.Add(5 * time.Minute), Payload: events.AppFocusPayload{AppName: "Slack"}},
	}
	endedAt := base.Add(10 * time.Minute)

	got := computeAppTimeEstimate(raw, endedAt)
	if got["Code"] != 5 {
		t.Errorf("Code minutes = %d, want 5", got["Code"])
	}
	if got["Slack"] != 5 {
		t.Errorf("Slack minutes = %d, want 5", got["Slack"])
	}
}

func TestTopAppName(t *testing.T) {
	got := topAppName(map[string]int{"Code": 10, "Slack": 25, "Mail": 2})
	if got != "Slack" {
		t.Fatalf("topAppName = %q, want Slack", got)
	}
	if got := topAppName(nil); got != "" {
		t.Fatalf("topAppName(nil) = %q, want empty", got)
	}
}

func TestStarRating(t *testing.T) {
	cases := []struct {
		avg  float64
		want int
	}{
		{90, 3},
		{75, 3},
		{60, 2},
		{50, 2},
		{20, 1},
		{0, 1},
	}
	for _, c := range cases {
		if got := starRating(c.avg); got != c.want {
			t.Errorf("starRating(%v) = %d, want %d", c.avg, got, c.want)
		}
	}
}

func TestBuildIntervalDigestMentionsTopApps(t *testing.T) {
	digest := buildIntervalDigest(map[string]int{"Code": 12, "Slack": 3, "Mail": 1, "Terminal": 30}, 7)
	if digest == "" {
		t.Fatal("digest should not be empty")
	}
	if !strings.Contains(digest, "Terminal") {
		t.Errorf("digest %q should mention the top app by minutes", digest)
	}
}
