package capture

import (
	"testing"
	"time"

	"github.com/tempoflow/tempo/events"
)

func mouseDown(at time.Time, x, y float64) events.RawEvent {
	return events.RawEvent{
		Timestamp: at,
		Layer:     events.LayerOSInput,
		Kind:      events.KindMouseDown,
		Payload:   events.MousePayload{Coordinates: events.Point{X: x, Y: y}},
	}
}

func TestDedupSuppressesRacingDuplicate(t *testing.T) {
	d := newDedup()
	now := time.Now()

	// Two sources observing the same click within the tolerance window:
	// the second registration must be reported as already seen.
	if d.Seen(mouseDown(now, 100, 200)) {
		t.Fatal("first event reported as duplicate")
	}
	if !d.Seen(mouseDown(now.Add(30*time.Millisecond), 100, 200)) {
		t.Fatal("duplicate within 50ms tolerance not suppressed")
	}
}

func TestDedupPassesEventsOutsideTolerance(t *testing.T) {
	d := newDedup()
	now := time.Now()

	if d.Seen(mouseDown(now, 100, 200)) {
		t.Fatal("first event reported as duplicate")
	}
	if d.Seen(mouseDown(now.Add(200*time.Millisecond), 100, 200)) {
		t.Fatal("repeat click outside tolerance suppressed")
	}
}

func TestDedupKeysOnPayloadDigest(t *testing.T) {
	d := newDedup()
	now := time.Now()

	d.Seen(mouseDown(now, 100, 200))
	if d.Seen(mouseDown(now.Add(10*time.Millisecond), 101, 200)) {
		t.Fatal("event with different payload suppressed")
	}
}

func TestDedupKeysOnLayerAndKind(t *testing.T) {
	d := newDedup()
	now := time.Now()

	a := mouseDown(now, 100, 200)
	b := a
	b.Kind = events.KindMouseUp

	d.Seen(a)
	if d.Seen(b) {
		t.Fatal("different kind at same timestamp/payload suppressed")
	}
}

// TestDedupSyntheticDuplicatePairs feeds pairs simulating an input hook
// and a polling fallback racing for the same observations: exactly one
// of each pair must survive regardless of the jitter between them.
func TestDedupSyntheticDuplicatePairs(t *testing.T) {
	d := newDedup()
	now := time.Now()

	survived := 0
	for i := 0; i < 100; i++ {
		at := now.Add(time.Duration(i) * 150 * time.Millisecond)
		jitter := time.Duration(i%50) * time.Millisecond
		if !d.Seen(mouseDown(at, float64(i), 0)) {
			survived++
		}
		if !d.Seen(mouseDown(at.Add(jitter), float64(i), 0)) {
			survived++
		}
	}
	if survived != 100 {
		t.Fatalf("survived = %d, want exactly one per pair (100)", survived)
	}
}
