package optimize

import (
	"strings"
	"time"

	"github.com/tempoflow/tempo/events"
)

// coalesceTextInputs merges adjacent TextInputEvent AI events from the
// same (app, window) whose gap is within window, concatenating their
// texts with a single space (spec.md §4.5). Idempotent: once merged, the
// combined event's EndTS/StartTS span the full run, so a second pass
// finds no remaining pair within window whose merge would change the
// result (the merged event already absorbed every adjacent candidate).
func coalesceTextInputs(ai []events.AIEvent, window time.Duration) []events.AIEvent {
	out := make([]events.AIEvent, 0, len(ai))
	for _, e := range ai {
		if e.Kind != events.AIEventKeystroke || e.TextInput == nil || len(out) == 0 {
			out = append(out, e)
			continue
		}
		prev := &out[len(out)-1]
		if prev.Kind != events.AIEventKeystroke || prev.TextInput == nil {
			out = append(out, e)
			continue
		}
		if prev.TextInput.App != e.TextInput.App || prev.TextInput.WindowTitle != e.TextInput.WindowTitle {
			out = append(out, e)
			continue
		}
		if e.TextInput.StartTS.Sub(prev.TextInput.EndTS) > window {
			out = append(out, e)
			continue
		}
		merged := *prev.TextInput
		merged.Text = strings.TrimRight(merged.Text, " ") + " " + strings.TrimLeft(e.TextInput.Text, " ")
		merged.WordCount = len(strings.Fields(merged.Text))
		merged.CharCount = len([]rune(merged.Text))
		merged.ContainsPunctuation = merged.ContainsPunctuation || e.TextInput.ContainsPunctuation
		merged.EndTS = e.TextInput.EndTS
		merged.FlushReason = e.TextInput.FlushReason
		prev.TextInput = &merged
		prev.RawRefs.End = e.RawRefs.End
		prev.Timestamp = e.Timestamp
	}
	return out
}

// coalesceSnapshots collapses consecutive ContentSnapshot AI events from
// the same (app, window_title) whose previews differ by less than pct%
// (character-level) to the last one (spec.md §4.5). Idempotent: once
// collapsed, only the most recent snapshot in a run survives, so a
// second pass has no consecutive same-context pair left to compare.
func coalesceSnapshots(ai []events.AIEvent, pct float64) []events.AIEvent {
	out := make([]events.AIEvent, 0, len(ai))
	for _, e := range ai {
		if e.Kind != events.AIEventSnapshot || e.Snapshot == nil || len(out) == 0 {
			out = append(out, e)
			continue
		}
		prev := &out[len(out)-1]
		if prev.Kind != events.AIEventSnapshot || prev.Snapshot == nil {
			out = append(out, e)
			continue
		}
		if prev.Snapshot.App != e.Snapshot.App || prev.Snapshot.WindowTitle != e.Snapshot.WindowTitle {
			out = append(out, e)
			continue
		}
		if diffPercent(prev.Snapshot.Preview, e.Snapshot.Preview) < pct {
			// replace prev with the later snapshot, keep its earlier RawRefs.Start
			start := prev.RawRefs.Start
			*prev = e
			prev.RawRefs.Start = start
			continue
		}
		out = append(out, e)
	}
	return out
}

// diffPercent is a character-level difference ratio between a and b,
// expressed as a percentage of the longer string's length.
func diffPercent(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longer := len(ra)
	if len(rb) > longer {
		longer = len(rb)
	}
	if longer == 0 {
		return 0
	}
	n := len(ra)
	if len(rb) < n {
		n = len(rb)
	}
	diff := longer - n
	for i := 0; i < n; i++ {
		if ra[i] != rb[i] {
			diff++
		}
	}
	return 100.0 * float64(diff) / float64(longer)
}
