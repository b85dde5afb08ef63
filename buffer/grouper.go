package buffer

import (
	"time"

	"github.com/tempoflow/tempo/events"
)

const (
	groupWindow     = 5 * time.Second
	clickPairWindow = 500 * time.Millisecond
)

// Enriched is one semantic-enricher output ready to be grouped into a
// batch, carrying the index (into the raw event slice passed to Group)
// of the raw event it derives from.
type Enriched struct {
	RawIndex   int
	Kind       events.AIEventKind
	Text       *events.TextInputEvent
	Click      *events.ClickTarget
	PageView   *events.PageViewEvent
	Clip       *events.ClipboardEvent
	Snapshot   *events.ContentSnapshot
	Annotation *events.ContentAnnotation
}

// Group applies the §4.4 pairing rules to turn a window's enriched
// candidates into AI events, each referencing raw events by index range
// into raw. Grouping rules:
//   - an OS mouse_down paired with a browser dom_click within
//     clickPairWindow collapses to a single enriched (web) click — the
//     browser-derived ClickTarget wins, matching dedup's richer-source
//     convention elsewhere in the pipeline.
//   - an OS mouse_down paired with its matching mouse_up within
//     clickPairWindow collapses to a single (native) click.
//   - everything else passes through as its own AI event.
//
// The result satisfies the batch invariant: no raw event is referenced
// by two AI events. A merged click normally spans both paired indices,
// but an unrelated candidate (a 1 Hz scroll or url poll) can land
// between them and gets its own AI event below — in that case the merged
// click narrows to the chosen index alone instead of a span that would
// reference the interloper twice.
func Group(raw []events.RawEvent, candidates []Enriched) []events.AIEvent {
	var out []events.AIEvent

	clicks := make([]Enriched, 0)
	var rest []Enriched
	for _, c := range candidates {
		if c.Kind == events.AIEventClick {
			clicks = append(clicks, c)
			continue
		}
		rest = append(rest, c)
	}

	restIdx := make(map[int]bool, len(rest))
	for _, c := range rest {
		restIdx[c.RawIndex] = true
	}

	paired := make([]bool, len(clicks))
	for i := range clicks {
		if paired[i] {
			continue
		}
		best := -1
		for j := i + 1; j < len(clicks); j++ {
			if paired[j] {
				continue
			}
			ti := raw[clicks[i].RawIndex].Timestamp
			tj := raw[clicks[j].RawIndex].Timestamp
			if diff(ti, tj) <= clickPairWindow {
				best = j
				break
			}
		}
		lo, hi := clicks[i].RawIndex, clicks[i].RawIndex
		chosen := clicks[i]
		if best >= 0 {
			paired[best] = true
			lo, hi = minMax(lo, clicks[best].RawIndex)
			// the web-sourced (browser dom_click) enrichment wins over the
			// bare OS mouse_down/up pairing, same richer-source-wins rule
			// dedup applies elsewhere in the capture path.
			if clicks[best].Click != nil && clicks[best].Click.IsWeb() {
				chosen = clicks[best]
			}
		}
		refs := events.RawRange{Start: lo, End: hi + 1}
		if spanEnclosesCandidate(restIdx, lo, hi) {
			refs = events.RawRange{Start: chosen.RawIndex, End: chosen.RawIndex + 1}
		}
		out = append(out, events.AIEvent{
			Kind:      events.AIEventClick,
			Timestamp: raw[chosen.RawIndex].Timestamp,
			RawRefs:   refs,
			Click:     chosen.Click,
		})
	}

	for _, c := range rest {
		ev := events.AIEvent{
			Timestamp:  raw[c.RawIndex].Timestamp,
			RawRefs:    events.RawRange{Start: c.RawIndex, End: c.RawIndex + 1},
			Kind:       c.Kind,
			TextInput:  c.Text,
			PageView:   c.PageView,
			Clipboard:  c.Clip,
			Snapshot:   c.Snapshot,
			Annotation: c.Annotation,
		}
		out = append(out, ev)
	}

	return out
}

// spanEnclosesCandidate reports whether any pass-through candidate's raw
// index falls strictly inside (lo, hi).
func spanEnclosesCandidate(restIdx map[int]bool, lo, hi int) bool {
	for i := lo + 1; i < hi; i++ {
		if restIdx[i] {
			return true
		}
	}
	return false
}

func diff(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}

func minMax(a, b int) (int, int) {
	if a <= b {
		return a, b
	}
	return b, a
}
