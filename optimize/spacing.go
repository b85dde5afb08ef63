package optimize

import (
	"time"

	"github.com/tempoflow/tempo/events"
)

// enforceSnapshotSpacing drops ContentSnapshot AI events that fall within
// minGap of the previously retained snapshot (spec.md §4.5's
// min_time_between_snapshots). Idempotent: once spaced, every retained
// pair is already >= minGap apart, so a second pass drops nothing more.
func enforceSnapshotSpacing(ai []events.AIEvent, minGap time.Duration) []events.AIEvent {
	out := make([]events.AIEvent, 0, len(ai))
	var lastSnapshot time.Time
	haveLast := false
	for _, e := range ai {
		if e.Kind != events.AIEventSnapshot {
			out = append(out, e)
			continue
		}
		if haveLast && e.Timestamp.Sub(lastSnapshot) < minGap {
			continue
		}
		lastSnapshot = e.Timestamp
		haveLast = true
		out = append(out, e)
	}
	return out
}
