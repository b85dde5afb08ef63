package optimize

import (
	"time"

	"github.com/tempoflow/tempo/events"
)

// throttleScroll caps scroll-kind AI events at maxPerMinute using a
// trailing 60s window over the retained events' timestamps (spec.md
// §4.5). Idempotent: a second pass over an already-throttled sequence
// never finds more than maxPerMinute retained events in any trailing
// window, so nothing further is dropped.
func throttleScroll(ai []events.AIEvent, maxPerMinute int) []events.AIEvent {
	out := make([]events.AIEvent, 0, len(ai))
	var kept []time.Time
	for _, e := range ai {
		if e.Kind != events.AIEventScroll {
			out = append(out, e)
			continue
		}
		kept = prune(kept, e.Timestamp)
		if len(kept) >= maxPerMinute {
			continue
		}
		kept = append(kept, e.Timestamp)
		out = append(out, e)
	}
	return out
}

func prune(kept []time.Time, now time.Time) []time.Time {
	cut := now.Add(-time.Minute)
	i := 0
	for ; i < len(kept); i++ {
		if kept[i].After(cut) {
			break
		}
	}
	return kept[i:]
}
