package optimize

import "github.com/tempoflow/tempo/events"

// dropUseless removes zero-char key runs and empty clipboard changes
// (spec.md §4.5 "drop useless events"). Mouse moves have no AIEventKind,
// so there are none to drop at this stage. It is idempotent: none of its
// conditions can become true again once an event has survived a pass,
// since surviving text/clipboard events still have nonzero length.
func dropUseless(ai []events.AIEvent) []events.AIEvent {
	out := make([]events.AIEvent, 0, len(ai))
	for _, e := range ai {
		if e.Kind == events.AIEventKeystroke && e.TextInput != nil && e.TextInput.CharCount == 0 {
			continue
		}
		if e.Kind == events.AIEventClipboard && e.Clipboard != nil && e.Clipboard.ContentLength == 0 {
			continue
		}
		out = append(out, e)
	}
	return out
}
