//go:build darwin

package osinput

import (
	"context"
	"time"

	"github.com/tempoflow/tempo/events"
)

// platformAvailable reports the macOS Input Monitoring / Accessibility
// permission state. A production build wires this to
// IOHIDCheckAccess(kIOHIDRequestTypeListenEvent) via cgo; this tree has
// no cgo dependency, so the probe conservatively reports unavailable
// rather than silently emitting nothing while claiming to capture input.
func platformAvailable() (bool, string) {
	return false, "macOS Input Monitoring hook requires a CGO build of osinput, not linked in this build"
}

// platformStart would register a CGEventTap for key/mouse events and
// invoke emit for each one. Never reached while platformAvailable
// reports false.
func platformStart(ctx context.Context, emit func(events.Kind, events.KeyPayload, events.MousePayload, events.Context, time.Time)) error {
	return nil
}

func platformStop() {}
