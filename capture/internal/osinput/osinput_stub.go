//go:build !darwin

package osinput

import (
	"context"
	"time"

	"github.com/tempoflow/tempo/events"
)

// platformAvailable is the fallback probe for platforms without a native
// input-hook implementation in this build (Linux, Windows). Linux would
// wire this to an evdev device-file permission check; Windows to a
// SetWindowsHookEx low-level keyboard/mouse hook. Neither is linked here.
func platformAvailable() (bool, string) {
	return false, "OS input hook not implemented for this platform in this build"
}

func platformStart(ctx context.Context, emit func(events.Kind, events.KeyPayload, events.MousePayload, events.Context, time.Time)) error {
	return nil
}

func platformStop() {}
