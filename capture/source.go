// Package capture implements C1, the multi-source event capture layer:
// independent platform adapters that each emit timestamped events.RawEvent
// values onto one fan-in channel. A source's absence or failure never
// blocks the others — the supervising Session iterates a small tagged-
// variant-style slice of Source implementations (per spec.md §9's
// "dynamic dispatch of capture sources" design note), with no inheritance
// hierarchy.
package capture

import (
	"context"
	"time"

	"github.com/tempoflow/tempo/events"
)

// Source is the capability set every capture source implements: name,
// availability probe, start, stop and is_enabled. There is no separate
// poll or disable(reason) method; Session records disabled sources
// itself. Poll-driven
// sources run their own ticker inside Start; callback-driven sources (OS
// input hooks) spawn their own listener goroutine. Either way Start must
// return promptly — it launches a goroutine, it does not block.
type Source interface {
	// Name identifies the source's layer for logging and disabled-source
	// bookkeeping.
	Name() events.Layer

	// Available reports whether the source can run on this platform/
	// permission state before Start is called, with a human-readable
	// reason (surfaced by check_permissions()).
	Available() (bool, string)

	// Start begins emitting events onto out. It must return once the
	// source is running; emission continues in the background until ctx
	// is cancelled or Stop is called.
	Start(ctx context.Context, out chan<- events.RawEvent) error

	// Stop halts emission. Safe to call even if Start was never called
	// or already failed.
	Stop()

	// Enabled reports whether the source is currently emitting: true after
	// a successful Start, false after Stop. Sources do not disable
	// themselves on errors.
	Enabled() bool
}

// PermissionStatus is one entry of check_permissions() (spec.md §6).
type PermissionStatus struct {
	Name        string `json:"name"`
	Granted     bool   `json:"granted"`
	Description string `json:"description"`
}

func newRawEvent(seq uint64, at time.Time, layer events.Layer, kind events.Kind, ctx events.Context, payload any) events.RawEvent {
	return events.RawEvent{
		Sequence:  seq,
		Timestamp: at,
		Layer:     layer,
		Kind:      kind,
		Context:   ctx,
		Payload:   payload,
	}
}
