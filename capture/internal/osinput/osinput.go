// Package osinput is the OS keyboard/mouse hook source (C1, spec.md
// §4.1's "OS input hook"). The platform hook registration is behind
// build-tag-gated files per platform, following the
// Available()-probe-plus-poll-loop shape of the focus-monitor reference
// pattern in the wider capture corpus: a shared throttle/lifecycle file
// here, with the native call as the documented wiring point in each
// platform file.
package osinput

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tempoflow/tempo/events"
)

// Config tunes the OS input hook.
type Config struct {
	// MouseMoveThrottle caps mouse_move emission to at most one per
	// interval (spec.md §4.1, default 100ms).
	MouseMoveThrottle time.Duration
}

func (c *Config) defaults() {
	if c.MouseMoveThrottle <= 0 {
		c.MouseMoveThrottle = 100 * time.Millisecond
	}
}

// Source implements capture.Source for the OS input hook.
type Source struct {
	cfg Config

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	out     chan<- events.RawEvent
	enabled atomic.Bool

	lastMouseMove atomic.Int64 // unix nanos
}

// New creates an OS input hook source. Call Start to begin emitting.
func New(cfg Config) *Source {
	cfg.defaults()
	return &Source{cfg: cfg}
}

func (s *Source) Name() events.Layer { return events.LayerOSInput }

// Available reports whether the native hook could be installed. The
// platform-specific file provides the real probe (Input Monitoring /
// Accessibility permission check on macOS, evdev access on Linux, a
// low-level hook on Windows); see osinput_<os>.go / osinput_stub.go.
func (s *Source) Available() (bool, string) { return platformAvailable() }

// Start installs the hook and begins forwarding key/mouse events onto
// out, throttling mouse_move per Config.MouseMoveThrottle.
func (s *Source) Start(ctx context.Context, out chan<- events.RawEvent) error {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.out = out
	s.mu.Unlock()

	if err := platformStart(s.ctx, s.emit); err != nil {
		return err
	}
	s.enabled.Store(true)
	return nil
}

func (s *Source) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	platformStop()
	s.enabled.Store(false)
}

func (s *Source) Enabled() bool { return s.enabled.Load() }

// emit is the callback the platform hook invokes for every native event.
// It throttles mouse_move and forwards everything else immediately,
// matching spec.md §4.1's "at most one [mouse_move] per 100ms" rule.
func (s *Source) emit(kind events.Kind, payload events.KeyPayload, mouse events.MousePayload, ctx events.Context, at time.Time) {
	s.mu.Lock()
	out := s.out
	s.mu.Unlock()
	if out == nil {
		return
	}

	if kind == events.KindMouseMove {
		last := s.lastMouseMove.Load()
		if at.UnixNano()-last < s.cfg.MouseMoveThrottle.Nanoseconds() {
			return
		}
		s.lastMouseMove.Store(at.UnixNano())
	}

	var ev events.RawEvent
	switch kind {
	case events.KindKeyDown, events.KindKeyUp:
		ev = events.RawEvent{Timestamp: at, Layer: events.LayerOSInput, Kind: kind, Context: ctx, Payload: payload}
	default:
		ev = events.RawEvent{Timestamp: at, Layer: events.LayerOSInput, Kind: kind, Context: ctx, Payload: mouse}
	}

	select {
	case out <- ev:
	case <-s.ctx.Done():
	}
}
