package capture

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tempoflow/tempo/capture/internal/accessibility"
	"github.com/tempoflow/tempo/capture/internal/appfocus"
	"github.com/tempoflow/tempo/capture/internal/browser"
	"github.com/tempoflow/tempo/capture/internal/clipboard"
	"github.com/tempoflow/tempo/capture/internal/osinput"
	"github.com/tempoflow/tempo/capture/internal/sink"
	"github.com/tempoflow/tempo/events"
)

// Session is the C1 orchestrator: it owns one Source per enabled capture
// source and fans their raw events into a single bounded, deduplicated
// channel for C2/C3/C4 to consume. Grounded on domwatch.Watcher's
// Start/Stop shape, generalized from "one watcher per browser page" to
// "one fan-in channel per enabled source".
type Session struct {
	cfg    Config
	logger *slog.Logger

	sources []Source
	access  *accessibility.Inspector
	bridge  *browser.Bridge

	out   chan events.RawEvent
	dedup *dedup
	seq   atomic.Uint64
	sinks *sink.Router

	mu       sync.Mutex
	disabled []events.Layer
}

// New builds a Session with one Source per enabled entry in cfg. Sources
// that fail their Available() probe are recorded as disabled up front but
// never block the others from starting.
func New(cfg Config, logger *slog.Logger) *Session {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	s := &Session{
		cfg:    cfg,
		logger: logger,
		out:    make(chan events.RawEvent, cfg.ChannelCapacity),
		dedup:  newDedup(),
		sinks:  sink.NewRouter(logger),
	}

	if cfg.OSInput.Enabled {
		s.sources = append(s.sources, osinput.New(osinput.Config{MouseMoveThrottle: cfg.OSInput.MouseMoveEvery}))
	}
	if cfg.AppFocus.Enabled {
		s.sources = append(s.sources, appfocus.New(appfocus.Config{PollInterval: cfg.AppFocus.PollInterval}))
	}
	if cfg.Clipboard.Enabled {
		s.sources = append(s.sources, clipboard.New(clipboard.Config{
			PollInterval: cfg.Clipboard.PollInterval,
			MaxChars:     cfg.Clipboard.MaxChars,
		}))
	}
	if cfg.Accessibility.Enabled {
		s.access = accessibility.New(accessibility.Config{
			Timeout:      cfg.Accessibility.Timeout,
			MaxAncestors: cfg.Accessibility.MaxAncestors,
			MaxSiblings:  cfg.Accessibility.MaxSiblings,
			MaxTreeDepth: cfg.Accessibility.MaxTreeDepth,
		})
	}
	if cfg.Browser.Enabled {
		s.bridge = browser.New(browser.Config{
			Remote:           cfg.Browser.Remote,
			MemoryLimit:      cfg.Browser.MemoryLimit,
			RecycleInterval:  cfg.Browser.RecycleInterval,
			ResourceBlocking: cfg.Browser.ResourceBlocking,
			URLPollInterval:  cfg.Browser.URLPollInterval,
			ScrollPollHz:     cfg.Browser.ScrollPollHz,
			SelectionPollHz:  cfg.Browser.SelectionPollHz,
			JSTimeout:        cfg.Browser.JSTimeout,
			Logger:           logger,
		})
		s.sources = append(s.sources, s.bridge)
	}

	return s
}

// Events exposes the fan-in channel C2/C3/C4 read from.
func (s *Session) Events() <-chan events.RawEvent { return s.out }

// Accessibility exposes the on-demand inspector for the enricher (C3) to
// call on pointer-down events outside the browser. Nil if disabled.
func (s *Session) Accessibility() *accessibility.Inspector { return s.access }

// Browser exposes the browser bridge for the enricher to query for
// web-path click targets and content snapshots. Nil if disabled.
func (s *Session) Browser() *browser.Bridge { return s.bridge }

// Start launches every configured source. A source whose Available()
// probe fails is skipped and recorded disabled rather than blocking the
// others (spec.md §4.1). The accessibility inspector is on-demand rather
// than a polling Source, but its permission probe runs here too so a
// denial emits its one source_disabled event up front — per-click
// degradation to the unknown target is handled by the inspector itself.
func (s *Session) Start(ctx context.Context) error {
	if s.access != nil {
		if ok, reason := s.access.Available(); !ok {
			s.markDisabled(ctx, events.LayerAccessibility, reason)
		}
	}

	started := 0
	for _, src := range s.sources {
		ok, reason := src.Available()
		if !ok {
			s.markDisabled(ctx, src.Name(), reason)
			continue
		}
		if err := src.Start(ctx, s.rawOut(ctx)); err != nil {
			s.logger.Warn("tempo: capture source failed to start", "layer", src.Name(), "error", err)
			s.markDisabled(ctx, src.Name(), err.Error())
			continue
		}
		started++
	}
	if started == 0 && len(s.sources) > 0 {
		s.logger.Warn("tempo: no capture sources started")
	}
	return nil
}

// Stop halts every source.
func (s *Session) Stop() {
	for _, src := range s.sources {
		src.Stop()
	}
}

// CheckPermissions reports availability for every configured source
// (spec.md §6's check_permissions()).
func (s *Session) CheckPermissions() []PermissionStatus {
	var out []PermissionStatus
	for _, src := range s.sources {
		ok, reason := src.Available()
		out = append(out, PermissionStatus{
			Name:        string(src.Name()),
			Granted:     ok,
			Description: reason,
		})
	}
	if s.access != nil {
		ok, reason := s.access.Available()
		out = append(out, PermissionStatus{
			Name:        string(events.LayerAccessibility),
			Granted:     ok,
			Description: reason,
		})
	}
	return out
}

// rawOut wraps the shared out channel with a dedup + sequence-assignment
// stage so every source can write RawEvents without payload/sequence
// bookkeeping of its own. Per-source ordering is preserved because each
// source only ever writes its own events in the order it observes them;
// cross-source interleaving is resolved downstream by timestamp with
// sequence as tie-break (spec.md §5).
func (s *Session) rawOut(ctx context.Context) chan<- events.RawEvent {
	ch := make(chan events.RawEvent, 256)
	go func() {
		for e := range ch {
			if s.dedup.Seen(e) {
				continue
			}
			e.Sequence = s.seq.Add(1)
			s.sinks.Send(ctx, e)
			select {
			case s.out <- e:
			default:
				s.logger.Warn("tempo: capture fan-in channel full, dropping event", "layer", e.Layer, "kind", e.Kind)
			}
		}
	}()
	return ch
}

// RequestSnapshot asks the browser bridge for an on-demand
// content_snapshot (spec.md §4.1's "content_snapshot on request from
// C6") and emits it onto the fan-in channel like any other raw event.
// Reports false when the bridge is disabled or has no tab to snapshot.
func (s *Session) RequestSnapshot(ctx context.Context, snapType events.SnapshotType) bool {
	bridge := s.bridge
	if bridge == nil || !bridge.Enabled() {
		return false
	}

	snap, err := bridge.Snapshot(ctx, snapType)
	if err != nil {
		s.logger.Debug("tempo: capture snapshot request failed", "error", err)
		return false
	}

	e := newRawEvent(s.seq.Add(1), time.Now(), events.LayerSnapshot, events.KindContentSnapshot,
		events.Context{ActiveURL: snap.URL}, events.ContentSnapshotPayload{
			IsWeb:        snap.IsWeb,
			URL:          snap.URL,
			Preview:      snap.Preview,
			WordCount:    snap.WordCount,
			ElementCount: snap.ElementCount,
			SnapshotType: snap.SnapshotType,
		})
	s.sinks.Send(ctx, e)
	select {
	case s.out <- e:
		return true
	default:
		s.logger.Warn("tempo: capture fan-in channel full, dropping snapshot")
		return false
	}
}

func (s *Session) markDisabled(ctx context.Context, layer events.Layer, reason string) {
	s.mu.Lock()
	s.disabled = append(s.disabled, layer)
	s.mu.Unlock()

	e := newRawEvent(s.seq.Add(1), time.Now(), layer, events.KindSourceDisabled, events.Context{}, events.SourceDisabledPayload{
		Layer:  layer,
		Reason: reason,
	})
	s.sinks.Send(ctx, e)
	s.out <- e
}

// DisabledLayers returns the layers disabled so far, for get_status().
func (s *Session) DisabledLayers() []events.Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.Layer, len(s.disabled))
	copy(out, s.disabled)
	return out
}
