// Package buffer holds enriched raw events in memory, groups temporally
// related ones into AI events, and cuts them into Batches. The main loop
// shape — select over an incoming-event channel, a batch-interval timer,
// and a minimum-inter-batch guard — is grounded on
// domwatch/internal/observer/observer.go's loop, generalized from one
// DOM-mutation debounce window to the timer/size-cap/min-interval flush
// state machine in spec.md §4.4.
package buffer

import (
	"log/slog"

	"github.com/tempoflow/tempo/events"
)

// Config bounds the in-memory raw event buffer.
type Config struct {
	// MaxEvents is the buffer capacity; the oldest event is dropped with a
	// warning once full. Default 10000.
	MaxEvents int
}

func (c *Config) defaults() {
	if c.MaxEvents <= 0 {
		c.MaxEvents = 10000
	}
}

// Buffer is an ordered, append-only, bounded store of raw events for one
// session. It is single-writer: only the owning task calls Append.
type Buffer struct {
	cfg     Config
	events  []events.RawEvent
	base    uint64 // sequence number of events[0]
	dropped uint64
	logger  *slog.Logger
}

// New creates a Buffer. logger may be nil, in which case drop warnings go
// to slog.Default().
func New(cfg Config, logger *slog.Logger) *Buffer {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Buffer{cfg: cfg, logger: logger, base: 1}
}

// Append stores e, dropping the oldest event with a warning if the
// buffer is at capacity.
func (b *Buffer) Append(e events.RawEvent) {
	if len(b.events) >= b.cfg.MaxEvents {
		b.events = b.events[1:]
		b.base++
		b.dropped++
		b.logger.Warn("tempo: raw event buffer full, dropping oldest", "dropped_total", b.dropped)
	}
	b.events = append(b.events, e)
}

// Len returns the number of events currently retained.
func (b *Buffer) Len() int { return len(b.events) }

// Dropped returns the cumulative count of events evicted for capacity.
func (b *Buffer) Dropped() uint64 { return b.dropped }

// FromSequence returns all retained events with Sequence >= n, satisfying
// C6's indexed read access requirement (spec.md §4.4).
func (b *Buffer) FromSequence(n uint64) []events.RawEvent {
	if len(b.events) == 0 || n < b.base {
		out := make([]events.RawEvent, len(b.events))
		copy(out, b.events)
		return out
	}
	offset := n - b.base
	if offset >= uint64(len(b.events)) {
		return nil
	}
	out := make([]events.RawEvent, len(b.events)-int(offset))
	copy(out, b.events[offset:])
	return out
}

// Drain removes and returns every currently retained event, used by the
// batcher at flush time. The buffer is empty after Drain returns.
func (b *Buffer) Drain() []events.RawEvent {
	out := b.events
	b.events = nil
	b.base += uint64(len(out))
	return out
}

// Snapshot returns a copy of every currently retained event without
// removing them, used for export_session.
func (b *Buffer) Snapshot() []events.RawEvent {
	out := make([]events.RawEvent, len(b.events))
	copy(out, b.events)
	return out
}
