package buffer

import (
	"time"

	"github.com/tempoflow/tempo/events"
	"github.com/tempoflow/tempo/idgen"
)

// BatcherConfig tunes the flush triggers from spec.md §4.4.
type BatcherConfig struct {
	// BatchInterval is the periodic flush timer. Default 20s.
	BatchInterval time.Duration
	// MaxBatchEvents is the nominal batch size; size-cap flush fires at
	// 2x this many raw events since the last batch. Default 100.
	MaxBatchEvents int
	// MinBatchInterval is the minimum gap between flushes; timer ticks
	// inside this window coalesce into the next eligible tick. Default 10s.
	MinBatchInterval time.Duration
}

func (c *BatcherConfig) defaults() {
	if c.BatchInterval <= 0 {
		c.BatchInterval = 20 * time.Second
	}
	if c.MaxBatchEvents <= 0 {
		c.MaxBatchEvents = 100
	}
	if c.MinBatchInterval <= 0 {
		c.MinBatchInterval = 10 * time.Second
	}
}

// BatchFunc receives a completed, ungrouped-yet batch: raw events plus
// the enriched candidates accumulated since the last flush. The caller
// (session orchestrator) is responsible for running Group and then the
// optimizer over it.
type BatchFunc func(raw []events.RawEvent, candidates []Enriched, reason events.FlushReason)

// Batcher owns the Buffer and the timer/size-cap/min-interval flush
// state machine. Not safe for concurrent use — driven by a single task's
// select loop, same single-writer model as the buffer itself.
type Batcher struct {
	cfg BatcherConfig
	buf *Buffer

	candidates []Enriched
	sinceFlush int
	lastFlush  time.Time

	timer *time.Timer
	flush BatchFunc
	newID idgen.Generator
}

// NewBatcher creates a Batcher over buf, invoking flush whenever a batch
// is cut.
func NewBatcher(cfg BatcherConfig, buf *Buffer, flush BatchFunc) *Batcher {
	cfg.defaults()
	b := &Batcher{cfg: cfg, buf: buf, flush: flush, lastFlush: time.Now(), newID: idgen.Default}
	b.timer = time.NewTimer(cfg.BatchInterval)
	return b
}

// TimerC exposes the periodic flush timer for the owning select loop.
func (b *Batcher) TimerC() <-chan time.Time { return b.timer.C }

// OnTimer must be called when TimerC fires.
func (b *Batcher) OnTimer() {
	b.timer.Reset(b.cfg.BatchInterval)
	if time.Since(b.lastFlush) < b.cfg.MinBatchInterval {
		return // tick coalesces into the next eligible one
	}
	b.doFlush(events.FlushInterval)
}

// AddRaw appends a raw event to the buffer and checks the size-cap
// trigger (2x MaxBatchEvents since the last flush).
func (b *Batcher) AddRaw(e events.RawEvent) {
	b.buf.Append(e)
	b.sinceFlush++
	if b.sinceFlush >= 2*b.cfg.MaxBatchEvents {
		b.doFlush(events.FlushSizeCap)
	}
}

// AddCandidate records an enrichment-level AI event candidate produced by
// C3, to be grouped at the next flush.
func (b *Batcher) AddCandidate(c Enriched) {
	b.candidates = append(b.candidates, c)
}

// ForceFlush flushes immediately regardless of MinBatchInterval, used at
// session pause/stop (reason session_end) per spec.md §4.4.
func (b *Batcher) ForceFlush(reason events.FlushReason) {
	b.doFlush(reason)
}

func (b *Batcher) doFlush(reason events.FlushReason) {
	raw := b.buf.Drain()
	candidates := b.candidates
	b.candidates = nil
	b.sinceFlush = 0
	b.lastFlush = time.Now()
	if len(raw) == 0 && len(candidates) == 0 {
		return
	}
	if b.flush != nil {
		b.flush(raw, candidates, reason)
	}
}

// BuildBatch assembles a Batch from a flush's raw events and grouped AI
// events, matching the §3 Batch shape.
func BuildBatch(sessionID string, newID idgen.Generator, raw []events.RawEvent, ai []events.AIEvent, reason events.FlushReason, startedAt, endedAt time.Time) events.Batch {
	if newID == nil {
		newID = idgen.Default
	}
	return events.Batch{
		BatchID:   newID(),
		SessionID: sessionID,
		StartedAt: startedAt,
		EndedAt:   endedAt,
		Reason:    reason,
		RawEvents: raw,
		AIEvents:  ai,
	}
}
