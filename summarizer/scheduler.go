// Package summarizer ties together the C6 pipeline: a 15-active-minute
// scheduler, the LLM client with local fallback, memory recall, and
// persistence.
//
// scheduler.go's Run(ctx)+ticker+Config-with-defaults shape is grounded on
// veille/internal/scheduler/scheduler.go, generalized from "poll for due
// sources on wall-clock time" to "accumulate active session time and flush
// every 15 minutes of it" per spec.md §4.6 — pause/resume freezes the
// accumulator instead of resetting a wall-clock ticker, so a paused session
// doesn't lose partial-interval progress.
package summarizer

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SchedulerConfig configures the interval scheduler.
type SchedulerConfig struct {
	// IntervalDuration is the amount of active session time per summarized
	// interval. Default: 15 minutes (spec.md §4.6).
	IntervalDuration time.Duration
	// TickInterval is how often the scheduler samples elapsed wall-clock
	// time to add to the active-time accumulator. Default: 1 second.
	TickInterval time.Duration
}

func (c *SchedulerConfig) defaults() {
	if c.IntervalDuration <= 0 {
		c.IntervalDuration = 15 * time.Minute
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
}

// IntervalFlushFunc is invoked when IntervalDuration of active time has
// accumulated. index is 0-based and increases monotonically per session.
type IntervalFlushFunc func(ctx context.Context, index int, startedAt, endedAt time.Time)

// Scheduler accumulates active session time and fires IntervalFlushFunc
// every IntervalDuration. Pausing the capture session (spec.md §6
// pause_session) freezes the accumulator rather than resetting it: a
// session paused at 10 of 15 active minutes resumes at 10, not 0.
type Scheduler struct {
	cfg    SchedulerConfig
	flush  IntervalFlushFunc
	logger *slog.Logger

	mu            sync.Mutex
	paused        bool
	accumulated   time.Duration
	intervalIndex int
	intervalStart time.Time
	lastTick      time.Time
}

// NewScheduler creates a Scheduler. The clock starts the moment Run is
// called, not the moment NewScheduler is called.
func NewScheduler(cfg SchedulerConfig, flush IntervalFlushFunc, logger *slog.Logger) *Scheduler {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{cfg: cfg, flush: flush, logger: logger}
}

// Run ticks on cfg.TickInterval, accumulating active time and flushing
// completed intervals, until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	now := time.Now()
	s.mu.Lock()
	s.intervalStart = now
	s.lastTick = now
	s.mu.Unlock()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			s.tick(ctx, t)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	elapsed := now.Sub(s.lastTick)
	s.lastTick = now
	if s.paused {
		s.mu.Unlock()
		return
	}
	s.accumulated += elapsed
	due := s.accumulated >= s.cfg.IntervalDuration
	var index int
	var startedAt time.Time
	if due {
		index = s.intervalIndex
		startedAt = s.intervalStart
		s.accumulated -= s.cfg.IntervalDuration
		s.intervalIndex++
		s.intervalStart = now
	}
	s.mu.Unlock()

	if due {
		s.logger.Debug("summarizer: interval complete", "index", index)
		s.flush(ctx, index, startedAt, now)
	}
}

// Pause freezes the active-time accumulator.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// Resume unfreezes the active-time accumulator. The tick immediately
// following Resume contributes only the time since the last tick received
// while paused (at most one TickInterval), since lastTick was kept
// current by every tick received while paused.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

// ActiveMinutes reports the accumulated active time in the current
// in-progress interval, for get_status.
func (s *Scheduler) ActiveMinutes() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accumulated.Minutes()
}

// CurrentInterval returns the index and start time of the in-progress
// interval, for a final flush at session stop (spec.md §4.6: the
// partial interval in progress when the session ends is still
// summarized).
func (s *Scheduler) CurrentInterval() (int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intervalIndex, s.intervalStart
}
