// Package coalescer turns a stream of key_down RawEvents into complete
// TextInputEvents. The shape — a mutable buffer plus a re-armed
// time.Timer driving a flush callback — mirrors the DOM-mutation debouncer
// it is grounded on, but the trigger rules are the keystroke ones from
// §4.2: idle gaps tuned by character class, immediate flush on navigation
// keys, a hard size cap, and a flush on app/window context change.
package coalescer

import (
	"strings"
	"time"
	"unicode"

	"github.com/tempoflow/tempo/events"
)

// Config tunes the coalescer's timing. Zero values are replaced by
// defaults() with the values from spec.md §4.2.
type Config struct {
	// SpaceIdle is how long to wait after a space before flushing.
	SpaceIdle time.Duration
	// PunctuationIdle is how long to wait after punctuation before flushing.
	PunctuationIdle time.Duration
	// DefaultIdle re-arms on every other printable keystroke.
	DefaultIdle time.Duration
	// MaxLength forces a flush once the buffer reaches this many chars.
	MaxLength int
}

func (c *Config) defaults() {
	if c.SpaceIdle <= 0 {
		c.SpaceIdle = 100 * time.Millisecond
	}
	if c.PunctuationIdle <= 0 {
		c.PunctuationIdle = 300 * time.Millisecond
	}
	if c.DefaultIdle <= 0 {
		c.DefaultIdle = 200 * time.Millisecond
	}
	if c.MaxLength <= 0 {
		c.MaxLength = 1000
	}
}

// FlushFunc receives a completed TextInputEvent.
type FlushFunc func(events.TextInputEvent)

// Coalescer accumulates key_down events into TextInputEvents. It is not
// safe for concurrent use; callers feed it from a single task, matching
// the single-writer buffer model in spec.md §5.
type Coalescer struct {
	cfg Config

	buf         strings.Builder
	app         string
	windowTitle string
	startTS     time.Time
	lastTS      time.Time
	hasPunct    bool

	// pendingReason is the flush reason the armed idle timer will emit
	// with: punctuation arms the timer with reason punctuation, spaces
	// and ordinary keystrokes with reason idle.
	pendingReason events.FlushReason

	timer   *time.Timer
	timerCh <-chan time.Time
	flush   FlushFunc
}

// New creates a Coalescer that invokes flush whenever a TextInputEvent is
// ready to emit.
func New(cfg Config, flush FlushFunc) *Coalescer {
	cfg.defaults()
	return &Coalescer{cfg: cfg, flush: flush}
}

// TimerC exposes the idle timer's channel so the owning task can select
// on it alongside other event sources, the same way
// domwatch/internal/observer's loop selects on its debounce timer.
func (c *Coalescer) TimerC() <-chan time.Time {
	if c.timerCh == nil {
		return nil
	}
	return c.timerCh
}

// OnTimer must be called when TimerC fires; it flushes the idle buffer
// with whatever reason armed the timer (punctuation for a
// punctuation-scheduled flush, idle otherwise).
func (c *Coalescer) OnTimer() {
	if c.buf.Len() == 0 {
		c.stopTimer()
		return
	}
	reason := c.pendingReason
	if reason == "" {
		reason = events.FlushIdle
	}
	c.emit(reason)
}

// Key feeds one key_down event into the coalescer. app/windowTitle is the
// context at the time of the keystroke.
func (c *Coalescer) Key(k events.KeyPayload, app, windowTitle string, at time.Time) {
	if c.buf.Len() > 0 && (app != c.app || windowTitle != c.windowTitle) {
		c.emit(events.FlushContextChange)
	}
	if c.buf.Len() == 0 {
		c.app = app
		c.windowTitle = windowTitle
		c.startTS = at
	}
	c.lastTS = at

	switch {
	case isReturn(k):
		c.appendRune(k)
		c.emit(events.FlushReturnKey)
		return
	case isTab(k):
		c.emit(events.FlushTab)
		return
	case isBackspace(k):
		c.backspace()
		// the punctuation that armed the timer may just have been
		// deleted, so the pending flush downgrades to a plain idle one
		c.pendingReason = events.FlushIdle
		c.rearm(c.cfg.DefaultIdle)
		return
	}

	if k.Char == "" {
		// non-printable key with no visible effect: may still flush via
		// the context-change check above, but produces no text.
		return
	}

	c.appendRune(k)

	if c.buf.Len() >= c.cfg.MaxLength {
		c.emit(events.FlushMaxLength)
		return
	}

	switch {
	case k.Char == " ":
		c.pendingReason = events.FlushIdle
		c.rearm(c.cfg.SpaceIdle)
	case isPunctuation(k.Char):
		c.hasPunct = true
		c.pendingReason = events.FlushPunctuation
		c.rearm(c.cfg.PunctuationIdle)
	default:
		c.pendingReason = events.FlushIdle
		c.rearm(c.cfg.DefaultIdle)
	}
}

// ForceFlush flushes any buffered text immediately, used at session pause
// and stop per spec.md §4.2's force_flush().
func (c *Coalescer) ForceFlush() {
	if c.buf.Len() == 0 {
		return
	}
	c.emit(events.FlushForce)
}

func (c *Coalescer) appendRune(k events.KeyPayload) {
	c.buf.WriteString(k.Char)
}

func (c *Coalescer) backspace() {
	s := c.buf.String()
	if s == "" {
		return
	}
	r := []rune(s)
	c.buf.Reset()
	c.buf.WriteString(string(r[:len(r)-1]))
}

func (c *Coalescer) rearm(d time.Duration) {
	if c.timer == nil {
		c.timer = time.NewTimer(d)
	} else {
		if !c.timer.Stop() {
			select {
			case <-c.timer.C:
			default:
			}
		}
		c.timer.Reset(d)
	}
	c.timerCh = c.timer.C
}

func (c *Coalescer) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timerCh = nil
}

func (c *Coalescer) emit(reason events.FlushReason) {
	text := c.buf.String()
	evt := events.TextInputEvent{
		Text:                text,
		WordCount:           wordCount(text),
		CharCount:           len([]rune(text)),
		ContainsPunctuation: c.hasPunct,
		App:                 c.app,
		WindowTitle:         c.windowTitle,
		StartTS:             c.startTS,
		EndTS:               c.lastTS,
		FlushReason:         reason,
	}
	c.reset()
	if c.flush != nil {
		c.flush(evt)
	}
}

func (c *Coalescer) reset() {
	c.buf.Reset()
	c.hasPunct = false
	c.pendingReason = ""
	c.stopTimer()
}

func isBackspace(k events.KeyPayload) bool { return k.KeyCode == keyCodeBackspace }
func isReturn(k events.KeyPayload) bool {
	return k.KeyCode == keyCodeReturn || k.KeyCode == keyCodeEnter
}
func isTab(k events.KeyPayload) bool { return k.KeyCode == keyCodeTab }

func isPunctuation(s string) bool {
	r := []rune(s)
	if len(r) != 1 {
		return false
	}
	return unicode.IsPunct(r[0])
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// Platform-independent logical key codes. Capture sources normalize
// native scan codes to these before handing events to the coalescer.
const (
	keyCodeBackspace = 8
	keyCodeTab       = 9
	keyCodeReturn    = 13
	keyCodeEnter     = 10
)
