// Package clipboard polls the system clipboard every 500ms, emitting a
// clipboard_change RawEvent on change_count increment plus content
// inequality (spec.md §4.1). Content classification reuses
// enrich.ClassifyContentType rather than duplicating its regex rules.
package clipboard

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tempoflow/tempo/enrich"
	"github.com/tempoflow/tempo/events"
)

var (
	urlRe   = regexp.MustCompile(`https?://[^\s]+`)
	emailRe = regexp.MustCompile(`[[:alnum:].+_-]+@[[:alnum:].-]+\.[[:alpha:]]{2,}`)
)

// Config tunes the clipboard poller.
type Config struct {
	PollInterval time.Duration // default 500ms
	MaxChars     int           // default 1000
}

func (c *Config) defaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.MaxChars <= 0 {
		c.MaxChars = 1000
	}
}

// Source implements capture.Source for the clipboard poller.
type Source struct {
	cfg Config

	mu            sync.Mutex
	cancel        context.CancelFunc
	lastChangeCnt int
	lastContent   string
	enabled       atomic.Bool
}

// New creates a clipboard Source.
func New(cfg Config) *Source {
	cfg.defaults()
	return &Source{cfg: cfg}
}

func (s *Source) Name() events.Layer { return events.LayerClipboard }

// Available reports whether the system clipboard can be read. The
// platform file provides the real probe and read implementation.
func (s *Source) Available() (bool, string) { return platformAvailable() }

func (s *Source) Start(ctx context.Context, out chan<- events.RawEvent) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go s.pollLoop(ctx, out)
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
	s.enabled.Store(false)
}

func (s *Source) Enabled() bool { return s.enabled.Load() }

func (s *Source) pollLoop(ctx context.Context, out chan<- events.RawEvent) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			changeCount, content, err := platformReadClipboard()
			if err != nil {
				continue // SourceTransient
			}
			if content == "" {
				continue
			}

			s.mu.Lock()
			countChanged := changeCount != s.lastChangeCnt
			contentChanged := content != s.lastContent
			if countChanged {
				s.lastChangeCnt = changeCount
			}
			if contentChanged {
				s.lastContent = content
			}
			s.mu.Unlock()

			// emit only on change-count increment AND content inequality:
			// re-copying identical content bumps the count but is a
			// duplicate, never emitted
			if !countChanged || !contentChanged {
				continue
			}

			ev := s.buildEvent(content)
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *Source) buildEvent(content string) events.RawEvent {
	full := len([]rune(content))
	truncated := false
	text := content
	if full > s.cfg.MaxChars {
		r := []rune(content)
		text = string(r[:s.cfg.MaxChars])
		truncated = true
	}

	payload := events.ClipboardPayload{
		Content:       text,
		ContentType:   enrich.ClassifyContentType(text),
		ContentLength: full,
		Truncated:     truncated,
		ContainsURL:   urlRe.MatchString(content),
		ContainsEmail: emailRe.MatchString(content),
		WordCount:     len(strings.Fields(content)),
	}

	return events.RawEvent{
		Timestamp: time.Now(),
		Layer:     events.LayerClipboard,
		Kind:      events.KindClipboardChange,
		Payload:   payload,
	}
}
