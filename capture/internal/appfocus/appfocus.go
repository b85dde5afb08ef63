// Package appfocus polls the active application/window identity at >=1Hz
// and emits app_focus RawEvents on change, debouncing identical
// consecutive reads (spec.md §4.1). Grounded on the focus-monitor
// poll-loop-plus-Available()-probe pattern in the wider capture corpus.
package appfocus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tempoflow/tempo/events"
)

// Config tunes the poller.
type Config struct {
	// PollInterval must be <= 1s to satisfy the >=1Hz requirement.
	PollInterval time.Duration
}

func (c *Config) defaults() {
	if c.PollInterval <= 0 || c.PollInterval > time.Second {
		c.PollInterval = time.Second
	}
}

// Source implements capture.Source for application focus polling.
type Source struct {
	cfg Config

	mu         sync.Mutex
	cancel     context.CancelFunc
	lastApp    string
	lastWindow string
	enabled    atomic.Bool
}

// New creates an appfocus Source.
func New(cfg Config) *Source {
	cfg.defaults()
	return &Source{cfg: cfg}
}

func (s *Source) Name() events.Layer { return events.LayerAppFocus }

// Available reports whether the active-window API is usable. The
// platform file provides the real probe (Accessibility permission on
// macOS, X11/Wayland window-manager query on Linux, GetForegroundWindow
// on Windows).
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
			app, window, err := platformActiveWindow()
			if err != nil {
				continue // spec.md §7 SourceTransient: log at debug, retry next tick
			}

			s.mu.Lock()
			changed := app != s.lastApp || window != s.lastWindow
			if changed {
				s.lastApp, s.lastWindow = app, window
			}
			s.mu.Unlock()

			if !changed {
				continue
			}

			ev := events.RawEvent{
				Timestamp: time.Now(),
				Layer:     events.LayerAppFocus,
				Kind:      events.KindAppFocus,
				Context:   events.Context{ActiveApp: app, ActiveWindow: window},
				Payload:   events.AppFocusPayload{AppName: app, WindowTitle: window},
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}
