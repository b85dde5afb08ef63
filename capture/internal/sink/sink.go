// Package sink defines optional output backends for capture's raw event
// stream, adapted from domwatch/internal/sink's Sink/Router/Stdout/
// Callback split. domwatch fans mutations out to stdout/webhook/NATS/
// in-process-callback sinks from a monorepo serving several consumer
// processes; tempo's only real consumer is its own in-process session
// pipeline (capture.Session.Events()), so this package is trimmed to
// the two sink kinds that have an actual caller here: a debug stdout
// sink for `tempo start`'s local development flag, and a callback sink
// for the host UI spec.md §1 says the core is "coordinated with" to
// observe raw events without a second channel hop.
package sink

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/tempoflow/tempo/events"
)

// Sink receives one raw event at a time.
type Sink interface {
	Send(ctx context.Context, e events.RawEvent) error
	Close() error
}

// Stdout writes each raw event as a JSON line to w (os.Stdout if nil).
// Grounded on domwatch/internal/sink/stdout.go's JSON-lines encoder.
type Stdout struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewStdout creates a Stdout sink.
func NewStdout(w io.Writer) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{enc: json.NewEncoder(w)}
}

func (s *Stdout) Send(_ context.Context, e events.RawEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(e)
}

func (s *Stdout) Close() error { return nil }

// RawEventFunc is called for each raw event delivered to a Callback sink.
type RawEventFunc func(ctx context.Context, e events.RawEvent) error

// Callback delivers raw events via a Go function call, zero
// serialization — the in-process path a host UI embedding tempo as a
// library uses instead of polling GetStatus or re-deriving state from
// Export. Grounded on domwatch/internal/sink/callback.go.
type Callback struct {
	fn RawEventFunc
}

// NewCallback creates a Callback sink. fn may not be nil.
func NewCallback(fn RawEventFunc) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Send(ctx context.Context, e events.RawEvent) error {
	return c.fn(ctx, e)
}

func (c *Callback) Close() error { return nil }

// Router fans raw events out to every registered sink. One sink's error
// is logged and does not stop delivery to the others, matching
// domwatch/internal/sink/router.go's fan-out-and-log-first-error shape.
type Router struct {
	mu     sync.RWMutex
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates an empty Router. logger may be nil.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{logger: logger}
}

// Add registers s with the router.
func (r *Router) Add(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, s)
}

// Len reports how many sinks are registered.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sinks)
}

func (r *Router) Send(ctx context.Context, e events.RawEvent) {
	r.mu.RLock()
	sinks := r.sinks
	r.mu.RUnlock()
	for _, s := range sinks {
		if err := s.Send(ctx, e); err != nil {
			r.logger.Warn("tempo: sink: send failed", "error", err)
		}
	}
}

func (r *Router) Close() error {
	r.mu.RLock()
	sinks := r.sinks
	r.mu.RUnlock()
	var firstErr error
	for _, s := range sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
