// Package accessibility is the on-demand UI-element inspector (C1,
// spec.md §4.1). It is called synchronously by the enricher (C3) on
// pointer-down events outside a browser window. Permission denial or a
// timeout degrades the result to {role: unknown, confidence: 0.1} rather
// than failing the surrounding event — the inspector returns no error at
// all; denial, a failed lookup, a timeout and context cancellation all
// yield the degraded target.
package accessibility

import (
	"context"
	"time"

	"github.com/tempoflow/tempo/events"
)

// Config tunes the inspector's tree walk.
type Config struct {
	Timeout      time.Duration // default 3s, spec.md §5 hard timeout
	MaxAncestors int           // default 3
	MaxSiblings  int           // default 20
	MaxTreeDepth int           // default 40, recursion guard
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 3 * time.Second
	}
	if c.MaxAncestors <= 0 {
		c.MaxAncestors = 3
	}
	if c.MaxSiblings <= 0 {
		c.MaxSiblings = 20
	}
	if c.MaxTreeDepth <= 0 {
		c.MaxTreeDepth = 40
	}
}

// Inspector queries the platform accessibility tree for the element under
// a screen point.
type Inspector struct {
	cfg Config
}

// New creates an Inspector.
func New(cfg Config) *Inspector {
	cfg.defaults()
	return &Inspector{cfg: cfg}
}

// Available reports whether the accessibility API is reachable (macOS:
// AXIsProcessTrusted; Linux: AT-SPI bus reachable; Windows: UI Automation
// COM available). The platform file provides the real probe.
func (i *Inspector) Available() (bool, string) { return platformAvailable() }

// degraded is the fallback NativeTarget for permission denial or timeout,
// per spec.md §4.1: "Permission denial must degrade the element to
// role=unknown, confidence=0.1, not fail the pipeline."
var degraded = events.NativeTarget{
	Role:         "unknown",
	SemanticType: events.SemanticUnknown,
	Confidence:   0.1,
}

// ElementAt returns the UI element at a screen point, with its role,
// label, identifier, value, enabled/focused flags, and up to
// Config.MaxAncestors ancestor texts plus Config.MaxSiblings sibling
// texts for context. On permission denial, a failed lookup, timeout or
// context cancellation it returns the degraded target (the method has no
// error result) — callers attach it to the ClickTarget unenriched rather
// than dropping the event.
func (i *Inspector) ElementAt(ctx context.Context, pt events.Point) events.NativeTarget {
	ok, _ := i.Available()
	if !ok {
		return degraded
	}

	ctx, cancel := context.WithTimeout(ctx, i.cfg.Timeout)
	defer cancel()

	type result struct {
		target events.NativeTarget
		ok     bool
	}
	resultCh := make(chan result, 1)
	go func() {
		target, ok := platformElementAt(pt, i.cfg.MaxAncestors, i.cfg.MaxSiblings, i.cfg.MaxTreeDepth)
		resultCh <- result{target, ok}
	}()

	select {
	case r := <-resultCh:
		if !r.ok {
			return degraded
		}
		return r.target
	case <-ctx.Done():
		return degraded // EnrichmentTimeout, spec.md §7
	}
}
