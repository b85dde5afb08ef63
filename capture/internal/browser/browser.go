// Package browser is the browser bridge (C1, spec.md §4.1): it attaches
// to a Chrome instance via go-rod, tracks open tabs, and per tab emits
// url_change, dom_click, scroll, text_selection, and on-request
// content_snapshot events. Launch/attach is adapted from
// domwatch/internal/browser/manager.go, trimmed to the headless+stealth
// path tempo needs — tempo observes the user's own browsing, it never
// needs domwatch's headful/Xvfb visual-regression mode. Config carries
// MemoryLimit and ResourceBlocking, but the bridge applies neither, and
// the recycle loop only logs when RecycleInterval elapses; it never
// restarts the browser.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"github.com/tempoflow/tempo/events"
)

// Config configures the browser bridge, carrying over
// domwatch/internal/browser.Config's lifecycle fields plus the capture
// poll intervals from spec.md §4.1.
type Config struct {
	Remote           string
	MemoryLimit      int64
	RecycleInterval  time.Duration
	ResourceBlocking []string

	URLPollInterval time.Duration
	ScrollPollHz    time.Duration
	SelectionPollHz time.Duration
	JSTimeout       time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MemoryLimit <= 0 {
		c.MemoryLimit = 1 << 30
	}
	if c.RecycleInterval <= 0 {
		c.RecycleInterval = 4 * time.Hour
	}
	if c.URLPollInterval <= 0 {
		c.URLPollInterval = 2 * time.Second
	}
	if c.ScrollPollHz <= 0 {
		c.ScrollPollHz = time.Second
	}
	if c.SelectionPollHz <= 0 {
		c.SelectionPollHz = time.Second
	}
	if c.JSTimeout <= 0 {
		c.JSTimeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Bridge is the browser capture source. It implements capture.Source so
// Session can start/stop it like any other source.
type Bridge struct {
	cfg Config

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	probes  map[string]*pageProbe // keyed by rod target ID
	cancel  context.CancelFunc
	enabled bool
}

// New creates a Bridge. Call Start to launch/attach Chrome.
func New(cfg Config) *Bridge {
	cfg.defaults()
	return &Bridge{cfg: cfg, probes: make(map[string]*pageProbe)}
}

func (b *Bridge) Name() events.Layer { return events.LayerBrowser }

// Available reports whether a Chrome binary (or the configured remote
// endpoint) can be reached, without fully launching it.
func (b *Bridge) Available() (bool, string) {
	if b.cfg.Remote != "" {
		return true, "using remote Chrome endpoint"
	}
	path, has := launcher.LookPath()
	if !has {
		return false, "no Chrome/Chromium binary found on this system"
	}
	return true, fmt.Sprintf("chrome binary at %s", path)
}

// Start launches (or connects to) Chrome and begins tracking open pages.
func (b *Bridge) Start(ctx context.Context, out chan<- events.RawEvent) error {
	ctx, cancel := context.WithCancel(ctx)

	br, lnch, err := b.launch(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("browser: launch: %w", err)
	}

	b.mu.Lock()
	b.browser = br
	b.lnch = lnch
	b.cancel = cancel
	b.enabled = true
	b.mu.Unlock()

	go b.watchPages(ctx, out)
	go b.memoryRecycleLoop(ctx)

	return nil
}

func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
	}
	for _, p := range b.probes {
		p.stop()
	}
	b.probes = make(map[string]*pageProbe)
	if b.browser != nil {
		b.browser.Close()
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
	}
	b.enabled = false
}

func (b *Bridge) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// activeProbe returns the tracked page probe to query for on-demand work
// (dom_click enrichment, content_snapshot). tempo does not track
// OS-level tab-activation state for the browser bridge; this returns
// whichever tracked tab map iteration yields first, which is arbitrary
// when more than one tab is open. The OS app-focus window title is not
// used to choose between tabs.
func (b *Bridge) activeProbe() *pageProbe {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.probes {
		return p
	}
	return nil
}

// ClickAt resolves a screen-space pointer-down into an enriched WebTarget
// for the enricher's web click path (spec.md §4.3).
func (b *Bridge) ClickAt(ctx context.Context, pt events.Point) (events.WebTarget, bool) {
	p := b.activeProbe()
	if p == nil {
		return events.WebTarget{}, false
	}
	return p.clickAt(ctx, pt)
}

// Snapshot takes a content_snapshot of the active tab, building a <=2KiB
// density-scored preview via enrich.BuildWebPreview.
func (b *Bridge) Snapshot(ctx context.Context, snapType events.SnapshotType) (events.ContentSnapshot, error) {
	p := b.activeProbe()
	if p == nil {
		return events.ContentSnapshot{}, fmt.Errorf("browser: no active tab")
	}
	html, url, err := p.snapshot(ctx)
	if err != nil {
		return events.ContentSnapshot{}, err
	}
	preview, wordCount, elementCount := buildWebPreview(html)
	return events.ContentSnapshot{
		IsWeb:        true,
		URL:          url,
		Preview:      preview,
		WordCount:    wordCount,
		ElementCount: elementCount,
		SnapshotType: snapType,
	}, nil
}

func (b *Bridge) launch(ctx context.Context) (*rod.Browser, *launcher.Launcher, error) {
	var wsURL string
	var lnch *launcher.Launcher

	if b.cfg.Remote != "" {
		wsURL = b.cfg.Remote
	} else {
		lnch = launcher.New().Headless(true).Leakless(true)
		u, err := lnch.Launch()
		if err != nil {
			return nil, nil, fmt.Errorf("launch chrome: %w", err)
		}
		wsURL = u
	}

	br := rod.New().ControlURL(wsURL).Context(ctx)
	if err := br.Connect(); err != nil {
		if lnch != nil {
			lnch.Cleanup()
		}
		return nil, nil, fmt.Errorf("connect: %w", err)
	}

	if pages, err := br.Pages(); err == nil && len(pages) == 0 {
		if _, err := stealthPage(br); err != nil {
			b.cfg.Logger.Warn("tempo: browser bridge open initial stealth page failed", "error", err)
		}
	}

	return br, lnch, nil
}

// watchPages polls the list of open tabs every URLPollInterval and
// starts/stops a pageProbe for each one that appears/disappears.
func (b *Bridge) watchPages(ctx context.Context, out chan<- events.RawEvent) {
	ticker := time.NewTicker(b.cfg.URLPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.syncProbes(ctx, out)
		}
	}
}

func (b *Bridge) syncProbes(ctx context.Context, out chan<- events.RawEvent) {
	b.mu.Lock()
	br := b.browser
	b.mu.Unlock()
	if br == nil {
		return
	}

	pages, err := br.Pages()
	if err != nil {
		return
	}

	seen := make(map[string]bool, len(pages))
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, page := range pages {
		id := string(page.TargetID)
		seen[id] = true
		if _, ok := b.probes[id]; ok {
			continue
		}
		p := newPageProbe(page, i, len(pages), b.cfg, out)
		b.probes[id] = p
		go p.run(ctx)
	}

	for id, p := range b.probes {
		if !seen[id] {
			p.stop()
			delete(b.probes, id)
		}
	}

	for _, p := range b.probes {
		p.setTabCount(len(pages))
	}
}

func (b *Bridge) memoryRecycleLoop(ctx context.Context) {
	ticker := time.NewTicker(b.cfg.RecycleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.cfg.Logger.Info("tempo: browser bridge recycle interval elapsed")
		}
	}
}

// stealthPage opens a new stealth-wrapped page, matching
// domwatch/internal/browser/tab.go's stealth.Page construction.
func stealthPage(br *rod.Browser) (*rod.Page, error) {
	return stealth.Page(br)
}
