package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"

	"github.com/tempoflow/tempo/events"
)

// defaultChromeOffset is the platform-typical fallback browser-chrome
// height (toolbar + tab strip) used when the dynamic outerHeight-
// innerHeight measurement fails (spec.md §9 Open Question #2). The JS
// measurement below is the common path on every platform; this constant
// is only the fallback.
const defaultChromeOffset = 85.0

// clickNudgeOffsets are the small pixel deltas tried, in order, when the
// first elementFromPoint probe misses (spec.md §4.1's "6-offset nudge
// probe").
var clickNudgeOffsets = []events.Point{
	{X: 0, Y: 0}, {X: 1, Y: 0}, {X: -1, Y: 0},
	{X: 0, Y: 1}, {X: 0, Y: -1}, {X: 2, Y: 2},
}

// pageProbe polls one open tab for url_change, scroll, and text_selection
// events, and answers on-demand dom_click / content_snapshot queries.
// Grounded on domwatch/internal/observer.Observer's per-page lifecycle,
// simplified from full DOM mutation tracking to the five probe kinds
// spec.md §4.1 names.
type pageProbe struct {
	page *rod.Page
	cfg  Config
	out  chan<- events.RawEvent

	tabIndex    int
	tabCount    atomic.Int64
	windowIndex int

	mu          sync.Mutex
	lastURL     string
	lastTabCnt  int
	lastScrollY float64

	cancel context.CancelFunc
}

func newPageProbe(page *rod.Page, tabIndex, tabCount int, cfg Config, out chan<- events.RawEvent) *pageProbe {
	p := &pageProbe{page: page, cfg: cfg, out: out, tabIndex: tabIndex}
	p.tabCount.Store(int64(tabCount))
	return p
}

func (p *pageProbe) setTabCount(n int) { p.tabCount.Store(int64(n)) }

func (p *pageProbe) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	urlTicker := time.NewTicker(p.cfg.URLPollInterval)
	scrollTicker := time.NewTicker(p.cfg.ScrollPollHz)
	selTicker := time.NewTicker(p.cfg.SelectionPollHz)
	defer urlTicker.Stop()
	defer scrollTicker.Stop()
	defer selTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-urlTicker.C:
			p.pollURL(ctx)
		case <-scrollTicker.C:
			p.pollScroll(ctx)
		case <-selTicker.C:
			p.pollSelection(ctx)
		}
	}
}

func (p *pageProbe) stop() {
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *pageProbe) evalCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}

func (p *pageProbe) pollURL(ctx context.Context) {
	evCtx, cancel := p.evalCtx(ctx, p.cfg.JSTimeout)
	defer cancel()

	info, err := p.page.Context(evCtx).Info()
	if err != nil {
		return // EnrichmentTimeout / SourceTransient
	}

	tabCount := int(p.tabCount.Load())

	p.mu.Lock()
	lastURL, lastCount := p.lastURL, p.lastTabCnt
	p.lastURL = info.URL
	p.lastTabCnt = tabCount
	p.mu.Unlock()

	if info.URL == lastURL && tabCount == lastCount {
		return
	}

	changeType := events.ChangeNavigation
	switch {
	case tabCount > lastCount:
		changeType = events.ChangeNewTab
	case info.URL != lastURL && lastURL != "":
		changeType = events.ChangeTabSwitch
	}

	ev := events.RawEvent{
		Timestamp: time.Now(),
		Layer:     events.LayerBrowser,
		Kind:      events.KindURLChange,
		Context:   events.Context{ActiveURL: info.URL},
		Payload: events.URLChangePayload{
			URL:         info.URL,
			Title:       info.Title,
			TabIndex:    p.tabIndex,
			WindowIndex: p.windowIndex,
			TabCount:    tabCount,
			ChangeType:  changeType,
		},
	}
	p.send(ctx, ev)
}

func (p *pageProbe) pollScroll(ctx context.Context) {
	evCtx, cancel := p.evalCtx(ctx, p.cfg.JSTimeout)
	defer cancel()

	res, err := p.page.Context(evCtx).Eval(`() => JSON.stringify(window.scrollY || 0)`)
	if err != nil {
		return
	}
	var scrollY float64
	if err := json.Unmarshal([]byte(res.Value.Str()), &scrollY); err != nil || scrollY <= 0 {
		return
	}

	p.mu.Lock()
	last := p.lastScrollY
	p.lastScrollY = scrollY
	p.mu.Unlock()

	direction := events.ScrollDown
	if scrollY < last {
		direction = events.ScrollUp
	}

	p.send(ctx, events.RawEvent{
		Timestamp: time.Now(),
		Layer:     events.LayerBrowser,
		Kind:      events.KindScroll,
		Payload:   events.ScrollPayload{ScrollY: scrollY, Direction: direction},
	})
}

func (p *pageProbe) pollSelection(ctx context.Context) {
	evCtx, cancel := p.evalCtx(ctx, p.cfg.JSTimeout)
	defer cancel()

	res, err := p.page.Context(evCtx).Eval(`() => (window.getSelection() || "").toString()`)
	if err != nil {
		return
	}
	text := res.Value.Str()
	if text == "" {
		return
	}
	if len([]rune(text)) > 500 {
		text = string([]rune(text)[:500])
	}

	p.send(ctx, events.RawEvent{
		Timestamp: time.Now(),
		Layer:     events.LayerBrowser,
		Kind:      events.KindTextSelection,
		Payload:   events.SelectionPayload{Text: text},
	})
}

func (p *pageProbe) send(ctx context.Context, ev events.RawEvent) {
	select {
	case p.out <- ev:
	case <-ctx.Done():
	}
}

// chromeOffset measures the browser chrome height dynamically as
// outerHeight - innerHeight + small padding (spec.md §4.1). Falls back to
// defaultChromeOffset if the measurement fails. The measurement is a
// page-side JS evaluation over CDP and runs the same way on every
// platform; there is no per-platform branch.
func (p *pageProbe) chromeOffset(ctx context.Context) float64 {
	evCtx, cancel := p.evalCtx(ctx, p.cfg.JSTimeout)
	defer cancel()

	res, err := p.page.Context(evCtx).Eval(`() => JSON.stringify((window.outerHeight - window.innerHeight) + 4)`)
	if err != nil {
		return defaultChromeOffset
	}
	var offset float64
	if err := json.Unmarshal([]byte(res.Value.Str()), &offset); err != nil || offset <= 0 {
		return defaultChromeOffset
	}
	return offset
}

// clickAt resolves a screen-space pointer-down into an enriched WebTarget
// by subtracting the measured chrome offset and querying the DOM at the
// resulting page-relative point, nudging through clickNudgeOffsets if the
// first hit misses (spec.md §4.1).
func (p *pageProbe) clickAt(ctx context.Context, screenPt events.Point) (events.WebTarget, bool) {
	offset := p.chromeOffset(ctx)
	base := events.Point{X: screenPt.X, Y: screenPt.Y - offset}

	for _, nudge := range clickNudgeOffsets {
		pt := events.Point{X: base.X + nudge.X, Y: base.Y + nudge.Y}
		target, ok := p.queryElementAt(ctx, pt)
		if ok {
			return target, true
		}
	}
	return events.WebTarget{}, false
}

func (p *pageProbe) queryElementAt(ctx context.Context, pt events.Point) (events.WebTarget, bool) {
	evCtx, cancel := p.evalCtx(ctx, p.cfg.JSTimeout)
	defer cancel()

	script := fmt.Sprintf(`() => {
		const el = document.elementFromPoint(%f, %f);
		if (!el || el === document.body || el === document.documentElement) return JSON.stringify(null);
		const rect = el.getBoundingClientRect();
		return JSON.stringify({
			tag: el.tagName.toLowerCase(),
			text: (el.innerText || el.textContent || "").trim().slice(0, 200),
			href: el.getAttribute("href") || "",
			ariaLabel: el.getAttribute("aria-label") || "",
			id: el.id || "",
			classes: el.className && typeof el.className === "string" ? el.className.split(/\s+/).filter(Boolean) : [],
			isButton: el.tagName === "BUTTON" || el.getAttribute("role") === "button",
			isLink: el.tagName === "A",
			isFormElement: ["INPUT","SELECT","TEXTAREA"].includes(el.tagName),
			width: rect.width,
			height: rect.height,
		});
	}`, pt.X, pt.Y)

	res, err := p.page.Context(evCtx).Eval(script)
	if err != nil {
		return events.WebTarget{}, false
	}

	var hit struct {
		Tag           string   `json:"tag"`
		Text          string   `json:"text"`
		Href          string   `json:"href"`
		AriaLabel     string   `json:"ariaLabel"`
		ID            string   `json:"id"`
		Classes       []string `json:"classes"`
		IsButton      bool     `json:"isButton"`
		IsLink        bool     `json:"isLink"`
		IsFormElement bool     `json:"isFormElement"`
		Width         float64  `json:"width"`
		Height        float64  `json:"height"`
	}
	if err := json.Unmarshal([]byte(res.Value.Str()), &hit); err != nil {
		return events.WebTarget{}, false
	}
	if hit.Width == 0 && hit.Height == 0 {
		return events.WebTarget{}, false
	}

	info, _ := p.page.Info()
	url, title := "", ""
	if info != nil {
		url, title = info.URL, info.Title
	}

	return events.WebTarget{
		URL:              url,
		Title:            title,
		Tag:              hit.Tag,
		Selector:         buildSelector(hit.Tag, hit.ID, hit.Classes),
		Text:             hit.Text,
		Href:             hit.Href,
		AriaLabel:        hit.AriaLabel,
		ID:               hit.ID,
		Classes:          hit.Classes,
		IsButton:         hit.IsButton,
		IsLink:           hit.IsLink,
		IsFormElement:    hit.IsFormElement,
		AppearsClickable: hit.IsButton || hit.IsLink || hit.IsFormElement || hit.Href != "",
	}, true
}

func buildSelector(tag, id string, classes []string) string {
	if id != "" {
		return tag + "#" + id
	}
	if len(classes) > 0 {
		return tag + "." + classes[0]
	}
	return tag
}

// snapshot extracts this page's current document.body.outerHTML for
// enrich.BuildWebPreview to reduce to a <=2KiB preview.
func (p *pageProbe) snapshot(ctx context.Context) (string, string, error) {
	evCtx, cancel := p.evalCtx(ctx, p.cfg.JSTimeout)
	defer cancel()

	res, err := p.page.Context(evCtx).Eval(`() => document.body ? document.body.outerHTML : ""`)
	if err != nil {
		return "", "", fmt.Errorf("browser: snapshot eval: %w", err)
	}

	info, _ := p.page.Info()
	url := ""
	if info != nil {
		url = info.URL
	}
	return res.Value.Str(), url, nil
}
