package session

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tempoflow/tempo/buffer"
	"github.com/tempoflow/tempo/capture/rawlog"
	"github.com/tempoflow/tempo/dbopen"
	"github.com/tempoflow/tempo/enrich"
	"github.com/tempoflow/tempo/events"
	"github.com/tempoflow/tempo/idgen"
	"github.com/tempoflow/tempo/optimize"
	"github.com/tempoflow/tempo/summarizer"
	"github.com/tempoflow/tempo/summarizer/llm"
	"github.com/tempoflow/tempo/summarizer/store"
)

// intervalMinutesDefault mirrors summarizer.SchedulerConfig's default
// IntervalDuration (15 minutes, spec.md §4.6) for the total_flow_minutes
// aggregate, which counts whole qualifying intervals rather than reading
// the scheduler's live configuration back out.
const intervalMinutesDefault = 15

// pipelineState holds the small bits of cross-event state runPipeline
// needs that don't belong to any one sub-component: whether capture
// emission is currently frozen (spec.md §6 pause_session), the most
// recently observed app/window context for backfilling events that don't
// carry their own (clipboard, scroll, selection, snapshot), and the
// position each raw event will occupy in the buffer's next flush.
type pipelineState struct {
	mu     sync.Mutex
	paused bool
	ctx    events.Context
	rawIdx int
}

func (p *pipelineState) init() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
	p.ctx = events.Context{}
	p.rawIdx = 0
}

func (p *pipelineState) setPaused(v bool) {
	p.mu.Lock()
	p.paused = v
	p.mu.Unlock()
}

func (p *pipelineState) isPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *pipelineState) setContext(c events.Context) {
	p.mu.Lock()
	p.ctx = c
	p.mu.Unlock()
}

func (p *pipelineState) context() events.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctx
}

// nextIndex returns the position the next raw event handed to the
// batcher will occupy within the buffer's current (not yet flushed)
// slice, so enrichment candidates can reference it via
// buffer.Enriched.RawIndex consistently with Buffer.Drain()'s append
// order (the arena-and-index pattern, spec.md §5).
func (p *pipelineState) nextIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.rawIdx
	p.rawIdx++
	return idx
}

func (p *pipelineState) resetIndex() {
	p.mu.Lock()
	p.rawIdx = 0
	p.mu.Unlock()
}

// lastIndex returns the index most recently handed out by nextIndex,
// without consuming a new one — for callbacks that reference an
// already-buffered raw event rather than one of their own.
func (p *pipelineState) lastIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rawIdx == 0 {
		return 0
	}
	return p.rawIdx - 1
}

// summaryState accumulates every batch's AI and raw events between C6
// interval flushes. It exists because buffer.Buffer.Drain empties on
// every ~20s batch flush (spec.md §4.4), while an interval summary
// spans many batches (spec.md §4.6) — so the session orchestrator, not
// the buffer, is what remembers a window's contents across flushes.
type summaryState struct {
	mu  sync.Mutex
	ai  []events.AIEvent
	raw []events.RawEvent
}

func (s *summaryState) init() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ai = nil
	s.raw = nil
}

// add appends one flushed batch's events, rebasing the batch's raw-event
// index ranges onto the accumulator's own growing raw slice.
func (s *summaryState) add(batch events.Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	base := len(s.raw)
	s.raw = append(s.raw, batch.RawEvents...)
	for _, ev := range batch.AIEvents {
		ev.RawRefs.Start += base
		ev.RawRefs.End += base
		s.ai = append(s.ai, ev)
	}
}

func (s *summaryState) drain() ([]events.AIEvent, []events.RawEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ai, raw := s.ai, s.raw
	s.ai, s.raw = nil, nil
	return ai, raw
}

// runPipeline is the single-writer consumer loop for C2-C4: it reads raw
// events off the capture fan-in channel and drives the coalescer's and
// batcher's timers, matching the select-over-channel-plus-timers shape
// buffer.Buffer's own doc comment is grounded on
// (domwatch/internal/observer.go's loop).
func (s *Session) runPipeline(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-s.capture.Events():
			if !ok {
				return
			}
			s.handleRaw(ctx, raw)
		case <-s.coalescer.TimerC():
			s.coalescer.OnTimer()
		case <-s.batcher.TimerC():
			s.batcher.OnTimer()
		}
	}
}

// handleRaw routes one raw event into the raw log, the buffer/batcher,
// and — per its Kind — into the coalescer or a semantic-enrichment
// candidate for C4's grouping pass (spec.md §4.1-§4.4). Paused sessions
// drop every event here rather than buffering them, matching
// pause_session's "capture emission is frozen" contract (spec.md §6).
func (s *Session) handleRaw(ctx context.Context, raw events.RawEvent) {
	if s.pipe.isPaused() {
		return
	}

	s.mu.Lock()
	s.eventCount++
	s.mu.Unlock()

	s.rawLog.RecordAsync(s.sessionID, raw)

	if raw.Kind == events.KindAppFocus {
		if fp, ok := raw.Payload.(events.AppFocusPayload); ok {
			fp.AIAppContext = enrich.ClassifyApp(fp.AppName)
			raw.Payload = fp
			s.pipe.setContext(events.Context{ActiveApp: fp.AppName, ActiveWindow: fp.WindowTitle})
		}
	} else if raw.Context == (events.Context{}) {
		raw.Context = s.pipe.context()
	}

	idx := s.pipe.nextIndex()
	s.batcher.AddRaw(raw)

	switch raw.Kind {
	case events.KindKeyDown:
		if kp, ok := raw.Payload.(events.KeyPayload); ok {
			s.coalescer.Key(kp, raw.Context.ActiveApp, raw.Context.ActiveWindow, raw.Timestamp)
		}
	case events.KindMouseDown, events.KindDOMClick:
		s.enrichClick(ctx, raw, idx)
	case events.KindClipboardChange:
		if cp, ok := raw.Payload.(events.ClipboardPayload); ok {
			ann := enrich.AnnotateContent(cp.Content)
			s.batcher.AddCandidate(buffer.Enriched{
				RawIndex:   idx,
				Kind:       events.AIEventClipboard,
				Annotation: &ann,
				Clip: &events.ClipboardEvent{
					Content:       cp.Content,
					ContentType:   cp.ContentType,
					ContentLength: cp.ContentLength,
					Truncated:     cp.Truncated,
					ContainsURL:   cp.ContainsURL,
					ContainsEmail: cp.ContainsEmail,
					WordCount:     cp.WordCount,
				},
			})
		}
	case events.KindURLChange:
		if up, ok := raw.Payload.(events.URLChangePayload); ok {
			s.batcher.AddCandidate(buffer.Enriched{
				RawIndex: idx,
				Kind:     events.AIEventPageView,
				PageView: &events.PageViewEvent{
					URL:         up.URL,
					Title:       up.Title,
					TabIndex:    up.TabIndex,
					WindowIndex: up.WindowIndex,
					TabCount:    up.TabCount,
					ChangeType:  up.ChangeType,
				},
			})
		}
	case events.KindScroll:
		s.batcher.AddCandidate(buffer.Enriched{RawIndex: idx, Kind: events.AIEventScroll})
	case events.KindTextSelection:
		s.batcher.AddCandidate(buffer.Enriched{RawIndex: idx, Kind: events.AIEventSelection})
	case events.KindContentSnapshot:
		if sp, ok := raw.Payload.(events.ContentSnapshotPayload); ok {
			s.batcher.AddCandidate(buffer.Enriched{
				RawIndex: idx,
				Kind:     events.AIEventSnapshot,
				Snapshot: &events.ContentSnapshot{
					App:          raw.Context.ActiveApp,
					WindowTitle:  raw.Context.ActiveWindow,
					IsWeb:        sp.IsWeb,
					URL:          sp.URL,
					Preview:      sp.Preview,
					WordCount:    sp.WordCount,
					ElementCount: sp.ElementCount,
					SnapshotType: sp.SnapshotType,
				},
			})
		}
	}
}

// enrichClick resolves a mouse_down/dom_click raw event into a
// ClickTarget via enrich.EnrichClick, querying the browser bridge first
// and the accessibility inspector second (spec.md §4.3). The capture
// session's Accessibility()/Browser() accessors may return nil when
// those sources are disabled; wrapping only a non-nil concrete pointer
// into the interface keeps a disabled source's nil from turning into a
// non-nil typed-nil interface.
func (s *Session) enrichClick(ctx context.Context, raw events.RawEvent, idx int) {
	mp, ok := raw.Payload.(events.MousePayload)
	if !ok {
		return
	}

	var browserBridge enrich.BrowserBridge
	if br := s.capture.Browser(); br != nil {
		browserBridge = br
	}
	var access enrich.AccessibilityInspector
	if insp := s.capture.Accessibility(); insp != nil {
		access = insp
	}

	target := enrich.EnrichClick(ctx, browserBridge, access, mp.Coordinates, raw.Context.ActiveApp, raw.Context.ActiveWindow)
	s.batcher.AddCandidate(buffer.Enriched{
		RawIndex: idx,
		Kind:     events.AIEventClick,
		Click:    &target,
	})
}

// onTextInput is the coalescer's flush callback (C2, spec.md §4.2): it
// re-threads the completed TextInputEvent back into the batcher as an
// AI-event candidate. It has no single raw event to index against —
// the text spans the run of key_down events already appended to the
// buffer — so it's recorded against the most recently buffered raw event
// (pipelineState.lastIndex).
func (s *Session) onTextInput(evt events.TextInputEvent) {
	idx := s.pipe.lastIndex()
	ann := enrich.AnnotateContent(evt.Text)
	s.batcher.AddCandidate(buffer.Enriched{
		RawIndex:   idx,
		Kind:       events.AIEventKeystroke,
		Text:       &evt,
		Annotation: &ann,
	})
}

// onFlush is the batcher's flush callback (C4, spec.md §4.4): it groups
// this window's enrichment candidates into AI events, resolves each
// one's object via the batcher's object-inference cache, runs the token
// optimizer (C5, spec.md §4.5), persists the batch, and folds it into
// the in-progress interval accumulator for C6.
func (s *Session) onFlush(raw []events.RawEvent, candidates []buffer.Enriched, reason events.FlushReason) {
	s.pipe.resetIndex()

	ai := buffer.Group(raw, candidates)
	for i := range ai {
		var app, windowTitle, url string
		if ai[i].RawRefs.Start >= 0 && ai[i].RawRefs.Start < len(raw) {
			c := raw[ai[i].RawRefs.Start].Context
			app, windowTitle, url = c.ActiveApp, c.ActiveWindow, c.ActiveURL
		}
		ai[i].ObjectType, ai[i].ObjectID = s.objInfer.Infer(app, windowTitle, url)
	}

	startedAt := time.Now()
	if len(raw) > 0 {
		startedAt = raw[0].Timestamp
	}
	endedAt := time.Now()

	batch := buffer.BuildBatch(s.sessionID, idgen.Default, raw, ai, reason, startedAt, endedAt)
	batch = optimize.Optimize(s.cfg.Optimize, batch)

	s.mu.Lock()
	s.batchCount++
	s.lastBatchAt = endedAt
	s.mu.Unlock()

	s.sum.add(batch)

	if err := s.store.InsertBatch(context.Background(), batch); err != nil {
		s.logger.Error("tempo: session: persist batch", "error", err)
	}
}

// onInterval is the scheduler's flush callback (C6, spec.md §4.6): it
// drains the accumulated window, estimates per-app time from the raw
// app_focus events it contains, retrieves semantic and temporal memory,
// calls the downstream LLM (falling back to local synthesis on failure
// per spec.md §7 LLMFailure), embeds and persists the result.
func (s *Session) onInterval(ctx context.Context, index int, startedAt, endedAt time.Time) {
	// Ask C1 for a fresh content_snapshot at the interval boundary. The
	// event rides the normal capture channel, so it lands in the next
	// window's batches rather than the one being summarized now.
	s.capture.RequestSnapshot(ctx, events.SnapshotInterval)

	ai, raw := s.sum.drain()
	appUsage := computeAppTimeEstimate(raw, endedAt)

	durationMinutes := int(endedAt.Sub(startedAt).Minutes())
	if durationMinutes <= 0 {
		durationMinutes = 1
	}

	// The memory-recall query needs an embeddable text before
	// summary_text exists — spec.md §6's retrieval call happens ahead of
	// the LLM call, but embeddings are normally of the summary it
	// produces. A lightweight digest of the window's own shape (top
	// apps, event count) stands in as the query vector's source text;
	// the real summary_text is embedded separately once the LLM (or its
	// fallback) has produced it.
	digest := buildIntervalDigest(appUsage, len(ai))
	embedStart := time.Now()
	queryVec, err := s.embed.Embed(ctx, digest)
	s.metrics.RecordEmbed(time.Since(embedStart), err)
	if err != nil {
		s.logger.Warn("tempo: session: embed interval digest", "error", err)
	}

	similar, err := s.recall.Similar(ctx, s.userID, queryVec)
	if err != nil {
		s.logger.Warn("tempo: session: similarity recall", "error", err)
	}
	trend, err := s.recall.Trend(ctx, s.userID)
	if err != nil {
		s.logger.Warn("tempo: session: trend recall", "error", err)
	}

	simSummaries := make([]llm.SimilarSummary, 0, len(similar))
	for _, m := range similar {
		simSummaries = append(simSummaries, llm.SimilarSummary{
			SummaryText:       m.SummaryText,
			ProductivityScore: m.ProductivityScore,
			Similarity:        m.Similarity,
			CreatedAt:         m.CreatedAt.Format(time.RFC3339),
		})
	}

	var dailyGoal *string
	if s.dailyGoal != "" {
		dailyGoal = &s.dailyGoal
	}

	req := llm.Request{
		SessionID:            s.sessionID,
		UserID:               s.userID,
		IntervalIndex:        index,
		DurationMinutes:      durationMinutes,
		DailyGoal:            dailyGoal,
		Events:               ai,
		AppTimeEstimate:      appUsage,
		SimilarPastSummaries: simSummaries,
		HistoricalTrend:      trend,
	}

	llmStart := time.Now()
	resp, err := s.llm.Summarize(ctx, req)
	s.metrics.RecordLLM(time.Since(llmStart), err)
	aiGenerated := true
	if err != nil {
		s.logger.Warn("tempo: session: llm summarize failed, using local fallback", "error", err)
		resp = summarizer.Fallback(req)
		aiGenerated = false
	}

	embedStart = time.Now()
	summaryVec, err := s.embed.Embed(ctx, resp.SummaryText)
	s.metrics.RecordEmbed(time.Since(embedStart), err)
	if err != nil {
		s.logger.Warn("tempo: session: embed summary text", "error", err)
	}

	sum := events.IntervalSummary{
		IntervalIndex:       index,
		SessionID:           s.sessionID,
		UserID:              s.userID,
		StartedAt:           startedAt,
		EndedAt:             endedAt,
		ProductivityScore:   resp.ProductivityScore,
		SummaryText:         resp.SummaryText,
		Insights:            resp.Insights,
		BreakRecommendation: resp.BreakRecommendation,
		AppUsage:            resp.AppUsage,
		EmbeddingVector:     summaryVec,
		MemoryType:          events.MemoryInterval,
		AIGenerated:         aiGenerated,
	}

	appContext := topAppName(appUsage)
	timeContext := endedAt.Format("Mon 15:00")
	if err := s.store.InsertSummary(ctx, sum, appContext, timeContext); err != nil {
		s.logger.Error("tempo: session: persist interval summary", "error", err)
	}

	s.mu.Lock()
	s.lastSummaryAt = endedAt
	s.mu.Unlock()
}

// computeAppTimeEstimate derives minutes-per-app from the interval's
// app_focus raw events, crediting each app the time until the next focus
// change (or, for the last one, until endedAt) — spec.md §4.6's
// app_time_estimate field.
func computeAppTimeEstimate(raw []events.RawEvent, endedAt time.Time) map[string]int {
	out := make(map[string]int)
	var lastApp string
	var lastAt time.Time
	have := false
	for _, ev := range raw {
		if ev.Kind != events.KindAppFocus {
			continue
		}
		fp, ok := ev.Payload.(events.AppFocusPayload)
		if !ok {
			continue
		}
		if have && lastApp != "" {
			out[lastApp] += int(ev.Timestamp.Sub(lastAt).Minutes())
		}
		lastApp, lastAt, have = fp.AppName, ev.Timestamp, true
	}
	if have && lastApp != "" {
		out[lastApp] += int(endedAt.Sub(lastAt).Minutes())
	}
	return out
}

func topAppName(appUsage map[string]int) string {
	var best string
	var bestMinutes int
	for app, minutes := range appUsage {
		if minutes > bestMinutes {
			best, bestMinutes = app, minutes
		}
	}
	return best
}

func buildIntervalDigest(appUsage map[string]int, aiCount int) string {
	type kv struct {
		app string
		min int
	}
	kvs := make([]kv, 0, len(appUsage))
	for app, minutes := range appUsage {
		kvs = append(kvs, kv{app, minutes})
	}
	sort.Slice(kvs, func(i, j int) bool { return kvs[i].min > kvs[j].min })

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d events across %d apps", aiCount, len(kvs))
	for i, e := range kvs {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&sb, ", %s (%dm)", e.app, e.min)
	}
	return sb.String()
}

// aggregateFinal builds the closing FinalSessionSummary from every
// interval summary persisted for this session (spec.md §4.6 Final
// session summary).
func (s *Session) aggregateFinal(ctx context.Context) events.FinalSessionSummary {
	final := events.FinalSessionSummary{SessionID: s.sessionID, AppTimeTotals: map[string]int{}}

	summaries, err := s.store.SummariesForSession(ctx, s.sessionID)
	if err != nil {
		s.logger.Error("tempo: session: load summaries for final aggregate", "error", err)
		return final
	}
	if len(summaries) == 0 {
		return final
	}

	var scoreSum float64
	flowIntervals := 0
	for _, sum := range summaries {
		scoreSum += float64(sum.ProductivityScore)
		if sum.ProductivityScore >= 75 {
			flowIntervals++
		}
		for app, minutes := range sum.AppUsage {
			final.AppTimeTotals[app] += minutes
		}
	}
	final.AverageProductivity = scoreSum / float64(len(summaries))
	final.TotalFlowMinutes = flowIntervals * intervalMinutesDefault
	final.StarRating = starRating(final.AverageProductivity)

	if prevAvg, ok, err := s.store.PreviousSessionAverage(ctx, s.userID, s.sessionID); err != nil {
		s.logger.Warn("tempo: session: previous session average", "error", err)
	} else if ok {
		final.ImprovementPercentPoints = final.AverageProductivity - prevAvg
	}

	return final
}

func starRating(avg float64) int {
	switch {
	case avg >= 75:
		return 3
	case avg >= 50:
		return 2
	default:
		return 1
	}
}

// Export assembles export_session's full-fidelity dump for sessionID
// (spec.md §6), reading raw events back from the local raw-event log and
// AI events/optimization summaries/interval summaries back from the
// summarizer store. If no session is currently running, Export opens a
// short-lived connection to the same on-disk database rather than
// requiring a live Session.
func (s *Session) Export(ctx context.Context, sessionID string) (events.SessionExport, error) {
	s.mu.Lock()
	db := s.db
	rl := s.rawLog
	st := s.store
	s.mu.Unlock()

	if db == nil {
		dbPath := s.cfg.PersistenceDSN
		if dbPath == "" {
			dbPath = filepath.Join(s.cfg.DataDir, "tempo.db")
		}
		opened, err := dbopen.Open(dbPath, dbopen.WithSchema(store.Schema), dbopen.WithSchema(rawlog.Schema))
		if err != nil {
			return events.SessionExport{}, fmt.Errorf("session: export: open storage: %w", err)
		}
		defer opened.Close()
		st = store.NewStore(opened)
		rl = rawlog.New(opened, s.logger)
		defer rl.Close()
	}

	raw, err := rl.ForSession(ctx, sessionID)
	if err != nil {
		return events.SessionExport{}, fmt.Errorf("session: export: raw events: %w", err)
	}
	batches, err := st.BatchesForSession(ctx, sessionID)
	if err != nil {
		return events.SessionExport{}, fmt.Errorf("session: export: batches: %w", err)
	}
	summaries, err := st.SummariesForSession(ctx, sessionID)
	if err != nil {
		return events.SessionExport{}, fmt.Errorf("session: export: summaries: %w", err)
	}

	var ai []events.AIEvent
	opt := make([]events.OptimizationSummary, 0, len(batches))
	for _, b := range batches {
		ai = append(ai, b.AIEvents...)
		opt = append(opt, b.OptimizationSummary)
	}

	return events.SessionExport{
		SessionID:             sessionID,
		RawEvents:             raw,
		AIEvents:              ai,
		IntervalSummaries:     summaries,
		OptimizationSummaries: opt,
	}, nil
}
