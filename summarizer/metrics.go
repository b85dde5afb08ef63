package summarizer

import (
	"sync"
	"time"
)

// Recorder tracks per-interval LLM/embed timing and fallback rate for
// get_status(), trimmed from observability.MetricsManager's buffered
// async writer: get_status reports live rollups, not a queryable
// timeseries, so there is no SQLite-backed buffer/flush loop here, only
// the same mutex-guarded accumulate-then-read shape.
type Recorder struct {
	mu sync.Mutex

	intervalCount uint64
	fallbackCount uint64
	llmTotal      time.Duration
	llmFailures   uint64
	embedTotal    time.Duration
	embedFailures uint64
	embedCalls    uint64
	llmCalls      uint64
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordLLM tallies one onInterval's LLM call: its latency, whether it
// errored (triggering Fallback), and counts the interval itself.
func (r *Recorder) RecordLLM(d time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intervalCount++
	r.llmCalls++
	r.llmTotal += d
	if err != nil {
		r.llmFailures++
		r.fallbackCount++
	}
}

// RecordEmbed tallies one embed.Embed call's latency and outcome.
func (r *Recorder) RecordEmbed(d time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embedCalls++
	r.embedTotal += d
	if err != nil {
		r.embedFailures++
	}
}

// Snapshot is the point-in-time rollup get_status() surfaces.
type Snapshot struct {
	Intervals         uint64        `json:"intervals"`
	FallbackCount     uint64        `json:"fallback_count"`
	FallbackRate      float64       `json:"fallback_rate"`
	AvgLLMLatency     time.Duration `json:"avg_llm_latency_ms"`
	AvgEmbedLatency   time.Duration `json:"avg_embed_latency_ms"`
	EmbedFailureCount uint64        `json:"embed_failure_count"`
}

// Snapshot computes the current rollup. Safe to call concurrently with
// RecordLLM/RecordEmbed.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Snapshot{
		Intervals:         r.intervalCount,
		FallbackCount:     r.fallbackCount,
		EmbedFailureCount: r.embedFailures,
	}
	if r.intervalCount > 0 {
		s.FallbackRate = float64(r.fallbackCount) / float64(r.intervalCount)
	}
	if r.llmCalls > 0 {
		s.AvgLLMLatency = r.llmTotal / time.Duration(r.llmCalls)
	}
	if r.embedCalls > 0 {
		s.AvgEmbedLatency = r.embedTotal / time.Duration(r.embedCalls)
	}
	return s
}
