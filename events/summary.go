package events

import "time"

// TrendDirection describes how productivity is moving across recent weeks.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// Trend is the historical_productivity_trend field of the summarizer's
// LLM prompt: direction plus magnitude of the comparison between the last
// 3 weekly-average productivity scores and older ones.
type Trend struct {
	Direction TrendDirection `json:"direction"`
	Magnitude float64        `json:"magnitude"`
}

// MemoryType classifies an IntervalSummary row for retrieval purposes.
type MemoryType string

const (
	MemoryInterval   MemoryType = "interval"
	MemoryBreak      MemoryType = "break"
	MemorySessionEnd MemoryType = "session_end"
	MemoryPattern    MemoryType = "pattern"
)

// IntervalSummary is the product of the summarizer: either an LLM-composed
// productivity artifact for one 15-minute interval, or — on repeated LLM
// failure — the deterministic fallback built by summarizer/fallback.go.
type IntervalSummary struct {
	IntervalIndex       int            `json:"interval_index"`
	SessionID           string         `json:"session_id"`
	UserID              string         `json:"user_id"`
	StartedAt           time.Time      `json:"started_at"`
	EndedAt             time.Time      `json:"ended_at"`
	ProductivityScore   int            `json:"productivity_score"` // 0-100
	SummaryText         string         `json:"summary_text"`
	Insights            []string       `json:"insights"`
	BreakRecommendation string         `json:"break_recommendation,omitempty"`
	AppUsage            map[string]int `json:"app_usage"` // app -> minutes
	EmbeddingVector     []float32      `json:"-"`         // stored separately, not inlined
	MemoryType          MemoryType     `json:"memory_type"`
	AIGenerated         bool           `json:"ai_generated"`
}

// MemorySearchResult is one hit returned by summarizer/memory's similarity
// search, scoped to a single user_id.
type MemorySearchResult struct {
	SummaryText       string    `json:"summary_text"`
	ProductivityScore int       `json:"productivity_score"`
	CreatedAt         time.Time `json:"created_at"`
	Similarity        float64   `json:"similarity"`
	AppContext        string    `json:"app_context"`
	TimeContext       string    `json:"time_context"`
}

// SessionPhase is a state in the capture session's lifecycle.
type SessionPhase string

const (
	PhaseIdle     SessionPhase = "idle"
	PhaseStarting SessionPhase = "starting"
	PhaseRunning  SessionPhase = "running"
	PhasePaused   SessionPhase = "paused"
	PhaseStopping SessionPhase = "stopping"
	PhaseError    SessionPhase = "error"
)

// SessionState is the externally visible status of a capture session,
// returned by get_status.
type SessionState struct {
	SessionID      string       `json:"session_id"`
	Phase          SessionPhase `json:"phase"`
	StartedAt      time.Time    `json:"started_at"`
	EventCount     uint64       `json:"event_count"`
	BatchCount     uint64       `json:"batch_count"`
	LastBatchAt    time.Time    `json:"last_batch_at,omitempty"`
	LastSummaryAt  time.Time    `json:"last_summary_at,omitempty"`
	DisabledLayers []Layer      `json:"disabled_layers,omitempty"`
	LastError      string       `json:"last_error,omitempty"`

	// ActiveIntervalMinutes is the active (non-paused) time accumulated
	// in the current in-progress summarizer interval.
	ActiveIntervalMinutes float64 `json:"active_interval_minutes"`

	Intervals         uint64        `json:"intervals"`
	FallbackCount     uint64        `json:"fallback_count"`
	FallbackRate      float64       `json:"fallback_rate"`
	AvgLLMLatency     time.Duration `json:"avg_llm_latency_ms"`
	AvgEmbedLatency   time.Duration `json:"avg_embed_latency_ms"`
	EmbedFailureCount uint64        `json:"embed_failure_count"`
}

// FinalSessionSummary is the closing artifact emitted on session stop,
// aggregating every IntervalSummary produced during the session.
type FinalSessionSummary struct {
	SessionID                string         `json:"session_id"`
	AverageProductivity      float64        `json:"average_productivity"`
	TotalFlowMinutes         int            `json:"total_flow_minutes"`
	AppTimeTotals            map[string]int `json:"app_time_totals"`
	StarRating               int            `json:"star_rating"` // 1-3
	ImprovementPercentPoints float64        `json:"improvement_percent_points"`
}
