// Package memory retrieves prior IntervalSummary rows for a user, giving
// the LLM prompt both semantic recall (similarity search over stored
// embeddings) and temporal recall (what happened at this hour before).
//
// vecbridge wraps an ANN index (github.com/hazyhaar/horosvec) behind a
// small Service with Search/Insert/Stats methods; that library lives
// outside this ecosystem and isn't available here (see DESIGN.md), so
// Recall wraps summarizer/store's flat cosine-similarity scan instead,
// keeping vecbridge's thin-service-over-a-vector-backend shape.
package memory

import (
	"context"
	"time"

	"github.com/tempoflow/tempo/events"
	"github.com/tempoflow/tempo/summarizer/store"
)

// Config tunes retrieval. Defaults match spec.md §6: similarity threshold
// 0.7, top 5 matches, 28 days of temporal lookback, 21 days of trend
// history.
type Config struct {
	SimilarityThreshold float64
	TopK                int
	TemporalLookback    time.Duration
	TrendLookback       time.Duration
}

func (c *Config) defaults() {
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = 0.7
	}
	if c.TopK <= 0 {
		c.TopK = 5
	}
	if c.TemporalLookback <= 0 {
		c.TemporalLookback = 28 * 24 * time.Hour
	}
	if c.TrendLookback <= 0 {
		c.TrendLookback = 21 * 24 * time.Hour
	}
}

// Recall serves memory lookups backing the LLM prompt's
// similar_past_summaries and historical_productivity_trend fields.
type Recall struct {
	cfg   Config
	store *store.Store
}

// NewRecall wraps st with the given Config.
func NewRecall(st *store.Store, cfg Config) *Recall {
	cfg.defaults()
	return &Recall{cfg: cfg, store: st}
}

// Similar returns the top-K past summaries for userID whose embedding is
// similar to query, scoped strictly to userID.
func (r *Recall) Similar(ctx context.Context, userID string, query []float32) ([]events.MemorySearchResult, error) {
	if len(query) == 0 {
		return nil, nil
	}
	return r.store.SimilaritySearch(ctx, query, userID, r.cfg.SimilarityThreshold, r.cfg.TopK)
}

// AtThisHour returns summaries recorded in the same hour-of-day and
// day-of-week as at, within the configured temporal lookback window.
func (r *Recall) AtThisHour(ctx context.Context, userID string, at time.Time) ([]events.IntervalSummary, error) {
	daysBack := int(r.cfg.TemporalLookback / (24 * time.Hour))
	return r.store.FindByTimeContext(ctx, userID, at.Hour(), int(at.Weekday()), daysBack)
}

// Trend reports whether userID's productivity has been increasing,
// decreasing, or stable over the configured trend lookback window.
func (r *Recall) Trend(ctx context.Context, userID string) (events.Trend, error) {
	daysBack := int(r.cfg.TrendLookback / (24 * time.Hour))
	return r.store.AnalyzeTrend(ctx, userID, daysBack)
}
