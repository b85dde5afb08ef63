// Package store persists IntervalSummary, session, and AI-memory rows to
// SQLite. The thin *sql.DB wrapper shape, and declaring schema as inline
// "CREATE TABLE IF NOT EXISTS" string constants, is grounded on
// veille/internal/store/store.go and on how trace.Schema /
// observability's retention tables are declared in the teacher tree.
// dbopen supplies the pragmas (WAL, busy_timeout, foreign_keys).
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/tempoflow/tempo/events"
	"github.com/tempoflow/tempo/summarizer/embed"
)

// Schema creates the sessions, interval_summaries and batches tables if
// absent.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	ended_at INTEGER,
	daily_goal TEXT,
	average_productivity REAL,
	total_flow_minutes INTEGER,
	star_rating INTEGER
);

CREATE TABLE IF NOT EXISTS interval_summaries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	interval_index INTEGER NOT NULL,
	started_at INTEGER NOT NULL,
	ended_at INTEGER NOT NULL,
	productivity_score INTEGER NOT NULL,
	summary_text TEXT NOT NULL,
	insights_json TEXT NOT NULL,
	break_recommendation TEXT,
	app_usage_json TEXT NOT NULL,
	memory_type TEXT NOT NULL,
	ai_generated INTEGER NOT NULL,
	app_context TEXT,
	time_context TEXT,
	embedding BLOB,
	created_at INTEGER NOT NULL,
	UNIQUE(user_id, session_id, interval_index)
);
CREATE INDEX IF NOT EXISTS idx_summaries_user ON interval_summaries(user_id);
CREATE INDEX IF NOT EXISTS idx_summaries_user_created ON interval_summaries(user_id, created_at);

CREATE TABLE IF NOT EXISTS batches (
	batch_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	ended_at INTEGER NOT NULL,
	reason TEXT NOT NULL,
	ai_events_json TEXT NOT NULL,
	optimization_summary_json TEXT NOT NULL,
	raw_event_count INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_batches_session ON batches(session_id);
`

// Store wraps the session/summary/memory database.
type Store struct {
	db *sql.DB
}

// NewStore wraps db. Callers open db via dbopen so the right pragmas are
// applied.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init creates the schema if it doesn't exist.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

// InsertSession records a new session row.
func (s *Store) InsertSession(ctx context.Context, sessionID, userID string, startedAt time.Time, dailyGoal string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, user_id, started_at, daily_goal) VALUES (?, ?, ?, ?)`,
		sessionID, userID, startedAt.UnixMilli(), dailyGoal)
	if err != nil {
		return fmt.Errorf("tempo: store: insert session: %w", err)
	}
	return nil
}

// CloseSession records the final session aggregates at stop.
func (s *Store) CloseSession(ctx context.Context, sessionID string, endedAt time.Time, final events.FinalSessionSummary) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ?, average_productivity = ?, total_flow_minutes = ?, star_rating = ? WHERE session_id = ?`,
		endedAt.UnixMilli(), final.AverageProductivity, final.TotalFlowMinutes, final.StarRating, sessionID)
	if err != nil {
		return fmt.Errorf("tempo: store: close session: %w", err)
	}
	return nil
}

// InsertSummary persists one IntervalSummary row, keyed by
// (user_id, session_id, interval_index) per spec.md §6.
func (s *Store) InsertSummary(ctx context.Context, sum events.IntervalSummary, appContext, timeContext string) error {
	insightsJSON, err := json.Marshal(sum.Insights)
	if err != nil {
		return fmt.Errorf("tempo: store: marshal insights: %w", err)
	}
	appUsageJSON, err := json.Marshal(sum.AppUsage)
	if err != nil {
		return fmt.Errorf("tempo: store: marshal app usage: %w", err)
	}
	var blob []byte
	if len(sum.EmbeddingVector) > 0 {
		blob = embed.SerializeVector(sum.EmbeddingVector)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO interval_summaries
			(session_id, user_id, interval_index, started_at, ended_at, productivity_score,
			 summary_text, insights_json, break_recommendation, app_usage_json, memory_type,
			 ai_generated, app_context, time_context, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.SessionID, sum.UserID, sum.IntervalIndex, sum.StartedAt.UnixMilli(), sum.EndedAt.UnixMilli(),
		sum.ProductivityScore, sum.SummaryText, string(insightsJSON), sum.BreakRecommendation, string(appUsageJSON),
		string(sum.MemoryType), boolToInt(sum.AIGenerated), appContext, timeContext, blob, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("tempo: store: insert summary: %w", err)
	}
	return nil
}

// SimilaritySearch returns up to k rows for userID whose embedding's
// cosine similarity to query is at least threshold, sorted descending by
// similarity (spec.md §6's memory retrieval contract). Scoped strictly
// to userID, satisfying the cross-user isolation property in spec.md §8
// property 6 — the SQL WHERE clause never lets another user's rows past
// the database boundary, regardless of any application-layer bug.
func (s *Store) SimilaritySearch(ctx context.Context, query []float32, userID string, threshold float64, k int) ([]events.MemorySearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT summary_text, productivity_score, created_at, app_context, time_context, embedding
		FROM interval_summaries
		WHERE user_id = ? AND embedding IS NOT NULL`, userID)
	if err != nil {
		return nil, fmt.Errorf("tempo: store: similarity search query: %w", err)
	}
	defer rows.Close()

	type candidate struct {
		res events.MemorySearchResult
		sim float64
	}
	// queryNorm is computed once and reused across every row via
	// CosineSimilarityOptimized rather than recomputed per comparison —
	// worthwhile here since a user's interval_summaries table can run to
	// tens of thousands of rows scanned on every recall call.
	queryNorm := embed.CalculateNorm(query)
	var candidates []candidate
	for rows.Next() {
		var r events.MemorySearchResult
		var createdAtMs int64
		var blob []byte
		if err := rows.Scan(&r.SummaryText, &r.ProductivityScore, &createdAtMs, &r.AppContext, &r.TimeContext, &blob); err != nil {
			return nil, fmt.Errorf("tempo: store: scan similarity row: %w", err)
		}
		r.CreatedAt = time.UnixMilli(createdAtMs)
		vec := embed.DeserializeVector(blob)
		sim := embed.CosineSimilarityOptimized(query, vec, queryNorm, embed.CalculateNorm(vec))
		if sim < threshold {
			continue
		}
		r.Similarity = sim
		candidates = append(candidates, candidate{res: r, sim: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].sim > candidates[j].sim })
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]events.MemorySearchResult, len(candidates))
	for i, c := range candidates {
		out[i] = c.res
	}
	return out, nil
}

// FindByTimeContext returns summaries for userID recorded around the same
// hour and day-of-week within the last daysBack days, used to give the
// LLM prompt temporal (not just semantic) recall.
func (s *Store) FindByTimeContext(ctx context.Context, userID string, hour, dayOfWeek int, daysBack int) ([]events.IntervalSummary, error) {
	cutoff := time.Now().AddDate(0, 0, -daysBack).UnixMilli()
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, user_id, interval_index, started_at, ended_at, productivity_score, summary_text
		FROM interval_summaries
		WHERE user_id = ? AND created_at >= ?
		ORDER BY created_at DESC`, userID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("tempo: store: time context query: %w", err)
	}
	defer rows.Close()

	var out []events.IntervalSummary
	for rows.Next() {
		var sum events.IntervalSummary
		var startedMs, endedMs int64
		if err := rows.Scan(&sum.SessionID, &sum.UserID, &sum.IntervalIndex, &startedMs, &endedMs, &sum.ProductivityScore, &sum.SummaryText); err != nil {
			return nil, fmt.Errorf("tempo: store: scan time context row: %w", err)
		}
		sum.StartedAt = time.UnixMilli(startedMs)
		sum.EndedAt = time.UnixMilli(endedMs)
		if sum.StartedAt.Hour() == hour && int(sum.StartedAt.Weekday()) == dayOfWeek {
			out = append(out, sum)
		}
	}
	return out, rows.Err()
}

// AnalyzeTrend compares the last 3 weekly-average productivity scores to
// older ones, returning a direction and magnitude for the LLM prompt's
// historical_productivity_trend field (spec.md §6).
func (s *Store) AnalyzeTrend(ctx context.Context, userID string, daysBack int) (events.Trend, error) {
	cutoff := time.Now().AddDate(0, 0, -daysBack).UnixMilli()
	rows, err := s.db.QueryContext(ctx, `
		SELECT created_at, productivity_score FROM interval_summaries
		WHERE user_id = ? AND created_at >= ? ORDER BY created_at ASC`, userID, cutoff)
	if err != nil {
		return events.Trend{}, fmt.Errorf("tempo: store: trend query: %w", err)
	}
	defer rows.Close()

	type point struct {
		week  int
		score int
	}
	var points []point
	epoch := time.UnixMilli(cutoff)
	for rows.Next() {
		var createdMs int64
		var score int
		if err := rows.Scan(&createdMs, &score); err != nil {
			return events.Trend{}, err
		}
		week := int(time.UnixMilli(createdMs).Sub(epoch).Hours() / (24 * 7))
		points = append(points, point{week: week, score: score})
	}
	if err := rows.Err(); err != nil {
		return events.Trend{}, err
	}
	if len(points) == 0 {
		return events.Trend{Direction: events.TrendStable, Magnitude: 0}, nil
	}

	byWeek := map[int][]int{}
	for _, p := range points {
		byWeek[p.week] = append(byWeek[p.week], p.score)
	}
	weeks := make([]int, 0, len(byWeek))
	for w := range byWeek {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)

	avg := func(ws []int) float64 {
		var sum, n float64
		for _, w := range ws {
			for _, s := range byWeek[w] {
				sum += float64(s)
				n++
			}
		}
		if n == 0 {
			return 0
		}
		return sum / n
	}

	recentCount := 3
	if recentCount > len(weeks) {
		recentCount = len(weeks)
	}
	recentWeeks := weeks[len(weeks)-recentCount:]
	olderWeeks := weeks[:len(weeks)-recentCount]

	recentAvg := avg(recentWeeks)
	olderAvg := recentAvg
	if len(olderWeeks) > 0 {
		olderAvg = avg(olderWeeks)
	}

	magnitude := recentAvg - olderAvg
	direction := events.TrendStable
	switch {
	case magnitude > 2:
		direction = events.TrendIncreasing
	case magnitude < -2:
		direction = events.TrendDecreasing
	}
	return events.Trend{Direction: direction, Magnitude: magnitude}, nil
}

// InsertBatch persists one flushed Batch's AI events and optimization
// summary, keyed by BatchID (spec.md §6's export_session needs every
// batch's ai_events[] and optimization_summaries[] back). RawEvents are
// not duplicated here — capture/rawlog already holds the raw event log
// keyed by session_id, so export_session joins the two tables instead of
// storing raw events twice.
func (s *Store) InsertBatch(ctx context.Context, batch events.Batch) error {
	aiJSON, err := json.Marshal(batch.AIEvents)
	if err != nil {
		return fmt.Errorf("tempo: store: marshal ai events: %w", err)
	}
	optJSON, err := json.Marshal(batch.OptimizationSummary)
	if err != nil {
		return fmt.Errorf("tempo: store: marshal optimization summary: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO batches (batch_id, session_id, started_at, ended_at, reason, ai_events_json, optimization_summary_json, raw_event_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.BatchID, batch.SessionID, batch.StartedAt.UnixMilli(), batch.EndedAt.UnixMilli(),
		string(batch.Reason), string(aiJSON), string(optJSON), len(batch.RawEvents))
	if err != nil {
		return fmt.Errorf("tempo: store: insert batch: %w", err)
	}
	return nil
}

// BatchesForSession returns every batch recorded for sessionID, ordered
// by start time, for export_session. RawEvents is left nil; callers read
// those from capture/rawlog keyed by the same session_id.
func (s *Store) BatchesForSession(ctx context.Context, sessionID string) ([]events.Batch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_id, session_id, started_at, ended_at, reason, ai_events_json, optimization_summary_json
		FROM batches WHERE session_id = ? ORDER BY started_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("tempo: store: batches for session: %w", err)
	}
	defer rows.Close()

	var out []events.Batch
	for rows.Next() {
		var b events.Batch
		var startedMs, endedMs int64
		var reason, aiJSON, optJSON string
		if err := rows.Scan(&b.BatchID, &b.SessionID, &startedMs, &endedMs, &reason, &aiJSON, &optJSON); err != nil {
			return nil, fmt.Errorf("tempo: store: scan batch row: %w", err)
		}
		b.StartedAt = time.UnixMilli(startedMs)
		b.EndedAt = time.UnixMilli(endedMs)
		b.Reason = events.FlushReason(reason)
		if err := json.Unmarshal([]byte(aiJSON), &b.AIEvents); err != nil {
			return nil, fmt.Errorf("tempo: store: unmarshal ai events: %w", err)
		}
		if err := json.Unmarshal([]byte(optJSON), &b.OptimizationSummary); err != nil {
			return nil, fmt.Errorf("tempo: store: unmarshal optimization summary: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SummariesForSession returns every IntervalSummary recorded for
// sessionID, ordered by interval index, for export_session and
// aggregateFinal.
func (s *Store) SummariesForSession(ctx context.Context, sessionID string) ([]events.IntervalSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, user_id, interval_index, started_at, ended_at, productivity_score,
		       summary_text, insights_json, break_recommendation, app_usage_json, memory_type, ai_generated
		FROM interval_summaries WHERE session_id = ? ORDER BY interval_index ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("tempo: store: summaries for session: %w", err)
	}
	defer rows.Close()

	var out []events.IntervalSummary
	for rows.Next() {
		var sum events.IntervalSummary
		var startedMs, endedMs int64
		var insightsJSON, appUsageJSON, memoryType string
		var aiGenerated int
		var breakRec sql.NullString
		if err := rows.Scan(&sum.SessionID, &sum.UserID, &sum.IntervalIndex, &startedMs, &endedMs,
			&sum.ProductivityScore, &sum.SummaryText, &insightsJSON, &breakRec, &appUsageJSON, &memoryType, &aiGenerated); err != nil {
			return nil, fmt.Errorf("tempo: store: scan summary row: %w", err)
		}
		sum.StartedAt = time.UnixMilli(startedMs)
		sum.EndedAt = time.UnixMilli(endedMs)
		sum.BreakRecommendation = breakRec.String
		sum.MemoryType = events.MemoryType(memoryType)
		sum.AIGenerated = aiGenerated != 0
		if err := json.Unmarshal([]byte(insightsJSON), &sum.Insights); err != nil {
			return nil, fmt.Errorf("tempo: store: unmarshal insights: %w", err)
		}
		if err := json.Unmarshal([]byte(appUsageJSON), &sum.AppUsage); err != nil {
			return nil, fmt.Errorf("tempo: store: unmarshal app usage: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// PreviousSessionAverage returns the average_productivity of the most
// recently closed session for userID other than excludeSessionID, for
// aggregateFinal's improvement_percent_points field. ok is false if no
// prior closed session exists.
func (s *Store) PreviousSessionAverage(ctx context.Context, userID, excludeSessionID string) (float64, bool, error) {
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT average_productivity FROM sessions
		WHERE user_id = ? AND session_id != ? AND ended_at IS NOT NULL
		ORDER BY ended_at DESC LIMIT 1`, userID, excludeSessionID).Scan(&avg)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("tempo: store: previous session average: %w", err)
	}
	if !avg.Valid {
		return 0, false, nil
	}
	return avg.Float64, true, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
