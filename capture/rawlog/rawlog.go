// Package rawlog is the local append-only raw-event log (spec.md §6
// Persisted state): every events.RawEvent the capture layer emits is
// queued here for durable storage, independent of the in-memory C2-C6
// pipeline. Grounded on trace/store.go's async channel-fed SQLite
// writer — a buffered worker goroutine batches inserts on a ticker, and
// Close drains whatever is left.
//
// Retention is enforced by age, not by row count, mirroring
// observability.Cleanup's cutoff-timestamp delete.
package rawlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tempoflow/tempo/events"
)

// Schema is the raw_events table DDL.
const Schema = `
CREATE TABLE IF NOT EXISTS raw_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	sequence INTEGER NOT NULL,
	layer TEXT NOT NULL,
	kind TEXT NOT NULL,
	timestamp_us INTEGER NOT NULL,
	active_app TEXT,
	active_window TEXT,
	active_url TEXT,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_raw_events_ts ON raw_events(timestamp_us);
CREATE INDEX IF NOT EXISTS idx_raw_events_session ON raw_events(session_id);
`

// RetentionDays is the default raw-event retention window (spec.md §9
// Open Question #3: 7 days local, no long-term archival — a Non-goal).
const RetentionDays = 7

// Log persists RawEvents to a SQLite table asynchronously. It never
// blocks the capture pipeline: RecordAsync drops the event (and logs a
// warning) when its internal buffer is full rather than apply
// backpressure to C1.
type Log struct {
	db   *sql.DB
	ch   chan loggedEvent
	done chan struct{}
	once sync.Once

	logger *slog.Logger
}

type loggedEvent struct {
	sessionID string
	ev        events.RawEvent
}

// New creates a Log backed by db, which should already have Schema
// applied (via Init). The caller owns db's lifecycle; Close on Log only
// stops the flush goroutine.
func New(db *sql.DB, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Log{
		db:     db,
		ch:     make(chan loggedEvent, 1024),
		done:   make(chan struct{}),
		logger: logger,
	}
	go l.flushLoop()
	return l
}

// Init creates the raw_events table if it doesn't exist.
func (l *Log) Init() error {
	_, err := l.db.Exec(Schema)
	return err
}

// RecordAsync queues a RawEvent for durable storage. Non-blocking.
func (l *Log) RecordAsync(sessionID string, ev events.RawEvent) {
	select {
	case l.ch <- loggedEvent{sessionID: sessionID, ev: ev}:
	default:
		l.logger.Warn("rawlog: buffer full, dropping event", "layer", ev.Layer, "kind", ev.Kind)
	}
}

// Close drains the buffer and stops the flush goroutine.
func (l *Log) Close() error {
	l.once.Do(func() {
		close(l.ch)
		<-l.done
	})
	return nil
}

func (l *Log) flushLoop() {
	defer close(l.done)

	batch := make([]loggedEvent, 0, 64)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-l.ch:
			if !ok {
				l.flushBatch(batch)
				return
			}
			batch = append(batch, e)
			if len(batch) >= 64 {
				l.flushBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				l.flushBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (l *Log) flushBatch(batch []loggedEvent) {
	if len(batch) == 0 {
		return
	}

	tx, err := l.db.Begin()
	if err != nil {
		l.logger.Error("rawlog: begin tx", "error", err)
		return
	}

	stmt, err := tx.Prepare(`INSERT INTO raw_events (
		session_id, sequence, layer, kind, timestamp_us, active_app, active_window, active_url, payload
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		l.logger.Error("rawlog: prepare", "error", err)
		return
	}
	defer stmt.Close()

	for _, e := range batch {
		payload, err := json.Marshal(e.ev.Payload)
		if err != nil {
			l.logger.Error("rawlog: marshal payload", "error", err)
			continue
		}
		_, err = stmt.Exec(
			e.sessionID, e.ev.Sequence, string(e.ev.Layer), string(e.ev.Kind), e.ev.Timestamp.UnixMicro(),
			e.ev.Context.ActiveApp, e.ev.Context.ActiveWindow, e.ev.Context.ActiveURL, string(payload),
		)
		if err != nil {
			l.logger.Error("rawlog: insert", "error", err)
		}
	}

	if err := tx.Commit(); err != nil {
		l.logger.Error("rawlog: commit", "error", err)
	}
}

// ForSession returns every raw event recorded for sessionID, ordered by
// sequence, for export_session (spec.md §6). Payload is decoded back
// into the generic shape json.Unmarshal produces (map[string]any), not
// the original typed payload struct — raw_events is read-only history at
// this point, not something re-fed through the pipeline.
func (l *Log) ForSession(ctx context.Context, sessionID string) ([]events.RawEvent, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT sequence, layer, kind, timestamp_us, active_app, active_window, active_url, payload
		FROM raw_events WHERE session_id = ? ORDER BY sequence ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("rawlog: for session: %w", err)
	}
	defer rows.Close()

	var out []events.RawEvent
	for rows.Next() {
		var seq uint64
		var layer, kind string
		var tsUs int64
		var activeApp, activeWindow, activeURL sql.NullString
		var payloadJSON string
		if err := rows.Scan(&seq, &layer, &kind, &tsUs, &activeApp, &activeWindow, &activeURL, &payloadJSON); err != nil {
			return nil, fmt.Errorf("rawlog: scan row: %w", err)
		}
		var payload any
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			return nil, fmt.Errorf("rawlog: unmarshal payload: %w", err)
		}
		out = append(out, events.RawEvent{
			Sequence:  seq,
			Timestamp: time.UnixMicro(tsUs),
			Layer:     events.Layer(layer),
			Kind:      events.Kind(kind),
			Context:   events.Context{ActiveApp: activeApp.String, ActiveWindow: activeWindow.String, ActiveURL: activeURL.String},
			Payload:   payload,
		})
	}
	return out, rows.Err()
}

// Rotate deletes raw_events rows older than RetentionDays, mirroring
// observability.Cleanup's cutoff-timestamp delete pattern.
func (l *Log) Rotate(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -RetentionDays).UnixMicro()
	res, err := l.db.ExecContext(ctx, "DELETE FROM raw_events WHERE timestamp_us < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("rawlog: rotate: %w", err)
	}
	return res.RowsAffected()
}

// RotateLoop runs Rotate once every interval until ctx is cancelled.
func (l *Log) RotateLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := l.Rotate(ctx); err != nil {
				l.logger.Error("rawlog: rotate", "error", err)
			} else if n > 0 {
				l.logger.Info("rawlog: rotated old events", "deleted", n)
			}
		}
	}
}
