package session

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/tempoflow/tempo/buffer"
	"github.com/tempoflow/tempo/capture"
	"github.com/tempoflow/tempo/capture/rawlog"
	"github.com/tempoflow/tempo/coalescer"
	"github.com/tempoflow/tempo/dbopen"
	"github.com/tempoflow/tempo/events"
	"github.com/tempoflow/tempo/idgen"
	"github.com/tempoflow/tempo/summarizer"
	"github.com/tempoflow/tempo/summarizer/embed"
	"github.com/tempoflow/tempo/summarizer/llm"
	"github.com/tempoflow/tempo/summarizer/memory"
	"github.com/tempoflow/tempo/summarizer/store"
)

// Session is the external-interface orchestrator: one instance per
// start_session call, owning every C1-C6 sub-component for that run.
// Grounded on domwatch.Watcher's New/Start/Stop shape and its
// mutex-guarded map-of-sub-resources pattern, generalized from "pages
// plus observers" to "capture plus coalescer plus buffer plus
// summarizer".
type Session struct {
	cfg    Config
	logger *slog.Logger

	db      *sql.DB
	rawLog  *rawlog.Log
	store   *store.Store
	recall  *memory.Recall
	llm     *llm.Client
	embed   embed.Embedder

	capture   *capture.Session
	coalescer *coalescer.Coalescer
	buf       *buffer.Buffer
	batcher   *buffer.Batcher
	objInfer  *buffer.ObjectInference
	scheduler *summarizer.Scheduler
	metrics   *summarizer.Recorder

	sessionID string
	userID    string
	dailyGoal string
	startedAt time.Time

	// debugSink, if set via SetDebugSink before Start, receives every
	// raw event as JSON lines — `tempo start`'s -debug-sink flag.
	debugSink io.Writer

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	phase         events.SessionPhase
	lastErr       string
	eventCount    uint64
	batchCount    uint64
	lastBatchAt   time.Time
	lastSummaryAt time.Time

	pipe pipelineState
	sum  summaryState
}

// New creates a Session in the idle phase. Call Start to begin capture.
func New(cfg Config, logger *slog.Logger) *Session {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		cfg:    cfg,
		logger: logger,
		phase:  events.PhaseIdle,
	}
}

// SetDebugSink arranges for every raw event to also be written as a JSON
// line to w, in addition to driving the normal C2-C6 pipeline. Must be
// called before Start.
func (s *Session) SetDebugSink(w io.Writer) {
	s.debugSink = w
}

// Start opens the session's storage, launches every capture source, and
// begins the coalescer/batcher/scheduler tasks. Matches spec.md §6's
// start_session: fails if already running.
func (s *Session) Start(ctx context.Context, userID, dailyGoal, sessionID string) (string, time.Time, error) {
	s.mu.Lock()
	if s.phase != events.PhaseIdle {
		s.mu.Unlock()
		return "", time.Time{}, fmt.Errorf("session: start: already %s", s.phase)
	}
	s.phase = events.PhaseStarting
	s.mu.Unlock()

	if sessionID == "" {
		sessionID = idgen.New()
	}
	s.sessionID = sessionID
	s.userID = userID
	s.dailyGoal = dailyGoal
	s.startedAt = time.Now()

	if err := s.openStorage(); err != nil {
		s.setPhase(events.PhaseError, err.Error())
		return "", time.Time{}, err
	}

	if err := s.store.InsertSession(ctx, sessionID, userID, s.startedAt, dailyGoal); err != nil {
		s.setPhase(events.PhaseError, err.Error())
		return "", time.Time{}, err
	}

	s.capture = capture.New(s.cfg.Capture, s.logger)
	if s.debugSink != nil {
		s.capture.AddSink(capture.NewStdoutSink(s.debugSink))
	}
	if err := s.capture.Start(ctx); err != nil {
		s.setPhase(events.PhaseError, err.Error())
		return "", time.Time{}, fmt.Errorf("session: start capture: %w", err)
	}

	s.pipe.init()
	s.sum.init()

	s.coalescer = coalescer.New(s.cfg.Coalescer, s.onTextInput)
	s.buf = buffer.New(s.cfg.Buffer, s.logger)
	s.batcher = buffer.NewBatcher(s.cfg.Batcher, s.buf, s.onFlush)
	s.objInfer = buffer.NewObjectInference(s.cfg.ObjectInferenceCacheSize)
	s.metrics = summarizer.NewRecorder()
	s.scheduler = summarizer.NewScheduler(s.cfg.Scheduler, s.onInterval, s.logger)

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(2)
	go func() { defer s.wg.Done(); s.runPipeline(runCtx) }()
	go func() { defer s.wg.Done(); s.scheduler.Run(runCtx) }()
	go s.rawLog.RotateLoop(runCtx, s.cfg.RawLogRotateInterval)
	go s.capture.RequestSnapshot(runCtx, events.SnapshotInitial)

	s.setPhase(events.PhaseRunning, "")
	return sessionID, s.startedAt, nil
}

// Pause freezes capture emission and the interval scheduler. Idempotent.
func (s *Session) Pause(reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == events.PhasePaused {
		return nil
	}
	if s.phase != events.PhaseRunning {
		return fmt.Errorf("session: pause: not running (phase=%s)", s.phase)
	}
	s.scheduler.Pause()
	s.pipe.setPaused(true)
	s.phase = events.PhasePaused
	s.logger.Info("tempo: session paused", "session_id", s.sessionID, "reason", reason)
	return nil
}

// Resume unfreezes capture emission and the interval scheduler.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == events.PhaseRunning {
		return nil
	}
	if s.phase != events.PhasePaused {
		return fmt.Errorf("session: resume: not paused (phase=%s)", s.phase)
	}
	s.scheduler.Resume()
	s.pipe.setPaused(false)
	s.phase = events.PhaseRunning
	return nil
}

// Stop drains the pipeline, force-flushes C4, runs one final C6 pass, and
// returns the closing aggregate (spec.md §4.6 Final session summary).
func (s *Session) Stop(ctx context.Context) (events.FinalSessionSummary, time.Time, error) {
	s.mu.Lock()
	if s.phase != events.PhaseRunning && s.phase != events.PhasePaused {
		s.mu.Unlock()
		return events.FinalSessionSummary{}, time.Time{}, fmt.Errorf("session: stop: not running (phase=%s)", s.phase)
	}
	s.phase = events.PhaseStopping
	s.mu.Unlock()

	s.capture.Stop()
	s.coalescer.ForceFlush()
	s.batcher.ForceFlush(events.FlushSessionEnd)

	index, startedAt := s.scheduler.CurrentInterval()
	s.onInterval(ctx, index, startedAt, time.Now())

	final := s.aggregateFinal(ctx)
	endedAt := time.Now()
	if err := s.store.CloseSession(ctx, s.sessionID, endedAt, final); err != nil {
		s.logger.Error("tempo: session: close session row", "error", err)
	}

	s.cancel()
	s.wg.Wait()
	if err := s.rawLog.Close(); err != nil {
		s.logger.Error("tempo: session: close rawlog", "error", err)
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("tempo: session: close db", "error", err)
	}

	s.setPhase(events.PhaseIdle, "")
	return final, endedAt, nil
}

// CheckPermissions reports each capture source's availability.
func (s *Session) CheckPermissions() []capture.PermissionStatus {
	s.mu.Lock()
	cap := s.capture
	s.mu.Unlock()
	if cap == nil {
		return capture.New(s.cfg.Capture, s.logger).CheckPermissions()
	}
	return cap.CheckPermissions()
}

// GetStatus reports the session's externally visible state.
func (s *Session) GetStatus() events.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := events.SessionState{
		SessionID:     s.sessionID,
		Phase:         s.phase,
		StartedAt:     s.startedAt,
		EventCount:    s.eventCount,
		BatchCount:    s.batchCount,
		LastBatchAt:   s.lastBatchAt,
		LastSummaryAt: s.lastSummaryAt,
		LastError:     s.lastErr,
	}
	if s.capture != nil {
		st.DisabledLayers = s.capture.DisabledLayers()
	}
	if s.scheduler != nil {
		st.ActiveIntervalMinutes = s.scheduler.ActiveMinutes()
	}
	if s.metrics != nil {
		snap := s.metrics.Snapshot()
		st.Intervals = snap.Intervals
		st.FallbackCount = snap.FallbackCount
		st.FallbackRate = snap.FallbackRate
		st.AvgLLMLatency = snap.AvgLLMLatency
		st.AvgEmbedLatency = snap.AvgEmbedLatency
		st.EmbedFailureCount = snap.EmbedFailureCount
	}
	return st
}

func (s *Session) setPhase(p events.SessionPhase, lastErr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = p
	if lastErr != "" {
		s.lastErr = lastErr
	}
}

func (s *Session) openStorage() error {
	dbPath := s.cfg.PersistenceDSN
	if dbPath == "" {
		dbPath = filepath.Join(s.cfg.DataDir, "tempo.db")
	}
	db, err := dbopen.Open(dbPath, dbopen.WithMkdirAll(), dbopen.WithSchema(store.Schema), dbopen.WithSchema(rawlog.Schema))
	if err != nil {
		return fmt.Errorf("session: open storage: %w", err)
	}
	s.db = db
	s.store = store.NewStore(db)
	s.recall = memory.NewRecall(s.store, s.cfg.Memory)
	s.llm = llm.New(s.cfg.LLM)
	s.embed = embed.New(s.cfg.Embed)
	s.rawLog = rawlog.New(db, s.logger)
	return nil
}
