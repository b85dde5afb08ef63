// Package session is the top-level orchestrator tying C1-C6 together
// into the external interface spec.md §6 describes: start/pause/resume/
// stop/export/get_status/check_permissions. Its lifecycle shape — owning
// a cancellable context per run, exposing Start/Stop, deferring to a
// sub-component for each concern — is grounded on domwatch.Watcher,
// generalized from "one watcher coordinating browser pages" to "one
// session coordinating capture, coalescing, buffering, optimizing and
// summarizing".
package session

import (
	"os"
	"path/filepath"
	"time"

	"github.com/tempoflow/tempo/buffer"
	"github.com/tempoflow/tempo/capture"
	"github.com/tempoflow/tempo/coalescer"
	"github.com/tempoflow/tempo/optimize"
	"github.com/tempoflow/tempo/summarizer"
	"github.com/tempoflow/tempo/summarizer/embed"
	"github.com/tempoflow/tempo/summarizer/llm"
	"github.com/tempoflow/tempo/summarizer/memory"
)

// MaxPendingSummaries bounds the in-memory backlog of IntervalSummaries
// that failed to persist (spec.md §7 PersistenceTransient), after which
// the oldest pending one is dropped.
const MaxPendingSummaries = 10

// Config aggregates every sub-component's configuration plus the fields
// that belong to the session orchestrator itself. Matches the
// Config+(*Config).defaults() pattern used throughout the capture layer
// (capture.Config, buffer.Config) and the summarizer sub-packages.
type Config struct {
	Capture   capture.Config             `yaml:"capture"`
	Coalescer coalescer.Config           `yaml:"coalescer"`
	Buffer    buffer.Config              `yaml:"buffer"`
	Batcher   buffer.BatcherConfig       `yaml:"batcher"`
	Optimize  optimize.Config            `yaml:"optimize"`
	Scheduler summarizer.SchedulerConfig `yaml:"scheduler"`
	LLM       llm.Config                 `yaml:"llm"`
	Embed     embed.Config               `yaml:"embed"`
	Memory    memory.Config              `yaml:"memory"`

	// DataDir is the platform-appropriate per-user data directory
	// holding the raw-event log and the summarizer/session SQLite
	// database (spec.md §6 Persisted state).
	DataDir string `yaml:"data_dir"`

	// PersistenceDSN overrides the database location entirely; defaults
	// to $PERSISTENCE_URL, falling back to DataDir/tempo.db when unset.
	PersistenceDSN string `yaml:"persistence_dsn"`

	// ObjectInferenceCacheSize bounds the batcher's object-inference LRU.
	ObjectInferenceCacheSize int `yaml:"object_inference_cache_size"`

	// MaxPendingSummaries overrides the package default.
	MaxPendingSummaries int `yaml:"max_pending_summaries"`

	// RawLogRotateInterval is how often the raw-event log's retention
	// sweep runs. Default 1 hour.
	RawLogRotateInterval time.Duration `yaml:"rawlog_rotate_interval"`
}

func (c *Config) defaults() {
	if c.ObjectInferenceCacheSize <= 0 {
		c.ObjectInferenceCacheSize = 256
	}
	if c.MaxPendingSummaries <= 0 {
		c.MaxPendingSummaries = MaxPendingSummaries
	}
	if c.RawLogRotateInterval <= 0 {
		c.RawLogRotateInterval = time.Hour
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir()
	}
	if (c.Optimize == optimize.Config{}) {
		c.Optimize = optimize.DefaultConfig()
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = "LLM_API_KEY"
	}
	if c.Embed.APIKeyEnv == "" {
		c.Embed.APIKeyEnv = "EMBEDDING_API_KEY"
	}
	// PERSISTENCE_URL overrides where the summary/session database lives
	// (spec.md §6's recognized environment variables). The local build's
	// row store is SQLite, so the value is a path/DSN; PERSISTENCE_KEY is
	// recognized for remote row-store parity but has no consumer in the
	// SQLite backend.
	if c.PersistenceDSN == "" {
		c.PersistenceDSN = os.Getenv("PERSISTENCE_URL")
	}
}

// DefaultConfig returns a Config with every sub-component enabled at its
// own package defaults, matching capture.DefaultConfig()'s all-sources-on
// convention.
func DefaultConfig() Config {
	cfg := Config{
		Capture: capture.DefaultConfig(),
	}
	cfg.defaults()
	return cfg
}

// defaultDataDir resolves a platform-appropriate per-user data directory
// (spec.md §6's "platform-appropriate per-user data directory"). No
// example repo in the corpus owns a local per-user data directory of its
// own — they're all server-side services with an operator-supplied DSN —
// so this falls back to the standard library's os.UserConfigDir rather
// than a third-party path-resolution package.
func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "tempo")
}
