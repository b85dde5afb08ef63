// Package embed calls an external OpenAI-compatible embedding server to
// turn one interval digest or summary_text at a time into a float32
// vector, per spec.md §6's embed(text) -> float[1536] contract. tempo
// never embeds more than one string per call (session/pipeline.go's
// onInterval embeds the interval digest, then separately the produced
// summary_text, each 15 minutes apart at most), so — unlike horosembed,
// which this package started from — there is no request-batching loop:
// the client sends one string per HTTP call and is wrapped in the same
// resilience.WithRetry/WithCircuitBreaker composition summarizer/llm
// uses, tuned to this call pattern by resilience.NewEmbedBreaker. The
// dimension is expected to be 1536 and, once detected from the first
// successful call, is locked for the rest of the process's life so a
// user's history never mixes vector dimensions.
package embed

import (
	"context"
	"log/slog"
	"time"
)

// Embedder converts text to a vector.
type Embedder interface {
	// Embed returns the embedding vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the locked vector dimension, or 0 before the
	// first successful call.
	Dimension() int

	// Model returns the model name.
	Model() string
}

// Config configures the embedding client.
type Config struct {
	// Endpoint is the base URL of the embedding server. If empty (e.g.
	// EMBEDDING_API_KEY unset and no endpoint configured), New returns a
	// NoopEmbedder so C6 can still run without a reachable embedder.
	Endpoint string `yaml:"endpoint"`

	Model string `yaml:"model"`

	// APIKeyEnv names the environment variable holding the bearer token,
	// e.g. "EMBEDDING_API_KEY" (spec.md §6's recognized environment
	// variables). Empty means the server needs no auth (local vLLM/Ollama).
	APIKeyEnv string `yaml:"api_key_env"`

	// Dimension is the expected vector dimension. 0 auto-detects on the
	// first successful call and locks to whatever the server returns.
	// spec.md §6 expects 1536.
	Dimension int `yaml:"dimension"`

	// Timeout per HTTP request.
	Timeout time.Duration `yaml:"timeout"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// New creates an Embedder from cfg. If Endpoint is empty, returns a
// NoopEmbedder that produces zero vectors of the configured (or default
// 1536) dimension, so the summarizer can persist summaries rather than
// failing outright. The all-zero vector is stored as the summary's
// embedding; its norm is zero, so no similarity search ever matches it.
func New(cfg Config) Embedder {
	cfg.defaults()
	if cfg.Endpoint == "" {
		dim := cfg.Dimension
		if dim <= 0 {
			dim = 1536
		}
		return &noopEmbedder{dim: dim, model: cfg.Model}
	}
	return newOpenAIClient(cfg)
}

// noopEmbedder returns zero vectors — used when no embedding endpoint is
// configured, so the summarizer keeps storing summaries (with a vector
// that never matches a similarity search) rather than blocking entirely.
type noopEmbedder struct {
	dim   int
	model string
}

func (n *noopEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return make([]float32, n.dim), nil
}

func (n *noopEmbedder) Dimension() int { return n.dim }
func (n *noopEmbedder) Model() string  { return n.model }
