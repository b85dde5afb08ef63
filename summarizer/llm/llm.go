// Package llm is the summarizer's client for the external productivity
// LLM service described by spec.md §6's request/response contract. The
// HTTP plumbing — env-var-expanded headers, a fixed JSON request/response
// schema with no dot-path traversal — is grounded on
// veille/internal/apifetch/apifetch.go's generic JSON API fetcher; the
// retry-once-after-2s-then-fall-back behavior is grounded on
// resilience.WithRetry + resilience.WithCircuitBreaker (themselves
// adapted from connectivity/retry.go and connectivity/breaker.go).
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tempoflow/tempo/events"
	"github.com/tempoflow/tempo/resilience"
)

// SimilarSummary is one memory-retrieval hit embedded in the prompt.
type SimilarSummary struct {
	SummaryText       string  `json:"summary_text"`
	ProductivityScore int     `json:"productivity_score"`
	Similarity        float64 `json:"similarity"`
	CreatedAt         string  `json:"created_at"`
}

// Request is the downstream LLM contract request body (spec.md §6).
type Request struct {
	SessionID            string           `json:"session_id"`
	UserID               string           `json:"user_id"`
	IntervalIndex        int              `json:"interval_index"`
	DurationMinutes      int              `json:"duration_minutes"`
	DailyGoal            *string          `json:"daily_goal,omitempty"`
	Events               []events.AIEvent `json:"events"`
	AppTimeEstimate      map[string]int   `json:"app_time_estimate"`
	SimilarPastSummaries []SimilarSummary `json:"similar_past_summaries"`
	HistoricalTrend      events.Trend     `json:"historical_trend"`
}

// Response is the expected LLM reply shape (spec.md §6). A malformed
// JSON reply makes Summarize return an error, the caller's cue to fall
// back to summarizer/fallback.go's local synthesis; a well-formed reply
// with missing fields is returned as decoded, with zero values.
type Response struct {
	ProductivityScore   int            `json:"productivity_score"`
	SummaryText         string         `json:"summary_text"`
	Insights            []string       `json:"insights"`
	BreakRecommendation string         `json:"break_recommendation,omitempty"`
	AppUsage            map[string]int `json:"app_usage"`
}

// Config configures the LLM client.
type Config struct {
	// Endpoint is the full URL the request is POSTed to.
	Endpoint string `yaml:"endpoint"`
	// APIKeyEnv names the environment variable holding the bearer token,
	// e.g. "LLM_API_KEY" (spec.md §6's recognized environment variables).
	APIKeyEnv string `yaml:"api_key_env"`
	// Headers are additional request headers; values may reference
	// ${ENV_VAR}, expanded at request time the same way
	// veille/internal/apifetch.Config does.
	Headers map[string]string `yaml:"headers"`
	Timeout time.Duration     `yaml:"timeout"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Client calls the external LLM summarization endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	handler    resilience.Handler
	breaker    *resilience.CircuitBreaker
}

// New creates a Client. If cfg.Endpoint is empty, Summarize always
// returns an error so the caller falls back immediately — matching
// spec.md §6's "Missing LLM_API_KEY disables C6" rule, generalized to
// any missing endpoint configuration.
func New(cfg Config) *Client {
	cfg.defaults()
	httpClient := &http.Client{Timeout: cfg.Timeout}
	breaker := resilience.NewLLMBreaker()
	c := &Client{cfg: cfg, httpClient: httpClient, breaker: breaker}

	base := resilience.Handler(c.call)
	c.handler = resilience.Chain(base,
		resilience.WithCircuitBreaker(breaker, "llm"),
		resilience.WithRetry(1, 2*time.Second, cfg.Logger),
	)
	return c
}

// Enabled reports whether the client can be used: an endpoint is
// configured and, when APIKeyEnv names a variable, that variable is set.
// A missing LLM_API_KEY therefore disables C6's LLM path while C1-C5
// keep running (spec.md §6's environment-variable contract).
func (c *Client) Enabled() bool {
	if c.cfg.Endpoint == "" {
		return false
	}
	if c.cfg.APIKeyEnv != "" && os.Getenv(c.cfg.APIKeyEnv) == "" {
		return false
	}
	return true
}

// Summarize sends req and parses the response. On any failure (network,
// non-200, malformed JSON) the caller is expected to invoke
// summarizer/fallback.go's local synthesis per spec.md §6/§7 LLMFailure.
func (c *Client) Summarize(ctx context.Context, req Request) (Response, error) {
	if !c.Enabled() {
		return Response{}, fmt.Errorf("tempo: llm: disabled: no endpoint or API key configured")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("tempo: llm: marshal request: %w", err)
	}
	respBody, err := c.handler(ctx, body)
	if err != nil {
		return Response{}, err
	}
	var resp Response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return Response{}, fmt.Errorf("tempo: llm: decode response: %w", err)
	}
	return resp, nil
}

func (c *Client) call(ctx context.Context, payload []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKeyEnv != "" {
		if key := os.Getenv(c.cfg.APIKeyEnv); key != "" {
			httpReq.Header.Set("Authorization", "Bearer "+key)
		}
	}
	for k, v := range c.cfg.Headers {
		httpReq.Header.Set(k, expandEnv(v))
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tempo: llm: POST %s: %w", c.cfg.Endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("tempo: llm: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tempo: llm: HTTP %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// expandEnv replaces ${NAME} references with the named environment
// variable's value, matching apifetch.Config's header expansion.
func expandEnv(s string) string {
	return os.Expand(s, func(name string) string {
		if strings.TrimSpace(name) == "" {
			return ""
		}
		return os.Getenv(name)
	})
}
