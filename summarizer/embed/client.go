package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/tempoflow/tempo/resilience"
)

// openaiClient implements Embedder using the OpenAI /v1/embeddings API
// format, covering vLLM, Ollama, ONNX Runtime Server, RunPod, and OpenAI
// itself without code changes — only Config.Endpoint varies.
type openaiClient struct {
	endpoint string
	model    string
	dim      int // 0 = not yet detected
	client   *http.Client
	cfg      Config
	handler  resilience.Handler
	mu       sync.Mutex // protects dim on first call
}

func newOpenAIClient(cfg Config) *openaiClient {
	c := &openaiClient{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		model:    cfg.Model,
		dim:      cfg.Dimension,
		client:   &http.Client{Timeout: cfg.Timeout},
		cfg:      cfg,
	}
	breaker := resilience.NewEmbedBreaker()
	base := resilience.Handler(c.call)
	c.handler = resilience.Chain(base,
		resilience.WithCircuitBreaker(breaker, "embed"),
		resilience.WithRetry(1, 2*time.Second, cfg.Logger),
	)
	return c
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// Embed requests a single embedding vector for text, retrying once after
// 2s and tripping the circuit breaker on sustained failure the same way
// summarizer/llm.Client.Summarize does — this is the only shape tempo
// needs since it never embeds more than one string per call.
func (c *openaiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.model, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("tempo: embed: marshal request: %w", err)
	}
	respBody, err := c.handler(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("tempo: embed: %w", err)
	}

	var result embedResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("tempo: embed: decode response: %w", err)
	}
	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("tempo: embed: no embedding returned from %s", c.endpoint)
	}
	vec := result.Data[0].Embedding

	c.mu.Lock()
	if c.dim == 0 {
		c.dim = len(vec)
		c.cfg.Logger.Info("tempo: embed: auto-detected embedding dimension", "dimension", c.dim, "model", result.Model)
	}
	dim := c.dim
	c.mu.Unlock()
	if len(vec) != dim {
		return nil, fmt.Errorf("tempo: embed: dimension changed from %d to %d mid-history", dim, len(vec))
	}
	return vec, nil
}

func (c *openaiClient) call(ctx context.Context, payload []byte) ([]byte, error) {
	url := c.endpoint + "/v1/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKeyEnv != "" {
		if key := os.Getenv(c.cfg.APIKeyEnv); key != "" {
			req.Header.Set("Authorization", "Bearer "+key)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, url, string(body))
	}
	return body, nil
}

func (c *openaiClient) Dimension() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dim
}

func (c *openaiClient) Model() string { return c.model }
