package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestEmbedHappyPathLocksDimension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Input) != 1 {
			t.Fatalf("expected exactly one input text, got %d", len(req.Input))
		}
		json.NewEncoder(w).Encode(embedResponse{
			Data: []struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{{Embedding: make([]float32, 1536), Index: 0}},
		})
	}))
	defer srv.Close()

	e := New(Config{Endpoint: srv.URL, Timeout: 2 * time.Second})
	vec, err := e.Embed(context.Background(), "some interval digest")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 1536 {
		t.Fatalf("vector length = %d, want 1536", len(vec))
	}
	if e.Dimension() != 1536 {
		t.Fatalf("Dimension() = %d, want 1536", e.Dimension())
	}
}

func TestEmbedRetriesOnceThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(embedResponse{
			Data: []struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{{Embedding: []float32{0.1, 0.2}, Index: 0}},
		})
	}))
	defer srv.Close()

	e := New(Config{Endpoint: srv.URL, Timeout: 2 * time.Second})
	start := time.Now()
	vec, err := e.Embed(context.Background(), "summary text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 2*time.Second {
		t.Fatalf("expected retry backoff of ~2s, got %v", elapsed)
	}
	if len(vec) != 2 {
		t.Fatalf("vector length = %d, want 2", len(vec))
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2 (one retry)", calls)
	}
}

func TestEmbedOpensBreakerAfterTwoFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := New(Config{Endpoint: srv.URL, Timeout: 2 * time.Second})

	// The breaker wraps the whole retry sequence, so it records one
	// failure per Embed call (not per HTTP attempt): the digest embed
	// and the summary_text embed within the same interval are the two
	// failures that trip resilience.NewEmbedBreaker's threshold of 2.
	if _, err := e.Embed(context.Background(), "digest"); err == nil {
		t.Fatal("expected error")
	}
	afterFirst := atomic.LoadInt32(&calls)
	if afterFirst != 2 {
		t.Fatalf("calls after first Embed = %d, want 2 (initial + 1 retry)", afterFirst)
	}

	if _, err := e.Embed(context.Background(), "summary"); err == nil {
		t.Fatal("expected error")
	}
	afterSecond := atomic.LoadInt32(&calls)
	if afterSecond != 4 {
		t.Fatalf("calls after second Embed = %d, want 4 (breaker trips only after this call's failure)", afterSecond)
	}

	// Circuit is now open: a third Embed (the next interval's digest)
	// is rejected before reaching the server.
	if _, err := e.Embed(context.Background(), "next interval digest"); err == nil {
		t.Fatal("expected error")
	}
	if atomic.LoadInt32(&calls) != afterSecond {
		t.Fatalf("calls after third Embed = %d, want unchanged at %d (circuit open)", calls, afterSecond)
	}
}

func TestEmbedNoopWithoutEndpoint(t *testing.T) {
	e := New(Config{})
	vec, err := e.Embed(context.Background(), "x")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 1536 {
		t.Fatalf("noop vector length = %d, want 1536", len(vec))
	}
}
