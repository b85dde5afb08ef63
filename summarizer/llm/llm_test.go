package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSummarizeHappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(Response{
			ProductivityScore: 80,
			SummaryText:       "Focused coding session.",
			Insights:          []string{"Deep work for 25 minutes"},
			AppUsage:          map[string]int{"vscode": 1500},
		})
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, Timeout: 2 * time.Second})
	resp, err := c.Summarize(context.Background(), Request{SessionID: "s1", UserID: "u1"})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if resp.ProductivityScore != 80 || resp.SummaryText == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSummarizeRetriesOnceThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(Response{ProductivityScore: 50, SummaryText: "ok"})
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, Timeout: 2 * time.Second})
	start := time.Now()
	resp, err := c.Summarize(context.Background(), Request{SessionID: "s1"})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 2*time.Second {
		t.Fatalf("expected retry backoff of ~2s, got %v", elapsed)
	}
	if resp.SummaryText != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("calls = %d, want 2 (one retry)", calls)
	}
}

func TestSummarizeFailsAfterSecondFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL, Timeout: 2 * time.Second})
	_, err := c.Summarize(context.Background(), Request{SessionID: "s1"})
	if err == nil {
		t.Fatal("expected error after retry exhausted")
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("calls = %d, want 2 (initial + 1 retry)", calls)
	}
}

func TestSummarizeDisabledWithoutEndpoint(t *testing.T) {
	c := New(Config{})
	if c.Enabled() {
		t.Fatal("expected Enabled() false with no endpoint")
	}
	if _, err := c.Summarize(context.Background(), Request{}); err == nil {
		t.Fatal("expected error with no endpoint configured")
	}
}
