package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithRetrySucceedsAfterFailure(t *testing.T) {
	calls := 0
	base := Handler(func(ctx context.Context, p []byte) ([]byte, error) {
		calls++
		if calls < 2 {
			return nil, errors.New("transient")
		}
		return []byte("ok"), nil
	})
	h := WithRetry(1, time.Millisecond, nil)(base)
	out, err := h(context.Background(), nil)
	if err != nil || string(out) != "ok" {
		t.Fatalf("got %q, %v", out, err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestWithRetryStopsOnCircuitOpen(t *testing.T) {
	calls := 0
	base := Handler(func(ctx context.Context, p []byte) ([]byte, error) {
		calls++
		return nil, &ErrCircuitOpen{Service: "llm"}
	})
	h := WithRetry(3, time.Millisecond, nil)(base)
	_, err := h(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on circuit open)", calls)
	}
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(WithBreakerThreshold(2), WithBreakerResetTimeout(time.Hour))
	cb.RecordFailure()
	if !cb.Allow() {
		t.Fatal("should still be closed after 1 failure")
	}
	cb.RecordFailure()
	if cb.Allow() {
		t.Fatal("should be open after 2 failures")
	}
}
