package resilience

import (
	"context"
	"sync"
	"time"
)

// BreakerState represents the circuit breaker state.
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // Normal operation, calls pass through.
	BreakerOpen                         // Calls rejected immediately.
	BreakerHalfOpen                     // One probe call allowed to test recovery.
)

// CircuitBreaker guards a single external service (the LLM endpoint or
// the embedding endpoint) from repeated-failure pileup. Thread-safe.
type CircuitBreaker struct {
	mu           sync.Mutex
	state        BreakerState
	failures     int
	successes    int
	threshold    int
	resetTimeout time.Duration
	halfOpenMax  int
	lastFailure  time.Time
	now          func() time.Time
}

// BreakerOption configures a CircuitBreaker.
type BreakerOption func(*CircuitBreaker)

func WithBreakerThreshold(n int) BreakerOption {
	return func(cb *CircuitBreaker) { cb.threshold = n }
}

func WithBreakerResetTimeout(d time.Duration) BreakerOption {
	return func(cb *CircuitBreaker) { cb.resetTimeout = d }
}

func WithBreakerHalfOpenMax(n int) BreakerOption {
	return func(cb *CircuitBreaker) { cb.halfOpenMax = n }
}

func WithBreakerClock(fn func() time.Time) BreakerOption {
	return func(cb *CircuitBreaker) { cb.now = fn }
}

// NewCircuitBreaker creates a breaker from opts. There is no tempo-wide
// default cadence to tune a generic threshold/reset-timeout pair against
// — the LLM and embedding endpoints are each called on their own
// schedule, so each gets its own preset below (NewLLMBreaker,
// NewEmbedBreaker) rather than sharing one "sensible default" sized for
// a bursty web service.
func NewCircuitBreaker(opts ...BreakerOption) *CircuitBreaker {
	cb := &CircuitBreaker{
		state: BreakerClosed,
		now:   time.Now,
	}
	for _, o := range opts {
		o(cb)
	}
	if cb.threshold <= 0 {
		cb.threshold = 1
	}
	if cb.halfOpenMax <= 0 {
		cb.halfOpenMax = 1
	}
	return cb
}

// NewLLMBreaker tunes the breaker for summarizer/llm's call cadence:
// one Summarize call per ~15-minute interval (spec.md §4.6), so a
// generic web-service default (5 failures inside a 30s window) would
// need over an hour of a fully down endpoint before ever tripping,
// during which every interval still pays the full retry-then-fallback
// cost. Three consecutive interval failures (45 minutes down) opens
// the breaker; a 5-minute reset lets a recovered endpoint be retried
// well before the next interval fires, and a single success is enough
// to close since calls are too infrequent to justify a multi-success
// probation window.
func NewLLMBreaker() *CircuitBreaker {
	return NewCircuitBreaker(
		WithBreakerThreshold(3),
		WithBreakerResetTimeout(5*time.Minute),
		WithBreakerHalfOpenMax(1),
	)
}

// NewEmbedBreaker tunes the breaker for summarizer/embed's call
// pattern: two calls in quick succession per interval (the digest
// query vector, then the summary_text vector — session/pipeline.go's
// onInterval). Two consecutive failures is already enough signal the
// embedding endpoint is down for this interval, so it opens after the
// second failed call; both of those calls still run their retry, since
// the breaker counts one failure per Embed call, not per attempt. The
// 2-minute reset is short enough to recover well inside the next
// 15-minute interval instead of staying open across an interval
// boundary it didn't need to span.
func NewEmbedBreaker() *CircuitBreaker {
	return NewCircuitBreaker(
		WithBreakerThreshold(2),
		WithBreakerResetTimeout(2*time.Minute),
		WithBreakerHalfOpenMax(1),
	)
}

func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.maybeTransition()
	return cb.state
}

func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.maybeTransition()
	return cb.state != BreakerOpen
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case BreakerHalfOpen:
		cb.successes++
		if cb.successes >= cb.halfOpenMax {
			cb.state = BreakerClosed
			cb.failures = 0
			cb.successes = 0
		}
	case BreakerClosed:
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.lastFailure = cb.now()
	switch cb.state {
	case BreakerClosed:
		cb.failures++
		if cb.failures >= cb.threshold {
			cb.state = BreakerOpen
		}
	case BreakerHalfOpen:
		cb.state = BreakerOpen
		cb.successes = 0
	}
}

func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = BreakerClosed
	cb.failures = 0
	cb.successes = 0
}

func (cb *CircuitBreaker) maybeTransition() {
	if cb.state == BreakerOpen && cb.now().Sub(cb.lastFailure) >= cb.resetTimeout {
		cb.state = BreakerHalfOpen
		cb.successes = 0
	}
}

// WithCircuitBreaker returns a Middleware that wraps calls with cb. When
// the breaker is open, calls are rejected immediately with ErrCircuitOpen.
func WithCircuitBreaker(cb *CircuitBreaker, service string) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			if !cb.Allow() {
				return nil, &ErrCircuitOpen{Service: service}
			}
			resp, err := next(ctx, payload)
			if err != nil {
				cb.RecordFailure()
			} else {
				cb.RecordSuccess()
			}
			return resp, err
		}
	}
}
