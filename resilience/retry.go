package resilience

import (
	"context"
	"log/slog"
	"time"
)

// WithTimeout returns a Middleware that applies a per-call timeout. A
// zero timeout disables it entirely.
func WithTimeout(timeout time.Duration) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return next(ctx, payload)
		}
	}
}

// WithRetry returns a Middleware that retries failed calls with
// exponential backoff, respecting context cancellation between retries
// and never retrying once the circuit breaker is open. spec.md §6's
// LLM contract calls for exactly one retry after a fixed 2s backoff;
// summarizer/embed composes the same one-retry/2s policy since it hits
// the same kind of endpoint on the same interval cadence.
func WithRetry(maxRetries int, baseBackoff time.Duration, logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			var lastErr error
			for attempt := 0; attempt <= maxRetries; attempt++ {
				resp, err := next(ctx, payload)
				if err == nil {
					return resp, nil
				}
				lastErr = err

				if ctx.Err() != nil {
					return nil, lastErr
				}
				if _, ok := err.(*ErrCircuitOpen); ok {
					return nil, err
				}

				if attempt < maxRetries {
					wait := baseBackoff * (1 << uint(attempt))
					if logger != nil {
						logger.WarnContext(ctx, "tempo: retrying call",
							"attempt", attempt+1, "max_retries", maxRetries,
							"backoff_ms", wait.Milliseconds(), "error", err)
					}
					select {
					case <-ctx.Done():
						return nil, lastErr
					case <-time.After(wait):
					}
				}
			}
			return nil, lastErr
		}
	}
}
