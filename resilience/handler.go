// Package resilience provides retry and circuit-breaking middleware for
// the summarizer's LLM and embedding calls — the only operations in the
// pipeline with latency above a second (spec.md §5). Trimmed from the
// teacher's connectivity package down to the two middleware primitives
// tempo actually needs: connectivity's service-routing table, transport
// factories, and admin/inspection surface have no equivalent here, since
// tempo calls exactly two fixed external endpoints rather than routing
// among many registered services.
package resilience

import "context"

// Handler is a transport-agnostic request/response call: payload in,
// payload out. The LLM and embedding clients each wrap their HTTP call
// in a Handler so the same retry/breaker middleware applies to both.
type Handler func(ctx context.Context, payload []byte) ([]byte, error)

// Middleware wraps a Handler with additional behavior.
type Middleware func(next Handler) Handler

// Chain applies middlewares to base in order, so the first Middleware is
// the outermost wrapper.
func Chain(base Handler, mw ...Middleware) Handler {
	h := base
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
