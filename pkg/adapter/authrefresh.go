package adapter

import (
	"context"
	"sync"
)

// RefreshFunc performs the actual token refresh against the platform.
type RefreshFunc func(ctx context.Context) error

// SingleFlightRefresher ensures that when an adapter hits AUTH_EXPIRED,
// exactly one background refresh runs and every concurrent caller waits on
// its result, rather than each caller racing its own refresh request
// against the platform's auth endpoint. Mirrors the per-server
// reinitMu.LoadOrStore pattern in tarsy's pkg/mcp/client.go, generalised
// from "reinitialize an MCP session" to "refresh an OAuth token".
type SingleFlightRefresher struct {
	mu      sync.Mutex
	inFlight *refreshCall
	refresh  RefreshFunc
}

type refreshCall struct {
	done chan struct{}
	err  error
}

// NewSingleFlightRefresher wraps fn so concurrent Refresh calls collapse
// into one execution of fn.
func NewSingleFlightRefresher(fn RefreshFunc) *SingleFlightRefresher {
	return &SingleFlightRefresher{refresh: fn}
}

// Refresh runs the wrapped refresh function at most once per overlapping
// call set; every caller that arrives while a refresh is in flight blocks
// until it completes and receives the same error.
func (r *SingleFlightRefresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	if r.inFlight != nil {
		call := r.inFlight
		r.mu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	r.inFlight = call
	r.mu.Unlock()

	err := r.refresh(ctx)

	r.mu.Lock()
	r.inFlight = nil
	r.mu.Unlock()

	call.err = err
	close(call.done)
	return err
}
