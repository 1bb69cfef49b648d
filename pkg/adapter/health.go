package adapter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/adspilot/core/pkg/domain"
)

// HealthMonitor polls every registered adapter's Health() on an interval
// independent of tick cadence, so a platform outage is known before the
// next tick's get_performance call times out. Modeled on tarsy's
// pkg/mcp/health.go HealthMonitor, narrowed to this domain's single
// Health() capability (MCP servers expose a richer ping+tool-count
// surface; ad-platform adapters only need OK/not-OK).
type HealthMonitor struct {
	registry *Registry
	interval time.Duration
	timeout  time.Duration

	mu       sync.RWMutex
	statuses map[domain.PlatformId]HealthResult

	cancel context.CancelFunc
	done   chan struct{}
}

// NewHealthMonitor creates a monitor over registry polling every interval,
// allowing timeout per health check.
func NewHealthMonitor(registry *Registry, interval, timeout time.Duration) *HealthMonitor {
	return &HealthMonitor{
		registry: registry,
		interval: interval,
		timeout:  timeout,
		statuses: make(map[domain.PlatformId]HealthResult),
	}
}

// Start launches the background polling loop. Calling Start twice without
// an intervening Stop is a caller bug.
func (m *HealthMonitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.pollAll(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.pollAll(ctx)
			}
		}
	}()
}

// Stop halts the polling loop and waits for it to exit.
func (m *HealthMonitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

func (m *HealthMonitor) pollAll(ctx context.Context) {
	for _, a := range m.registry.All() {
		checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
		result := a.Health(checkCtx)
		cancel()

		m.mu.Lock()
		m.statuses[a.Platform()] = result
		m.mu.Unlock()

		if !result.OK {
			slog.Warn("adapter health check failed", "platform", a.Platform(), "detail", result.Detail)
		}
	}
}

// Status returns the last-known health for platform, and whether any
// result has been recorded yet.
func (m *HealthMonitor) Status(platform domain.PlatformId) (HealthResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.statuses[platform]
	return r, ok
}

// Snapshot returns the health of every platform seen so far.
func (m *HealthMonitor) Snapshot() map[domain.PlatformId]HealthResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[domain.PlatformId]HealthResult, len(m.statuses))
	for k, v := range m.statuses {
		out[k] = v
	}
	return out
}
