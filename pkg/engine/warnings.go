package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/adspilot/core/pkg/domain"
)

// SystemWarnings is the in-memory registry of operationally-visible
// degradations — a platform excluded this tick, the approval queue
// backlogged, the analyst degraded — exposed on the health endpoint
// (SPEC_FULL §D). Adapted from tarsy's services/system_warnings.go: same
// set/clear/snapshot shape, renamed to the ad-optimization vocabulary.
type SystemWarnings struct {
	mu       sync.RWMutex
	warnings map[string]Warning
}

// Warning is one active condition, keyed by Key for idempotent set/clear.
type Warning struct {
	Key       string
	Message   string
	Platform  domain.PlatformId
	RaisedAt  time.Time
}

// NewSystemWarnings returns an empty registry.
func NewSystemWarnings() *SystemWarnings {
	return &SystemWarnings{warnings: make(map[string]Warning)}
}

// Set raises or refreshes a warning under key.
func (w *SystemWarnings) Set(key, message string, platform domain.PlatformId, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.warnings[key] = Warning{Key: key, Message: message, Platform: platform, RaisedAt: now}
}

// Clear removes a warning, a no-op if it wasn't set.
func (w *SystemWarnings) Clear(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.warnings, key)
}

// Snapshot returns every currently active warning.
func (w *SystemWarnings) Snapshot() []Warning {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Warning, 0, len(w.warnings))
	for _, warn := range w.warnings {
		out = append(out, warn)
	}
	return out
}

func platformExcludedKey(p domain.PlatformId) string { return "platform_excluded:" + string(p) }

const (
	warningApprovalQueueBacklog = "approval_queue_backlog"
	warningAnalystDegraded      = "analyst_degraded"

	// approvalBacklogThreshold is the pending-queue depth past which the
	// health endpoint should surface a backlog warning: a queue this deep
	// usually means nobody is triaging approvals, not that volume is
	// briefly spiking.
	approvalBacklogThreshold = 50
)

// checkApprovalBacklog raises or clears warningApprovalQueueBacklog
// depending on the current pending-approval depth.
func (e *Engine) checkApprovalBacklog(now time.Time) {
	pending := len(e.approvals.Snapshot())
	if pending > approvalBacklogThreshold {
		e.warnings.Set(warningApprovalQueueBacklog, fmt.Sprintf("%d proposals awaiting approval", pending), "", now)
		return
	}
	e.warnings.Clear(warningApprovalQueueBacklog)
}
