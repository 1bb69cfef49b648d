package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/adspilot/core/pkg/domain"
)

// persistApprovalEntry durably records a proposal entering the approval
// queue (spec §5's other named piece of shared core state), so a process
// crash while it sits PENDING still leaves an audit trace rather than
// losing it with the in-memory queue (I1, §7 "no silent failures").
func (e *Engine) persistApprovalEntry(ctx context.Context, p domain.Proposal, now time.Time) {
	if err := e.store.SaveApprovalQueueEntry(ctx, p, now, now.Add(e.approvals.TTL())); err != nil {
		slog.Error("engine: persist approval queue entry", "proposal", p.ID, "error", err)
	}
}

// forgetApprovalEntry deletes a persisted entry once it has left
// PENDING/APPROVED for good.
func (e *Engine) forgetApprovalEntry(ctx context.Context, proposalID string) {
	if err := e.store.DeleteApprovalQueueEntry(ctx, proposalID); err != nil {
		slog.Error("engine: delete approval queue entry", "proposal", proposalID, "error", err)
	}
}

// RestoreApprovalQueue rehydrates the in-memory ApprovalQueue from durable
// storage, for a cold start after a crash/restart. Call once before the
// scheduler starts ticking.
func (e *Engine) RestoreApprovalQueue(ctx context.Context) error {
	entries, err := e.store.ListApprovalQueueEntries(ctx)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		e.approvals.RestoreEntry(entry.Proposal, entry.QueuedAt, entry.ExpiresAt)
	}
	return nil
}
