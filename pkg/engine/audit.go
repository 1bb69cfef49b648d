package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/adspilot/core/pkg/domain"
	"github.com/adspilot/core/pkg/ledger"
	"github.com/google/uuid"
)

func newID() string { return uuid.NewString() }

// recordAction writes rec, treating a duplicate-proposal conflict as
// benign: a retried tick observing its own prior write is the round-trip
// idempotence spec §8 requires, not a failure.
func (e *Engine) recordAction(ctx context.Context, rec domain.ActionRecord, ref domain.CampaignRef) {
	if err := e.store.RecordAction(ctx, rec, ref); err != nil && !errors.Is(err, ledger.ErrDuplicateProposal) {
		slog.Error("engine: record action", "proposal", rec.ProposalRef, "error", err)
	}
}

// recordTickSkipped ledgers a TICK_SKIPPED row when the engine could not
// acquire the exclusive tick lease this cadence.
func (e *Engine) recordTickSkipped(ctx context.Context, reason string) error {
	now := e.now()
	rec := domain.ActionRecord{
		ID:         newID(),
		Kind:       domain.RecordTickSkipped,
		Outcome:    domain.ActionCancelled,
		Error:      reason,
		RecordedAt: now,
	}
	e.recordAction(ctx, rec, domain.CampaignRef{})
	return nil
}

// recordTickFailed ledgers a TICK_FAILED row for an unrecoverable error
// encountered mid-tick (state machine's any-state-to-FAILED transition).
func (e *Engine) recordTickFailed(ctx context.Context, err error) error {
	now := e.now()
	rec := domain.ActionRecord{
		ID:         newID(),
		Kind:       domain.RecordTickFailed,
		Outcome:    domain.ActionFailed,
		Error:      err.Error(),
		RecordedAt: now,
	}
	e.recordAction(ctx, rec, domain.CampaignRef{})
	return nil
}

// recordPlatformExcluded ledgers a PLATFORM_EXCLUDED row for a platform
// that could not be collected from this tick.
func (e *Engine) recordPlatformExcluded(ctx context.Context, platform domain.PlatformId, reason string) {
	now := e.now()
	rec := domain.ActionRecord{
		ID:         newID(),
		Kind:       domain.RecordPlatformExcluded,
		Outcome:    domain.ActionFailed,
		Error:      reason,
		RecordedAt: now,
	}
	e.recordAction(ctx, rec, domain.CampaignRef{PlatformId: platform})
}
