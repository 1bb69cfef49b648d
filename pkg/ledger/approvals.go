package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/adspilot/core/pkg/currency"
	"github.com/adspilot/core/pkg/domain"
)

// ApprovalQueueEntry is a persisted PENDING/APPROVED approval-queue row, the
// durable counterpart of guardrail.QueueEntry.
type ApprovalQueueEntry struct {
	Proposal  domain.Proposal
	QueuedAt  time.Time
	ExpiresAt time.Time
}

// SaveApprovalQueueEntry durably records a proposal entering the approval
// queue, so a crash before it is resolved still leaves an audit trace (§7
// "no silent failures") instead of the proposal simply vanishing with the
// in-memory queue. Idempotent: re-enqueuing the same proposal id (a retried
// tick observing its own earlier write) is a no-op, not an error.
func (c *Client) SaveApprovalQueueEntry(ctx context.Context, p domain.Proposal, queuedAt, expiresAt time.Time) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO pending_approvals (
			proposal_id, platform_id, external_id, kind, from_state, to_state,
			confidence, reasoning, expected_spend_delta, expected_revenue_delta,
			expected_conversions_delta, notes, produced_at, pre_tick_budget,
			queued_at, expires_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (proposal_id) DO NOTHING
	`,
		p.ID, string(p.CampaignRef.PlatformId), p.CampaignRef.ExternalId, string(p.Kind), p.FromState, p.ToState,
		p.Confidence, p.Reasoning, p.ExpectedImpact.SpendDelta, p.ExpectedImpact.RevenueDelta,
		p.ExpectedImpact.ConversionsDelta, p.ExpectedImpact.Notes, p.ProducedAt, p.PreTickBudget,
		queuedAt, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("ledger: save approval queue entry: %w", err)
	}
	return nil
}

// DeleteApprovalQueueEntry removes a persisted entry once it has left
// PENDING/APPROVED for good (drained for execution, rejected, or expired).
func (c *Client) DeleteApprovalQueueEntry(ctx context.Context, proposalID string) error {
	_, err := c.pool.Exec(ctx, `DELETE FROM pending_approvals WHERE proposal_id = $1`, proposalID)
	if err != nil {
		return fmt.Errorf("ledger: delete approval queue entry: %w", err)
	}
	return nil
}

// ListApprovalQueueEntries returns every persisted entry, for the engine to
// rehydrate its in-memory ApprovalQueue on startup after a crash/restart.
func (c *Client) ListApprovalQueueEntries(ctx context.Context) ([]ApprovalQueueEntry, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT proposal_id, platform_id, external_id, kind, from_state, to_state,
		       confidence, reasoning, expected_spend_delta, expected_revenue_delta,
		       expected_conversions_delta, notes, produced_at, pre_tick_budget,
		       queued_at, expires_at
		FROM pending_approvals
	`)
	if err != nil {
		return nil, fmt.Errorf("ledger: list approval queue entries: %w", err)
	}
	defer rows.Close()

	var out []ApprovalQueueEntry
	for rows.Next() {
		var (
			platformID, externalID, kind string
			entry                        ApprovalQueueEntry
			spendDelta, revenueDelta     currency.Amount
		)
		if err := rows.Scan(
			&entry.Proposal.ID, &platformID, &externalID, &kind, &entry.Proposal.FromState, &entry.Proposal.ToState,
			&entry.Proposal.Confidence, &entry.Proposal.Reasoning, &spendDelta, &revenueDelta,
			&entry.Proposal.ExpectedImpact.ConversionsDelta, &entry.Proposal.ExpectedImpact.Notes,
			&entry.Proposal.ProducedAt, &entry.Proposal.PreTickBudget,
			&entry.QueuedAt, &entry.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("ledger: scan approval queue entry: %w", err)
		}
		entry.Proposal.CampaignRef = domain.CampaignRef{PlatformId: domain.PlatformId(platformID), ExternalId: externalID}
		entry.Proposal.Kind = domain.ProposalKind(kind)
		entry.Proposal.ExpectedImpact.SpendDelta = spendDelta
		entry.Proposal.ExpectedImpact.RevenueDelta = revenueDelta
		out = append(out, entry)
	}
	return out, rows.Err()
}
