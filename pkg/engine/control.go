package engine

import (
	"context"
	"time"

	"github.com/adspilot/core/pkg/domain"
)

// PendingApproval is one entry of list_pending_approvals' response (§6).
type PendingApproval struct {
	Proposal  domain.Proposal
	QueuedAt  time.Time
	ExpiresAt time.Time
}

// ListPendingApprovals is the inbound list_pending_approvals verb.
func (e *Engine) ListPendingApprovals() []PendingApproval {
	snap := e.approvals.Snapshot()
	out := make([]PendingApproval, 0, len(snap))
	for _, entry := range snap {
		out = append(out, PendingApproval{
			Proposal:  entry.Proposal,
			QueuedAt:  entry.QueuedAt,
			ExpiresAt: entry.ExpiresAt,
		})
	}
	return out
}

// Approve is the inbound approve(proposal_id) verb. It only flips the
// queue entry's state — the proposal is re-checked and executed on the
// engine's next tick (spec §9 "approval mid-tick" resolution), never
// inline with the approve call.
func (e *Engine) Approve(proposalID string) (domain.Proposal, error) {
	return e.approvals.Approve(proposalID)
}

// Reject is the inbound reject(proposal_id, reason) verb. It ledgers an
// immediate CANCELLED ActionRecord, since a human rejection is terminal
// and does not need the next tick's re-check pass.
func (e *Engine) Reject(ctx context.Context, proposalID, reason string) error {
	snap := e.approvals.Snapshot()
	var proposal domain.Proposal
	found := false
	for _, entry := range snap {
		if entry.Proposal.ID == proposalID {
			proposal = entry.Proposal
			found = true
			break
		}
	}

	if err := e.approvals.Reject(proposalID, reason); err != nil {
		return err
	}
	if !found {
		return nil
	}

	now := e.now()
	rec := domain.ActionRecord{
		ID:          newID(),
		Kind:        domain.RecordProposalOutcome,
		ProposalRef: proposal.ID,
		Decision: domain.Decision{
			ProposalID: proposal.ID,
			Outcome:    domain.DecisionApprovalRequired,
			Reason:     domain.ReasonWithinLimits,
			DecidedAt:  now,
		},
		BeforeState: proposal.FromState,
		AfterState:  proposal.ToState,
		Outcome:     domain.ActionCancelled,
		Error:       reason,
		RecordedAt:  now,
	}
	e.recordAction(ctx, rec, proposal.CampaignRef)
	e.forgetApprovalEntry(ctx, proposal.ID)
	return nil
}

// GetRecentActions is the inbound get_recent_actions(since) verb.
func (e *Engine) GetRecentActions(ctx context.Context, since time.Time) ([]domain.ActionRecord, error) {
	return e.store.GetRecentActions(ctx, since)
}

// OverrideGuardrail is the inbound override_guardrail verb: it writes a
// time-boxed override and ledgers the write as a CONFIG_CHANGE ActionRecord
// (spec §3), since overrides are themselves consequential, auditable
// configuration changes.
func (e *Engine) OverrideGuardrail(ctx context.Context, override domain.GuardrailOverride) error {
	e.overrides.Set(override)
	return e.store.RecordConfigChange(ctx, override.Scope, override.Field, override.Value)
}

// EffectiveGuardrails returns the guardrails currently in force for scope,
// base config plus any live override — exposed for operational visibility.
func (e *Engine) EffectiveGuardrails(scope string) domain.Guardrails {
	return e.overrides.Effective(e.baseGuardrails, scope)
}
