package engine

import (
	"context"
	"time"

	"github.com/adspilot/core/pkg/domain"
)

// gated pairs a proposal with the Decision the evaluator reached for it.
type gated struct {
	proposal domain.Proposal
	decision domain.Decision
}

// gate runs every proposal through the guardrail evaluator. AUTO_EXECUTE
// proposals are returned for the Execute step; APPROVAL_REQUIRED proposals
// are queued for human disposition (and not yet ledgered — the ledger row
// is written once at terminal disposition, per I1); REJECTED proposals are
// returned for an immediate ledger write.
func (e *Engine) gate(ctx context.Context, proposals []domain.Proposal, now time.Time) (executable []gated, rejected []gated) {
	for _, p := range proposals {
		state := e.ruleState(ctx, p, now)
		g := e.overrides.Effective(e.baseGuardrails, scopeFor(p.CampaignRef))
		decision := e.evaluator.Evaluate(p, state, g)

		switch decision.Outcome {
		case domain.DecisionAutoExecute:
			executable = append(executable, gated{proposal: p, decision: decision})
		case domain.DecisionApprovalRequired:
			e.approvals.Enqueue(p)
			e.persistApprovalEntry(ctx, p, now)
		case domain.DecisionRejected:
			rejected = append(rejected, gated{proposal: p, decision: decision})
		}
	}
	return executable, rejected
}

// recordDecisionOnly ledgers a terminal REJECTED outcome for a proposal
// that never reaches execution.
func (e *Engine) recordDecisionOnly(ctx context.Context, g gated) {
	rec := domain.ActionRecord{
		ID:          newID(),
		Kind:        domain.RecordProposalOutcome,
		ProposalRef: g.proposal.ID,
		Decision:    g.decision,
		BeforeState: g.proposal.FromState,
		AfterState:  g.proposal.ToState,
		Outcome:     domain.ActionFailed,
		RecordedAt:  g.decision.DecidedAt,
	}
	e.recordAction(ctx, rec, g.proposal.CampaignRef)
}
