// Package guardrail implements the Guardrail & Approval Gate of spec §4.4:
// the safety predicate that classifies each proposed action as
// auto-executable, approval-required, or rejected. Rules are pure
// functions over (proposal, state, config) evaluated in order, first match
// wins, each independently addressable so tests can target individual
// clauses — grounded in tarsy's pkg/config/validator.go, which evaluates
// an ordered sequence of validateX() checks and returns on first failure.
package guardrail

import (
	"time"

	"github.com/adspilot/core/pkg/currency"
	"github.com/adspilot/core/pkg/domain"
	"github.com/shopspring/decimal"
)

// State is the subset of live system state a rule needs to evaluate a
// proposal: the campaign it targets, today's running counters, and
// platform-wide committed budgets (for I3).
type State struct {
	Campaign             domain.Campaign
	Now                  time.Time
	Counters             domain.DailyCounters
	PlatformEnabledBudget currency.Amount // sum of confirmed daily budgets of ENABLED campaigns on the proposal's platform, excluding this campaign's current budget
	PlatformCeiling      *currency.Amount // nil if no ceiling configured
}

// Rule is one addressable clause of the R1-R6 sequence. It returns
// matched=true plus the terminal outcome/reason when the rule fires;
// matched=false falls through to the next rule.
type Rule struct {
	ID   string
	Eval func(p domain.Proposal, s State, g domain.Guardrails) (matched bool, outcome domain.DecisionOutcome, reason domain.RejectionReason)
}

// R1LowConfidence rejects any proposal below the confidence threshold.
// Uses strict '<' so confidence == threshold is accepted (spec §8 boundary
// behaviour).
var R1LowConfidence = Rule{
	ID: "R1",
	Eval: func(p domain.Proposal, s State, g domain.Guardrails) (bool, domain.DecisionOutcome, domain.RejectionReason) {
		if p.Confidence < g.ConfidenceThreshold {
			return true, domain.DecisionRejected, domain.ReasonLowConfidence
		}
		return false, "", ""
	},
}

// R2InsufficientRuntime rejects a PAUSE on a campaign younger than the
// configured minimum runtime.
var R2InsufficientRuntime = Rule{
	ID: "R2",
	Eval: func(p domain.Proposal, s State, g domain.Guardrails) (bool, domain.DecisionOutcome, domain.RejectionReason) {
		if p.Kind != domain.ProposalPause {
			return false, "", ""
		}
		ageHours := s.Campaign.AgeAt(s.Now).Hours()
		if ageHours < g.MinCampaignRuntimeHoursBeforePause {
			return true, domain.DecisionRejected, domain.ReasonInsufficientRuntime
		}
		return false, "", ""
	},
}

// R3InvariantViolation rejects any proposal whose execution would violate
// I3 (platform ceiling), I4 (daily adjustment cap), or I5 (per-campaign
// budget delta cap).
var R3InvariantViolation = Rule{
	ID: "R3",
	Eval: func(p domain.Proposal, s State, g domain.Guardrails) (bool, domain.DecisionOutcome, domain.RejectionReason) {
		if s.PlatformCeiling != nil && p.Kind.IsBudgetChange() {
			if newBudget, ok := p.NewBudget(); ok {
				projected := s.PlatformEnabledBudget.Add(newBudget)
				if projected.GreaterThan(*s.PlatformCeiling) {
					return true, domain.DecisionRejected, domain.ReasonPlatformCeiling
				}
			}
		}

		if g.MaxDailyAdjustments > 0 && s.Counters.AdjustmentsMade >= g.MaxDailyAdjustments {
			return true, domain.DecisionRejected, domain.ReasonDailyAdjustmentCap
		}

		if p.Kind.IsBudgetChange() {
			if newBudget, ok := p.NewBudget(); ok {
				delta := newBudget.Sub(p.PreTickBudget).Abs()
				existing := s.Counters.PerCampaignBudgetDelta[p.CampaignRef]
				cumulative := existing.Add(delta)
				cap := p.PreTickBudget.Mul(decimal.NewFromFloat(g.MaxSingleBudgetIncreaseFraction))
				if cumulative.GreaterThan(cap) {
					return true, domain.DecisionRejected, domain.ReasonBudgetDeltaCap
				}
			}
		}

		return false, "", ""
	},
}

// R4MajorChange escalates budget changes whose fractional delta exceeds
// major_change_fraction. Uses strict '>' so a delta exactly at the
// threshold does not escalate (spec §8 literal scenario 2).
var R4MajorChange = Rule{
	ID: "R4",
	Eval: func(p domain.Proposal, s State, g domain.Guardrails) (bool, domain.DecisionOutcome, domain.RejectionReason) {
		if !p.Kind.IsBudgetChange() {
			return false, "", ""
		}
		newBudget, ok := p.NewBudget()
		if !ok {
			return false, "", ""
		}
		fraction := currency.DeltaFraction(p.PreTickBudget, newBudget)
		if fraction > g.MajorChangeFraction {
			return true, domain.DecisionApprovalRequired, domain.ReasonMajorChange
		}
		return false, "", ""
	},
}

// R5HighImpactKind escalates proposal kinds the spec treats as always
// requiring a human, regardless of confidence or budget math.
var R5HighImpactKind = Rule{
	ID: "R5",
	Eval: func(p domain.Proposal, s State, g domain.Guardrails) (bool, domain.DecisionOutcome, domain.RejectionReason) {
		if p.Kind == domain.ProposalCreateCampaign || p.Kind == domain.ProposalStrategyChange {
			return true, domain.DecisionApprovalRequired, domain.ReasonHighImpactKind
		}
		return false, "", ""
	},
}

// R6WithinLimits is the fallback: every proposal that survives R1-R5 is
// auto-executable, subject to the automation level override below.
var R6WithinLimits = Rule{
	ID: "R6",
	Eval: func(p domain.Proposal, s State, g domain.Guardrails) (bool, domain.DecisionOutcome, domain.RejectionReason) {
		return true, domain.DecisionAutoExecute, domain.ReasonWithinLimits
	},
}

// DefaultRules is the canonical R1-R6 sequence in evaluation order.
var DefaultRules = []Rule{
	R1LowConfidence,
	R2InsufficientRuntime,
	R3InvariantViolation,
	R4MajorChange,
	R5HighImpactKind,
	R6WithinLimits,
}
