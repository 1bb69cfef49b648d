package guardrail

import (
	"github.com/adspilot/core/pkg/domain"
)

// Evaluator runs the ordered rule sequence and applies the automation_level
// override of spec §6 (ADVISORY forces R6→APPROVAL_REQUIRED; SEMI forces
// the R4 threshold to 0, i.e. every budget change requires approval).
type Evaluator struct {
	rules []Rule
}

// NewEvaluator builds an evaluator over rules, in evaluation order.
func NewEvaluator(rules []Rule) *Evaluator {
	return &Evaluator{rules: rules}
}

// Evaluate runs p through the rule sequence and returns the first matching
// Decision, with the automation-level override applied afterward.
func (e *Evaluator) Evaluate(p domain.Proposal, s State, g domain.Guardrails) domain.Decision {
	effective := g
	if g.AutomationLevel == domain.AutomationSemi {
		effective.MajorChangeFraction = 0
	}

	for _, rule := range e.rules {
		matched, outcome, reason := rule.Eval(p, s, effective)
		if !matched {
			continue
		}

		if outcome == domain.DecisionAutoExecute && g.AutomationLevel == domain.AutomationAdvisory {
			outcome = domain.DecisionApprovalRequired
			reason = domain.ReasonAdvisoryMode
		}

		return domain.Decision{
			ProposalID: p.ID,
			Outcome:    outcome,
			Reason:     reason,
			RuleID:     rule.ID,
			DecidedAt:  s.Now,
		}
	}

	// Unreachable: R6 always matches. Kept as a fail-safe so a bug in the
	// rule chain surfaces as an explicit rejection, never a silent pass.
	return domain.Decision{
		ProposalID: p.ID,
		Outcome:    domain.DecisionRejected,
		Reason:     domain.ReasonWithinLimits,
		RuleID:     "",
		DecidedAt:  s.Now,
	}
}

// Recheck re-evaluates p against the current state at execution time, the
// mandatory re-check for approved proposals per §4.4 ("not re-guardrailing:
// invariants I3-I6 are re-checked at execution time"). It only runs the
// invariant-bearing rules (R2, R3) plus R1, since R4/R5 are escalation
// rules that already got this proposal to the approval queue and are not
// re-litigated on approval.
func (e *Evaluator) Recheck(p domain.Proposal, s State, g domain.Guardrails) domain.Decision {
	recheckRules := []Rule{R1LowConfidence, R2InsufficientRuntime, R3InvariantViolation}
	for _, rule := range recheckRules {
		matched, outcome, _ := rule.Eval(p, s, g)
		if matched {
			return domain.Decision{
				ProposalID: p.ID,
				Outcome:    outcome,
				Reason:     domain.ReasonGuardrailRecheckFail,
				RuleID:     rule.ID,
				DecidedAt:  s.Now,
			}
		}
	}
	return domain.Decision{
		ProposalID: p.ID,
		Outcome:    domain.DecisionAutoExecute,
		Reason:     domain.ReasonWithinLimits,
		RuleID:     "R6",
		DecidedAt:  s.Now,
	}
}
