package guardrail

import (
	"testing"
	"time"

	"github.com/adspilot/core/pkg/currency"
	"github.com/adspilot/core/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func defaultGuardrails() domain.Guardrails {
	return domain.Guardrails{
		ConfidenceThreshold:                0.85,
		MaxDailyAdjustments:                10,
		MaxBudgetReallocationFractionPerDay: 0.5,
		MaxSingleBudgetIncreaseFraction:     0.5,
		MinCampaignRuntimeHoursBeforePause:  72,
		MajorChangeFraction:                0.20,
		AutomationLevel:                    domain.AutomationFull,
	}
}

func TestScenario1HappyIncreaseTriggersR4(t *testing.T) {
	eval := NewEvaluator(DefaultRules)
	p := domain.Proposal{
		ID:            "p1",
		CampaignRef:   domain.CampaignRef{PlatformId: domain.PlatformGoogleAds, ExternalId: "G1"},
		Kind:          domain.ProposalIncreaseBudget,
		Confidence:    0.90,
		PreTickBudget: currency.FromCents(10000),
		ToState:       "130.00",
	}
	s := State{Now: time.Now(), Campaign: domain.Campaign{CreatedAt: time.Now().Add(-1000 * time.Hour)}}

	d := eval.Evaluate(p, s, defaultGuardrails())
	assert.Equal(t, domain.DecisionApprovalRequired, d.Outcome)
	assert.Equal(t, domain.ReasonMajorChange, d.Reason)
	assert.Equal(t, "R4", d.RuleID)
}

func TestScenario2AutoExecutedDecreaseAtExactlyThreshold(t *testing.T) {
	eval := NewEvaluator(DefaultRules)
	p := domain.Proposal{
		ID:            "p2",
		Kind:          domain.ProposalDecreaseBudget,
		Confidence:    0.93,
		PreTickBudget: currency.FromCents(8000),
		ToState:       "64.00",
	}
	s := State{Now: time.Now(), Campaign: domain.Campaign{CreatedAt: time.Now().Add(-1000 * time.Hour)}}

	d := eval.Evaluate(p, s, defaultGuardrails())
	assert.Equal(t, domain.DecisionAutoExecute, d.Outcome)
	assert.Equal(t, "R6", d.RuleID)
}

func TestScenario3PauseBlockedByRuntime(t *testing.T) {
	eval := NewEvaluator(DefaultRules)
	p := domain.Proposal{ID: "p3", Kind: domain.ProposalPause, Confidence: 0.95}
	s := State{Now: time.Now(), Campaign: domain.Campaign{CreatedAt: time.Now().Add(-40 * time.Hour)}}

	d := eval.Evaluate(p, s, defaultGuardrails())
	assert.Equal(t, domain.DecisionRejected, d.Outcome)
	assert.Equal(t, domain.ReasonInsufficientRuntime, d.Reason)
	assert.Equal(t, "R2", d.RuleID)
}

func TestScenario4LowConfidenceRejected(t *testing.T) {
	eval := NewEvaluator(DefaultRules)
	p := domain.Proposal{
		ID:            "p4",
		Kind:          domain.ProposalReallocate,
		Confidence:    0.78,
		PreTickBudget: currency.FromCents(200000),
		ToState:       "0.00",
	}
	s := State{Now: time.Now(), Campaign: domain.Campaign{CreatedAt: time.Now().Add(-1000 * time.Hour)}}

	d := eval.Evaluate(p, s, defaultGuardrails())
	assert.Equal(t, domain.DecisionRejected, d.Outcome)
	assert.Equal(t, domain.ReasonLowConfidence, d.Reason)
	assert.Equal(t, "R1", d.RuleID)
}

func TestConfidenceExactlyAtThresholdIsAccepted(t *testing.T) {
	matched, _, _ := R1LowConfidence.Eval(
		domain.Proposal{Confidence: 0.85},
		State{},
		domain.Guardrails{ConfidenceThreshold: 0.85},
	)
	assert.False(t, matched)
}

func TestR3PlatformCeilingViolation(t *testing.T) {
	ceiling := currency.FromCents(100000) // $1000
	p := domain.Proposal{
		Kind:          domain.ProposalIncreaseBudget,
		PreTickBudget: currency.FromCents(50000),
		ToState:       "600.00",
	}
	s := State{
		PlatformEnabledBudget: currency.FromCents(50000), // other campaigns already at $500
		PlatformCeiling:       &ceiling,
	}
	matched, outcome, reason := R3InvariantViolation.Eval(p, s, defaultGuardrails())
	assert.True(t, matched)
	assert.Equal(t, domain.DecisionRejected, outcome)
	assert.Equal(t, domain.ReasonPlatformCeiling, reason)
}

func TestR5HighImpactKindEscalates(t *testing.T) {
	matched, outcome, reason := R5HighImpactKind.Eval(
		domain.Proposal{Kind: domain.ProposalStrategyChange},
		State{},
		domain.Guardrails{},
	)
	assert.True(t, matched)
	assert.Equal(t, domain.DecisionApprovalRequired, outcome)
	assert.Equal(t, domain.ReasonHighImpactKind, reason)
}

func TestAdvisoryModeForcesApprovalRequired(t *testing.T) {
	eval := NewEvaluator(DefaultRules)
	g := defaultGuardrails()
	g.AutomationLevel = domain.AutomationAdvisory

	p := domain.Proposal{
		ID:            "p5",
		Kind:          domain.ProposalDecreaseBudget,
		Confidence:    0.93,
		PreTickBudget: currency.FromCents(8000),
		ToState:       "64.00",
	}
	s := State{Now: time.Now(), Campaign: domain.Campaign{CreatedAt: time.Now().Add(-1000 * time.Hour)}}

	d := eval.Evaluate(p, s, g)
	assert.Equal(t, domain.DecisionApprovalRequired, d.Outcome)
	assert.Equal(t, domain.ReasonAdvisoryMode, d.Reason)
}

func TestSemiModeForcesApprovalOnAnyBudgetChange(t *testing.T) {
	eval := NewEvaluator(DefaultRules)
	g := defaultGuardrails()
	g.AutomationLevel = domain.AutomationSemi

	p := domain.Proposal{
		ID:            "p6",
		Kind:          domain.ProposalDecreaseBudget,
		Confidence:    0.93,
		PreTickBudget: currency.FromCents(8000),
		ToState:       "79.00", // tiny 1.25% decrease, would normally auto-execute
	}
	s := State{Now: time.Now(), Campaign: domain.Campaign{CreatedAt: time.Now().Add(-1000 * time.Hour)}}

	d := eval.Evaluate(p, s, g)
	assert.Equal(t, domain.DecisionApprovalRequired, d.Outcome)
	assert.Equal(t, domain.ReasonMajorChange, d.Reason)
}
