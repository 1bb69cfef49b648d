package domain

import (
	"time"

	"github.com/adspilot/core/pkg/currency"
)

// CampaignRef is the compound identity of a campaign: a platform plus that
// platform's own id for it. Samples and proposals reference campaigns by
// this value only — there is deliberately no back-pointer from Campaign to
// its MetricSamples (see SPEC_FULL design notes on cyclic references).
type CampaignRef struct {
	PlatformId PlatformId
	ExternalId string
}

// Campaign is the read-mostly, adapter-owned record of confirmed platform
// state. It is created on first sight from an adapter and never deleted,
// only transitioned to CampaignRemoved.
type Campaign struct {
	Ref         CampaignRef
	Name        string
	Status      CampaignStatus
	DailyBudget currency.Amount
	Objective   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AgeAt returns the campaign's age at t, used by guardrail rule R2.
func (c Campaign) AgeAt(t time.Time) time.Duration {
	return t.Sub(c.CreatedAt)
}

// MetricSample is an immutable, time-indexed aggregate of campaign
// performance over some reporting range. Derived ratios are computed on
// read, never stored, so they can never drift from their inputs.
type MetricSample struct {
	CampaignRef CampaignRef
	SampleTime  time.Time
	Impressions int64
	Clicks      int64
	Spend       currency.Amount
	Conversions int64
	Revenue     currency.Amount
}

// ROAS is revenue divided by spend; 0 when spend is 0 (never infinity).
func (m MetricSample) ROAS() float64 { return safeDivAmt(m.Revenue, m.Spend) }

// CPC is spend divided by clicks; 0 when clicks is 0.
func (m MetricSample) CPC() float64 {
	if m.Clicks == 0 {
		return 0
	}
	f, _ := m.Spend.Div(decimalFromInt(m.Clicks)).Float64()
	return f
}

// CTR is clicks divided by impressions; 0 when impressions is 0.
func (m MetricSample) CTR() float64 {
	if m.Impressions == 0 {
		return 0
	}
	return float64(m.Clicks) / float64(m.Impressions)
}

// CPA is spend divided by conversions; 0 when conversions is 0.
func (m MetricSample) CPA() float64 {
	if m.Conversions == 0 {
		return 0
	}
	f, _ := m.Spend.Div(decimalFromInt(m.Conversions)).Float64()
	return f
}

// ExpectedImpact is the analyst's forecast of what a proposal will change.
type ExpectedImpact struct {
	SpendDelta    currency.Amount
	RevenueDelta  currency.Amount
	ConversionsDelta float64
	Notes         string
}

// Proposal is a single suggested change produced by the LLM analyst. It is
// consumed exactly once by the Guardrail Gate.
type Proposal struct {
	ID             string
	CampaignRef    CampaignRef
	Kind           ProposalKind
	FromState      string
	ToState        string
	Confidence     float64
	Reasoning      string
	ExpectedImpact ExpectedImpact
	ProducedAt     time.Time

	// PreTickBudget is the campaign's confirmed daily budget as observed at
	// the start of the tick that produced this proposal. Guardrail rule R4
	// and invariant I5 are evaluated against this frozen value, per the
	// "pre-tick budget" resolution of the spec's open question on major
	// change fraction base.
	PreTickBudget currency.Amount
}

// NewBudget returns the proposal's target daily budget for budget-kind
// proposals, parsed from ToState. ok is false for non-budget proposal kinds
// or an unparsable ToState.
func (p Proposal) NewBudget() (amt currency.Amount, ok bool) {
	if !p.Kind.IsBudgetChange() {
		return currency.Zero, false
	}
	return parseAmount(p.ToState)
}

// Decision is the Guardrail Gate's immutable verdict on a proposal.
type Decision struct {
	ProposalID string
	Outcome    DecisionOutcome
	Reason     RejectionReason
	RuleID     string // e.g. "R1".."R6"
	DecidedAt  time.Time
}

// ActionRecord is the ledger's append-only row summarising a proposal's (or
// tick's) fate. Every Proposal resolves to exactly one ActionRecord (I1).
type ActionRecord struct {
	ID          string
	Kind        ActionRecordKind
	ProposalRef string
	Decision    Decision
	ExecutedAt  *time.Time
	BeforeState string
	AfterState  string
	Outcome     ActionOutcome
	Error       string
	RecordedAt  time.Time
}

// GuardrailOverride is a time-boxed override of one guardrail field, itself
// ledgered as a CONFIG_CHANGE ActionRecord when written.
type GuardrailOverride struct {
	Scope     string // "global" or a campaign_ref string
	Field     string
	Value     string
	ExpiresAt time.Time
}

// Guardrails is the read-mostly safety configuration consulted by the gate.
type Guardrails struct {
	ConfidenceThreshold                float64
	MaxDailyAdjustments                int
	MaxBudgetReallocationFractionPerDay float64
	MaxSingleBudgetIncreaseFraction    float64
	MinCampaignRuntimeHoursBeforePause float64
	MajorChangeFraction                float64
	AutomationLevel                    AutomationLevel
	PerCampaignOverrides               map[string]Guardrails
}

// DailyCounters are per-calendar-day running totals, rolled over at UTC
// midnight and reconstructed on cold start by scanning the ledger (§4.5).
type DailyCounters struct {
	Day                  time.Time // truncated to UTC midnight
	AdjustmentsMade      int
	AbsoluteBudgetMoved  currency.Amount
	PerPlatformSpendDelta map[PlatformId]currency.Amount
	// PerCampaignBudgetDelta tracks I5's per-campaign cumulative absolute
	// budget delta for the day.
	PerCampaignBudgetDelta map[CampaignRef]currency.Amount
	// PerCampaignRoundingResidual tracks the cumulative FX-rounding residual
	// discarded by currency.RoundToMinorUnit for each campaign today (§8:
	// must never exceed one minor unit per campaign per day).
	PerCampaignRoundingResidual map[CampaignRef]currency.Amount
}
