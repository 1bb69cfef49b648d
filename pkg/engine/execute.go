package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adspilot/core/pkg/adapter"
	"github.com/adspilot/core/pkg/currency"
	"github.com/adspilot/core/pkg/domain"
)

// decreaseFirst is the set of proposal kinds executed ahead of
// increaseLast, so a platform's committed budget (I3) never transiently
// exceeds its ceiling by executing an increase before its paired decrease
// has landed (spec §4.3 "decrease/pause changes execute before increases
// within a tick").
var decreaseFirst = map[domain.ProposalKind]bool{
	domain.ProposalPause:          true,
	domain.ProposalDecreaseBudget: true,
	domain.ProposalReallocate:     true,
}

var increaseLast = map[domain.ProposalKind]bool{
	domain.ProposalResume:         true,
	domain.ProposalIncreaseBudget: true,
}

// execute runs every AUTO_EXECUTE proposal against its platform adapter,
// decreases/pauses first, then increases/resumes, each pass bounded by
// cfg.ConcurrencyCap per the platform fan-out cap. Every proposal ledgers
// exactly one ActionRecord (I1) regardless of outcome.
func (e *Engine) execute(ctx context.Context, items []gated, now time.Time) {
	var first, last, other []gated
	for _, g := range items {
		switch {
		case decreaseFirst[g.proposal.Kind]:
			first = append(first, g)
		case increaseLast[g.proposal.Kind]:
			last = append(last, g)
		default:
			other = append(other, g)
		}
	}

	e.executeBatch(ctx, first, now)
	e.executeBatch(ctx, other, now)
	e.executeBatch(ctx, last, now)
}

func (e *Engine) executeBatch(ctx context.Context, items []gated, now time.Time) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, e.cfg.ConcurrencyCap)

	for _, g := range items {
		g := g
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			e.executeOne(ctx, g, now)
		}()
	}
	wg.Wait()
}

func (e *Engine) executeOne(ctx context.Context, g gated, now time.Time) {
	a, err := e.registry.Get(g.proposal.CampaignRef.PlatformId)
	if err != nil {
		e.recordExecutionResult(ctx, g, now, domain.ActionFailed, g.proposal.ToState, err.Error())
		return
	}

	idempotencyKey := g.proposal.ID
	execErr := e.applyProposal(ctx, a, g.proposal, idempotencyKey)

	if execErr != nil {
		var aerr *adapter.Error
		if errors.As(execErr, &aerr) {
			slog.Warn("engine: adapter execution failed", "proposal", g.proposal.ID, "kind", aerr.Kind, "error", aerr.Err)
		} else {
			slog.Error("engine: execution failed", "proposal", g.proposal.ID, "error", execErr)
		}
		e.recordExecutionResult(ctx, g, now, domain.ActionFailed, g.proposal.ToState, execErr.Error())
		return
	}

	e.applyCounterDelta(g.proposal, now)

	// I2 requires after_state to reflect a post-execution read-back, not
	// the value we asked for — the platform may clamp, round, or otherwise
	// not grant exactly what was requested.
	afterState := e.readBackState(ctx, a, g.proposal)
	e.recordExecutionResult(ctx, g, now, domain.ActionSuccess, afterState, "")
}

// readBackState re-fetches the campaign from the adapter after a write and
// returns the observed after-state string in the same encoding as
// Proposal.ToState (a decimal budget string for budget-change kinds, the
// CampaignStatus string for pause/resume). Falls back to the requested
// ToState, logged as a warning, if the platform can't be re-queried within
// this grace window — a missed read-back must not block the tick.
func (e *Engine) readBackState(ctx context.Context, a adapter.Adapter, p domain.Proposal) string {
	campaigns, err := a.ListCampaigns(ctx, nil)
	if err != nil {
		slog.Warn("engine: read-back failed, recording requested state", "proposal", p.ID, "error", err)
		return p.ToState
	}
	for _, c := range campaigns {
		if c.Ref != p.CampaignRef {
			continue
		}
		if p.Kind.IsBudgetChange() {
			return c.DailyBudget.StringFixed(2)
		}
		return string(c.Status)
	}
	slog.Warn("engine: read-back found no matching campaign, recording requested state", "proposal", p.ID)
	return p.ToState
}

func (e *Engine) applyProposal(ctx context.Context, a adapter.Adapter, p domain.Proposal, idempotencyKey string) error {
	switch p.Kind {
	case domain.ProposalPause:
		return a.SetStatus(ctx, p.CampaignRef.ExternalId, domain.CampaignPaused, idempotencyKey)
	case domain.ProposalResume:
		return a.SetStatus(ctx, p.CampaignRef.ExternalId, domain.CampaignEnabled, idempotencyKey)
	case domain.ProposalIncreaseBudget, domain.ProposalDecreaseBudget, domain.ProposalReallocate:
		newBudget, ok := p.NewBudget()
		if !ok {
			return errors.New("engine: proposal has unparsable target budget")
		}
		return a.UpdateBudget(ctx, p.CampaignRef.ExternalId, newBudget, idempotencyKey)
	default:
		return errors.New("engine: proposal kind is not auto-executable")
	}
}

// applyCounterDelta folds a successfully executed budget-change proposal
// into today's running counters (spec §4.5/§4.4 I4/I5 bookkeeping).
func (e *Engine) applyCounterDelta(p domain.Proposal, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rolloverCountersLocked(now)
	e.counters.AdjustmentsMade++

	if !p.Kind.IsBudgetChange() {
		return
	}
	newBudget, ok := p.NewBudget()
	if !ok {
		return
	}
	delta := newBudget.Sub(p.PreTickBudget).Abs()
	e.counters.AbsoluteBudgetMoved = e.counters.AbsoluteBudgetMoved.Add(delta)
	if e.counters.PerCampaignBudgetDelta == nil {
		e.counters.PerCampaignBudgetDelta = make(map[domain.CampaignRef]currency.Amount)
	}
	e.counters.PerCampaignBudgetDelta[p.CampaignRef] = e.counters.PerCampaignBudgetDelta[p.CampaignRef].Add(delta)
	if e.counters.PerPlatformSpendDelta == nil {
		e.counters.PerPlatformSpendDelta = make(map[domain.PlatformId]currency.Amount)
	}
	e.counters.PerPlatformSpendDelta[p.CampaignRef.PlatformId] = e.counters.PerPlatformSpendDelta[p.CampaignRef.PlatformId].Add(delta)
}

// roundingDriftThreshold is one canonical minor unit (spec §8: cumulative
// FX-rounding drift must never exceed this per campaign per day).
var roundingDriftThreshold = decimalFromString("0.01")

func decimalFromString(s string) currency.Amount {
	amt, _ := currency.FromDecimalString(s)
	return amt
}

// accountRoundingResidual folds a normalised sample's discarded FX-rounding
// residual into today's per-campaign running total and raises a warning if
// the cumulative drift breaches roundingDriftThreshold (spec §8's bounded
// cumulative-drift property).
func (e *Engine) accountRoundingResidual(campaign domain.CampaignRef, spendResidual, revenueResidual currency.Amount, now time.Time) {
	e.mu.Lock()
	e.rolloverCountersLocked(now)
	if e.counters.PerCampaignRoundingResidual == nil {
		e.counters.PerCampaignRoundingResidual = make(map[domain.CampaignRef]currency.Amount)
	}
	total := e.counters.PerCampaignRoundingResidual[campaign].Add(spendResidual).Add(revenueResidual)
	e.counters.PerCampaignRoundingResidual[campaign] = total
	e.mu.Unlock()

	key := roundingDriftKey(campaign)
	if total.Abs().GreaterThan(roundingDriftThreshold) {
		e.warnings.Set(key, fmt.Sprintf("cumulative FX-rounding drift %s exceeds one minor unit", total.String()), campaign.PlatformId, now)
		return
	}
	e.warnings.Clear(key)
}

func roundingDriftKey(c domain.CampaignRef) string {
	return "rounding_drift:" + string(c.PlatformId) + ":" + c.ExternalId
}

// rolloverCountersLocked resets the running counters when now crosses a
// UTC day boundary (now.Truncate(24h)); the configured timezone is not
// applied. Caller must hold e.mu.
func (e *Engine) rolloverCountersLocked(now time.Time) {
	day := now.Truncate(24 * time.Hour)
	if e.counters.Day.Equal(day) {
		return
	}
	e.counters = domain.DailyCounters{
		Day:                         day,
		PerPlatformSpendDelta:       make(map[domain.PlatformId]currency.Amount),
		PerCampaignBudgetDelta:      make(map[domain.CampaignRef]currency.Amount),
		PerCampaignRoundingResidual: make(map[domain.CampaignRef]currency.Amount),
	}
}

func (e *Engine) recordExecutionResult(ctx context.Context, g gated, now time.Time, outcome domain.ActionOutcome, afterState, errText string) {
	rec := domain.ActionRecord{
		ID:          newID(),
		Kind:        domain.RecordProposalOutcome,
		ProposalRef: g.proposal.ID,
		Decision:    g.decision,
		ExecutedAt:  &now,
		BeforeState: g.proposal.FromState,
		AfterState:  afterState,
		Outcome:     outcome,
		Error:       errText,
		RecordedAt:  now,
	}
	e.recordAction(ctx, rec, g.proposal.CampaignRef)
}
