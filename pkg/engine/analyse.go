package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/adspilot/core/pkg/analyst"
	"github.com/adspilot/core/pkg/domain"
	"github.com/adspilot/core/pkg/guardrail"
)

// analyse asks the LLM analyst for proposals on every campaign collected
// this tick, bounded by cfg.ConcurrencyCap. A single campaign's analyst
// failure does not fail the tick — it is logged and skipped, the same
// partial-failure posture as Collect.
func (e *Engine) analyse(ctx context.Context, collected []platformSamples, now time.Time) []domain.Proposal {
	type job struct {
		ref     domain.CampaignRef
		current domain.MetricSample
	}

	var jobs []job
	for _, ps := range collected {
		for _, s := range ps.samples {
			jobs = append(jobs, job{ref: s.CampaignRef, current: s.MetricSample})
		}
	}

	var (
		mu        sync.Mutex
		proposals []domain.Proposal
		wg        sync.WaitGroup
	)
	sem := make(chan struct{}, e.cfg.ConcurrencyCap)

	for _, j := range jobs {
		j := j
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			req := e.buildRequest(ctx, j.ref, j.current, now)
			resp, err := e.analyst.Analyse(ctx, req)
			if err != nil {
				slog.Warn("engine: analyst call failed", "campaign", j.ref, "error", err)
				e.warnings.Set(warningAnalystDegraded, err.Error(), j.ref.PlatformId, now)
				return
			}
			e.warnings.Clear(warningAnalystDegraded)

			// The analyst client has no notion of the campaign's confirmed
			// budget, so it never sets PreTickBudget; stamp it here from the
			// ledger's own record, the only value R3/I5's delta-fraction cap
			// can trust.
			campaign, err := e.store.GetCampaign(ctx, j.ref)
			if err != nil {
				slog.Error("engine: load campaign for PreTickBudget stamp", "campaign", j.ref, "error", err)
			}
			for i := range resp.Proposals {
				resp.Proposals[i].PreTickBudget = campaign.DailyBudget
			}

			mu.Lock()
			proposals = append(proposals, resp.Proposals...)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return proposals
}

func (e *Engine) buildRequest(ctx context.Context, ref domain.CampaignRef, current domain.MetricSample, now time.Time) analyst.Request {
	trailing, err := e.store.TrailingWindow(ctx, ref, e.cfg.TrailingWindow, now)
	if err != nil {
		slog.Error("engine: trailing window query", "campaign", ref, "error", err)
	}

	var pending []domain.Proposal
	for _, entry := range e.approvals.Snapshot() {
		if entry.Proposal.CampaignRef == ref {
			pending = append(pending, entry.Proposal)
		}
	}

	g := e.overrides.Effective(e.baseGuardrails, scopeFor(ref))

	return analyst.Request{
		CampaignRef:      ref,
		Current:          current,
		TrailingWindow:   trailing,
		Guardrails:       g,
		PendingProposals: pending,
	}
}

func scopeFor(ref domain.CampaignRef) string {
	return string(ref.PlatformId) + ":" + ref.ExternalId
}

// ruleState builds the guardrail.State a proposal needs to be (re-)
// evaluated against, as of now.
func (e *Engine) ruleState(ctx context.Context, p domain.Proposal, now time.Time) guardrail.State {
	campaign, err := e.store.GetCampaign(ctx, p.CampaignRef)
	if err != nil {
		slog.Error("engine: load campaign for gating", "campaign", p.CampaignRef, "error", err)
	}

	enabledBudget, err := e.store.SumEnabledBudgets(ctx, p.CampaignRef.PlatformId, &p.CampaignRef)
	if err != nil {
		slog.Error("engine: sum enabled budgets", "platform", p.CampaignRef.PlatformId, "error", err)
	}

	e.mu.Lock()
	counters := e.counters
	e.mu.Unlock()

	return guardrail.State{
		Campaign:              campaign,
		Now:                    now,
		Counters:               counters,
		PlatformEnabledBudget: enabledBudget,
		PlatformCeiling:       e.platformCeilings[p.CampaignRef.PlatformId],
	}
}
