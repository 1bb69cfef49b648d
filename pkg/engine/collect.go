package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/adspilot/core/pkg/adapter"
	"github.com/adspilot/core/pkg/domain"
	"github.com/adspilot/core/pkg/ledger"
	"github.com/adspilot/core/pkg/normalize"
)

// excludedPlatform records why a platform was dropped from this tick —
// spec §4.1's partial-failure tolerance: one bad adapter must not fail the
// whole tick.
type excludedPlatform struct {
	platform domain.PlatformId
	reason   string
}

// platformSamples is one platform's freshly-collected, normalised metrics,
// keyed for the Analyse step.
type platformSamples struct {
	platform domain.PlatformId
	samples  []normalize.NormalisedSample
}

// collect fans out ListCampaigns+GetPerformance across every registered
// adapter, bounded by cfg.ConcurrencyCap, tolerating individual platform
// failures. Adapter output is already canonical-currency (spec §4.1), so
// normalize.Normalise is called with an identity FX table — its job here is
// purely the NewlySeen/LastSeenAt bookkeeping, not currency conversion.
func (e *Engine) collect(ctx context.Context, since, now time.Time) ([]platformSamples, []excludedPlatform) {
	platforms := e.registry.All()

	var (
		mu       sync.Mutex
		results  []platformSamples
		excluded []excludedPlatform
		wg       sync.WaitGroup
	)
	sem := make(chan struct{}, e.cfg.ConcurrencyCap)

	for _, a := range platforms {
		a := a
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			samples, err := e.collectOne(ctx, a, since, now)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				excluded = append(excluded, excludedPlatform{platform: a.Platform(), reason: err.Error()})
				e.warnings.Set(platformExcludedKey(a.Platform()), err.Error(), a.Platform(), now)
				return
			}
			e.warnings.Clear(platformExcludedKey(a.Platform()))
			results = append(results, platformSamples{platform: a.Platform(), samples: samples})
		}()
	}
	wg.Wait()
	return results, excluded
}

func (e *Engine) collectOne(ctx context.Context, a adapter.Adapter, since, now time.Time) ([]normalize.NormalisedSample, error) {
	campaigns, err := a.ListCampaigns(ctx, &since)
	if err != nil {
		return nil, err
	}

	known := make(map[domain.CampaignRef]bool, len(campaigns))
	lastSeen := make(map[domain.CampaignRef]time.Time, len(campaigns))
	for _, c := range campaigns {
		existing, getErr := e.store.GetCampaign(ctx, c.Ref)
		newlySeen := errors.Is(getErr, ledger.ErrNotFound)
		if newlySeen {
			if c.CreatedAt.IsZero() {
				c.CreatedAt = now
			}
		} else if getErr == nil {
			c.CreatedAt = existing.CreatedAt // age (R2) survives adapter re-sync
			lastSeen[c.Ref] = existing.UpdatedAt
		}
		known[c.Ref] = !newlySeen
		c.UpdatedAt = now
		if err := e.store.UpsertCampaign(ctx, c); err != nil {
			return nil, err
		}
	}

	perf, err := a.GetPerformance(ctx, adapter.DateRange{From: since, To: now}, nil)
	if err != nil {
		return nil, err
	}

	raw := make([]normalize.RawMetric, len(perf))
	for i, s := range perf {
		raw[i] = normalize.RawMetric{
			CampaignRef:   s.CampaignRef,
			SampleTime:    s.SampleTime,
			Impressions:   s.Impressions,
			Clicks:        s.Clicks,
			SpendNative:   s.Spend,
			RevenueNative: s.Revenue,
			Conversions:   s.Conversions,
		}
	}
	normalised := normalize.Normalise(raw, normalize.FXTable{}, known, lastSeen)
	for _, n := range normalised {
		if err := e.store.RecordMetricSample(ctx, n.MetricSample); err != nil {
			slog.Error("engine: record metric sample", "campaign", n.CampaignRef, "error", err)
		}
		e.accountRoundingResidual(n.CampaignRef, n.SpendResidual, n.RevenueResidual, now)
	}
	return normalised, nil
}
