// Package mockadapter implements the spec §4.1 "mock mode": when
// credentials are absent the adapter serves a deterministic in-memory
// fixture so the Decision Engine can be exercised end-to-end with no
// external dependency.
package mockadapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adspilot/core/pkg/adapter"
	"github.com/adspilot/core/pkg/currency"
	"github.com/adspilot/core/pkg/domain"
	"github.com/shopspring/decimal"
)

// Adapter is a deterministic fixture adapter: every call is served from an
// in-memory campaign set that the caller seeds at construction. Writes
// mutate the in-memory state so round-trip tests (update_budget then
// get_campaign) observe their own effects.
type Adapter struct {
	platform domain.PlatformId

	mu        sync.Mutex
	campaigns map[string]*domain.Campaign
	samples   map[string][]domain.MetricSample
}

// New creates a mock adapter for platform, seeded with the given campaigns.
func New(platform domain.PlatformId, seed []domain.Campaign) *Adapter {
	a := &Adapter{
		platform:  platform,
		campaigns: make(map[string]*domain.Campaign),
		samples:   make(map[string][]domain.MetricSample),
	}
	for i := range seed {
		c := seed[i]
		a.campaigns[c.Ref.ExternalId] = &c
	}
	return a
}

// SeedSamples registers canned MetricSamples for campaign id. GetPerformance
// returns those whose SampleTime falls within the requested range.
func (a *Adapter) SeedSamples(id string, samples []domain.MetricSample) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.samples[id] = samples
}

func (a *Adapter) Platform() domain.PlatformId { return a.platform }
func (a *Adapter) MockData() bool              { return true }

func (a *Adapter) ListCampaigns(ctx context.Context, since *time.Time) ([]domain.Campaign, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.Campaign, 0, len(a.campaigns))
	for _, c := range a.campaigns {
		if since != nil && c.UpdatedAt.Before(*since) {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (a *Adapter) GetPerformance(ctx context.Context, rng adapter.DateRange, ids []string) ([]domain.MetricSample, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	var out []domain.MetricSample
	for id, samples := range a.samples {
		if len(ids) > 0 && !want[id] {
			continue
		}
		for _, s := range samples {
			if s.SampleTime.Before(rng.From) || s.SampleTime.After(rng.To) {
				continue
			}
			out = append(out, s)
		}
	}
	return out, nil
}

func (a *Adapter) UpdateBudget(ctx context.Context, id string, newDailyBudget currency.Amount, idempotencyKey string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.campaigns[id]
	if !ok {
		return adapter.NewError(a.platform, adapter.ErrNotFound, fmt.Errorf("campaign %q not found", id))
	}
	if newDailyBudget.LessThan(decimal.Zero) {
		return adapter.NewError(a.platform, adapter.ErrValidation, fmt.Errorf("negative budget"))
	}
	c.DailyBudget = newDailyBudget
	c.UpdatedAt = time.Now()
	return nil
}

func (a *Adapter) SetStatus(ctx context.Context, id string, status domain.CampaignStatus, idempotencyKey string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.campaigns[id]
	if !ok {
		return adapter.NewError(a.platform, adapter.ErrNotFound, fmt.Errorf("campaign %q not found", id))
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	return nil
}

func (a *Adapter) Health(ctx context.Context) adapter.HealthResult {
	return adapter.HealthResult{OK: true, Detail: "mock", CheckedAt: time.Now()}
}

// Campaign returns the current in-memory state for id, for test assertions.
func (a *Adapter) Campaign(id string) (domain.Campaign, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.campaigns[id]
	if !ok {
		return domain.Campaign{}, false
	}
	return *c, true
}
