package guardrail

import (
	"sync"
	"time"

	"github.com/adspilot/core/pkg/domain"
)

// OverrideStore holds time-boxed guardrail overrides written by
// override_guardrail (spec §6), itself ledgered as a CONFIG_CHANGE
// ActionRecord by the caller. Expired overrides are simply ignored by
// Effective rather than actively swept — there is no correctness reason to
// evict them early, only a bookkeeping one.
type OverrideStore struct {
	mu        sync.RWMutex
	overrides []domain.GuardrailOverride
	now       func() time.Time
}

// NewOverrideStore creates an empty store.
func NewOverrideStore() *OverrideStore {
	return &OverrideStore{now: time.Now}
}

// Set records a new override.
func (s *OverrideStore) Set(o domain.GuardrailOverride) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = append(s.overrides, o)
}

// Effective applies any live (non-expired) overrides for scope on top of
// base, most-recently-set wins among overlapping fields.
func (s *OverrideStore) Effective(base domain.Guardrails, scope string) domain.Guardrails {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	result := base
	for _, o := range s.overrides {
		if o.Scope != scope && o.Scope != "global" {
			continue
		}
		if now.After(o.ExpiresAt) {
			continue
		}
		applyField(&result, o.Field, o.Value)
	}
	return result
}

func applyField(g *domain.Guardrails, field, value string) {
	f, err := parseFloat(value)
	if err != nil {
		return
	}
	switch field {
	case "confidence_threshold":
		g.ConfidenceThreshold = f
	case "major_change_fraction":
		g.MajorChangeFraction = f
	case "max_single_budget_increase_fraction":
		g.MaxSingleBudgetIncreaseFraction = f
	case "max_budget_reallocation_fraction_per_day":
		g.MaxBudgetReallocationFractionPerDay = f
	case "min_campaign_runtime_hours_before_pause":
		g.MinCampaignRuntimeHoursBeforePause = f
	case "max_daily_adjustments":
		g.MaxDailyAdjustments = int(f)
	}
}
