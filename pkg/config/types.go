package config

import "github.com/adspilot/core/pkg/domain"

// PlatformConfig is one entry of platforms.yaml: everything the adapter
// registry needs to construct and rate-limit an Adapter for one platform.
type PlatformConfig struct {
	PlatformId domain.PlatformId `yaml:"platform_id"`
	Kind       string            `yaml:"kind"` // adapter implementation, e.g. "google_ads", "mock"
	Enabled    bool              `yaml:"enabled"`

	// Auth carries whatever transport-specific credential fields the
	// adapter's Kind needs (API key, client id/secret, refresh token). Left
	// as a generic map rather than one struct per platform so new platform
	// kinds don't require a config schema change, mirroring tarsy's
	// MCPServerConfig connection params.
	Auth map[string]string `yaml:"auth"`

	RateLimitCapacity   float64 `yaml:"rate_limit_capacity"`
	RateLimitRefillRate float64 `yaml:"rate_limit_refill_rate"`

	// SpendCeiling caps the platform's total enabled-campaign daily budget
	// (invariant I3). Expressed as a decimal string, parsed at load time.
	SpendCeiling string `yaml:"spend_ceiling"`
}

// GuardrailsConfig is guardrails.yaml's top-level shape: the Guardrails
// struct of spec §3, plus operational fields that aren't part of the
// gate's pure evaluation inputs.
type GuardrailsConfig struct {
	ConfidenceThreshold                 float64 `yaml:"confidence_threshold"`
	MaxDailyAdjustments                 int     `yaml:"max_daily_adjustments"`
	MaxBudgetReallocationFractionPerDay float64 `yaml:"max_budget_reallocation_fraction_per_day"`
	MaxSingleBudgetIncreaseFraction     float64 `yaml:"max_single_budget_increase_fraction"`
	MinCampaignRuntimeHoursBeforePause  float64 `yaml:"min_campaign_runtime_hours_before_pause"`
	MajorChangeFraction                 float64 `yaml:"major_change_fraction"`
	AutomationLevel                     string  `yaml:"automation_level"`
	Timezone                            string  `yaml:"timezone"`

	// PerCampaignOverrides keys a GuardrailOverride by a campaign_ref
	// string ("platform_id:external_id") or "global".
	PerCampaignOverrides map[string]GuardrailOverride `yaml:"per_campaign_overrides"`
}

// GuardrailOverride is one entry of guardrails.yaml's
// per_campaign_overrides map: a single field override with its own TTL.
type GuardrailOverride struct {
	Field     string `yaml:"field"`
	Value     string `yaml:"value"`
	ExpiresAt string `yaml:"expires_at"` // RFC3339; parsed by the loader
}

// ToDomain converts the loaded GuardrailsConfig into the pure
// domain.Guardrails the gate evaluates against. Malformed automation
// levels are caught by ValidateAll, not here.
func (g GuardrailsConfig) ToDomain() domain.Guardrails {
	return domain.Guardrails{
		ConfidenceThreshold:                 g.ConfidenceThreshold,
		MaxDailyAdjustments:                 g.MaxDailyAdjustments,
		MaxBudgetReallocationFractionPerDay: g.MaxBudgetReallocationFractionPerDay,
		MaxSingleBudgetIncreaseFraction:     g.MaxSingleBudgetIncreaseFraction,
		MinCampaignRuntimeHoursBeforePause:  g.MinCampaignRuntimeHoursBeforePause,
		MajorChangeFraction:                 g.MajorChangeFraction,
		AutomationLevel:                     domain.AutomationLevel(g.AutomationLevel),
	}
}

// Defaults returns tarsy-style built-in defaults: a conservative guardrail
// posture that merges with (and is overridden by) user config via mergo.
func Defaults() (map[string]PlatformConfig, GuardrailsConfig) {
	platforms := map[string]PlatformConfig{}
	guardrails := GuardrailsConfig{
		ConfidenceThreshold:                 0.75,
		MaxDailyAdjustments:                 20,
		MaxBudgetReallocationFractionPerDay: 0.30,
		MaxSingleBudgetIncreaseFraction:     0.25,
		MinCampaignRuntimeHoursBeforePause:  24,
		MajorChangeFraction:                 0.20,
		AutomationLevel:                     string(domain.AutomationSemi),
		Timezone:                            "UTC",
		PerCampaignOverrides:                map[string]GuardrailOverride{},
	}
	return platforms, guardrails
}
