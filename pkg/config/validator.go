package config

import (
	"fmt"

	"github.com/adspilot/core/pkg/currency"
	"github.com/adspilot/core/pkg/domain"
)

// ValidateAll runs every validation pass over the merged configuration, in
// the order tarsy's pkg/config/validator.go composes its validateX()
// methods: structural checks first, cross-reference checks last, so a
// caller sees the most actionable error first.
func ValidateAll(platforms map[string]*PlatformConfig, guardrails GuardrailsConfig) error {
	if err := validatePlatforms(platforms); err != nil {
		return err
	}
	if err := validateGuardrails(guardrails); err != nil {
		return err
	}
	return nil
}

func validatePlatforms(platforms map[string]*PlatformConfig) error {
	for id, p := range platforms {
		if !p.Enabled {
			continue
		}
		if !domain.PlatformId(id).IsValid() {
			return NewValidationError("platform", id, "platform_id", fmt.Errorf("%w: %q", ErrInvalidValue, id))
		}
		if p.Kind == "" {
			return NewValidationError("platform", id, "kind", ErrMissingRequiredField)
		}
		if p.RateLimitCapacity <= 0 {
			return NewValidationError("platform", id, "rate_limit_capacity", fmt.Errorf("%w: must be positive", ErrInvalidValue))
		}
		if p.SpendCeiling != "" {
			if _, ok := currency.FromDecimalString(p.SpendCeiling); !ok {
				return NewValidationError("platform", id, "spend_ceiling", fmt.Errorf("%w: not a decimal amount", ErrInvalidValue))
			}
		}
	}
	return nil
}

func validateGuardrails(g GuardrailsConfig) error {
	if g.ConfidenceThreshold < 0 || g.ConfidenceThreshold > 1 {
		return NewValidationError("guardrails", "global", "confidence_threshold", fmt.Errorf("%w: must be in [0,1]", ErrInvalidValue))
	}
	if g.MaxDailyAdjustments <= 0 {
		return NewValidationError("guardrails", "global", "max_daily_adjustments", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if g.MajorChangeFraction <= 0 || g.MajorChangeFraction > 1 {
		return NewValidationError("guardrails", "global", "major_change_fraction", fmt.Errorf("%w: must be in (0,1]", ErrInvalidValue))
	}
	level := domain.AutomationLevel(g.AutomationLevel)
	if !level.IsValid() {
		return NewValidationError("guardrails", "global", "automation_level", fmt.Errorf("%w: %q", ErrInvalidValue, g.AutomationLevel))
	}
	if g.Timezone == "" {
		return NewValidationError("guardrails", "global", "timezone", ErrMissingRequiredField)
	}
	for ref, o := range g.PerCampaignOverrides {
		if o.Field == "" {
			return NewValidationError("guardrails", ref, "field", ErrMissingRequiredField)
		}
	}
	return nil
}
