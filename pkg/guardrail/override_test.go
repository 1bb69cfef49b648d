package guardrail

import (
	"testing"
	"time"

	"github.com/adspilot/core/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestOverrideAppliesWithinTTL(t *testing.T) {
	s := NewOverrideStore()
	base := time.Now()
	s.now = func() time.Time { return base }
	s.Set(domain.GuardrailOverride{
		Scope:     "global",
		Field:     "confidence_threshold",
		Value:     "0.5",
		ExpiresAt: base.Add(time.Hour),
	})

	g := s.Effective(domain.Guardrails{ConfidenceThreshold: 0.85}, "global")
	assert.Equal(t, 0.5, g.ConfidenceThreshold)
}

func TestOverrideIgnoredAfterExpiry(t *testing.T) {
	s := NewOverrideStore()
	base := time.Now()
	s.Set(domain.GuardrailOverride{
		Scope:     "global",
		Field:     "confidence_threshold",
		Value:     "0.5",
		ExpiresAt: base.Add(-time.Hour),
	})
	s.now = func() time.Time { return base }

	g := s.Effective(domain.Guardrails{ConfidenceThreshold: 0.85}, "global")
	assert.Equal(t, 0.85, g.ConfidenceThreshold)
}

func TestOverrideScopedToCampaignDoesNotLeak(t *testing.T) {
	s := NewOverrideStore()
	base := time.Now()
	s.now = func() time.Time { return base }
	s.Set(domain.GuardrailOverride{
		Scope:     "google_ads/G1",
		Field:     "confidence_threshold",
		Value:     "0.1",
		ExpiresAt: base.Add(time.Hour),
	})

	g := s.Effective(domain.Guardrails{ConfidenceThreshold: 0.85}, "google_ads/G2")
	assert.Equal(t, 0.85, g.ConfidenceThreshold)
}
