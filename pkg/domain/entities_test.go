package domain

import (
	"testing"

	"github.com/adspilot/core/pkg/currency"
	"github.com/stretchr/testify/assert"
)

func TestMetricSampleZeroSpendYieldsZeroRatios(t *testing.T) {
	m := MetricSample{
		Impressions: 1000,
		Clicks:      0,
		Spend:       currency.Zero,
		Conversions: 0,
		Revenue:     currency.Zero,
	}
	assert.Equal(t, 0.0, m.ROAS())
	assert.Equal(t, 0.0, m.CPC())
	assert.Equal(t, 0.0, m.CPA())
	assert.Equal(t, 0.0, m.CTR())
}

func TestMetricSampleDerivedRatios(t *testing.T) {
	m := MetricSample{
		Impressions: 10000,
		Clicks:      100,
		Spend:       currency.FromCents(10000),
		Conversions: 10,
		Revenue:     currency.FromCents(48000),
	}
	assert.InDelta(t, 4.8, m.ROAS(), 0.0001)
	assert.InDelta(t, 1.0, m.CPC(), 0.0001)
	assert.InDelta(t, 0.01, m.CTR(), 0.0001)
	assert.InDelta(t, 10.0, m.CPA(), 0.0001)
}

func TestPlatformIdValidity(t *testing.T) {
	assert.True(t, PlatformGoogleAds.IsValid())
	assert.False(t, PlatformId("unknown_ads").IsValid())
}

func TestProposalNewBudget(t *testing.T) {
	p := Proposal{Kind: ProposalIncreaseBudget, ToState: "130.00"}
	amt, ok := p.NewBudget()
	assert.True(t, ok)
	assert.True(t, amt.Equal(currency.FromCents(13000)))

	p2 := Proposal{Kind: ProposalPause}
	_, ok2 := p2.NewBudget()
	assert.False(t, ok2)
}
