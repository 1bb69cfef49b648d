package normalize

import (
	"testing"
	"time"

	"github.com/adspilot/core/pkg/currency"
	"github.com/adspilot/core/pkg/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormaliseConvertsCurrency(t *testing.T) {
	ref := domain.CampaignRef{PlatformId: domain.PlatformGoogleAds, ExternalId: "G1"}
	raw := []RawMetric{{
		CampaignRef:   ref,
		SampleTime:    time.Now(),
		SpendNative:   currency.FromCents(10000), // 100.00 EUR
		CurrencyCode:  "EUR",
		RevenueNative: currency.FromCents(48000),
	}}
	fx := FXTable{"EUR": 1.10}

	out := Normalise(raw, fx, nil, nil)
	require.Len(t, out, 1)
	assert.True(t, out[0].Spend.Equal(currency.FromCents(10000).Mul(decimal.NewFromFloat(1.10))))
	assert.True(t, out[0].NewlySeen)
}

func TestNormaliseUnknownCurrencyPassesThrough(t *testing.T) {
	ref := domain.CampaignRef{PlatformId: domain.PlatformMetaAds, ExternalId: "M1"}
	raw := []RawMetric{{
		CampaignRef:  ref,
		SampleTime:   time.Now(),
		SpendNative:  currency.FromCents(5000),
		CurrencyCode: "XXX",
	}}
	out := Normalise(raw, FXTable{}, nil, nil)
	require.Len(t, out, 1)
	assert.True(t, out[0].Spend.Equal(currency.FromCents(5000)))
}

func TestNormaliseKnownCampaignNotMarkedNew(t *testing.T) {
	ref := domain.CampaignRef{PlatformId: domain.PlatformGoogleAds, ExternalId: "G1"}
	raw := []RawMetric{{CampaignRef: ref, SampleTime: time.Now()}}
	known := map[domain.CampaignRef]bool{ref: true}

	out := Normalise(raw, nil, known, nil)
	require.Len(t, out, 1)
	assert.False(t, out[0].NewlySeen)
}

func TestNormaliseRoundsToMinorUnitAndReportsResidual(t *testing.T) {
	ref := domain.CampaignRef{PlatformId: domain.PlatformGoogleAds, ExternalId: "G1"}
	raw := []RawMetric{{
		CampaignRef:  ref,
		SampleTime:   time.Now(),
		SpendNative:  currency.FromMicros(10_010_000), // 10.01 native
		CurrencyCode: "GBP",
	}}
	// A rate with a third decimal place forces a non-exact minor-unit result.
	fx := FXTable{"GBP": 1.333}

	out := Normalise(raw, fx, nil, nil)
	require.Len(t, out, 1)

	unrounded := currency.FromMicros(10_010_000).Mul(decimal.NewFromFloat(1.333))
	assert.True(t, out[0].Spend.Equal(unrounded.RoundBank(2)), "spend must be rounded to the canonical minor unit")
	assert.False(t, out[0].SpendResidual.IsZero(), "a non-exact conversion must report a nonzero residual")
	assert.True(t, out[0].Spend.Add(out[0].SpendResidual).Equal(unrounded), "rounded + residual must reconstruct the unrounded amount")
}
