// Package normalize implements the Metric Normaliser of spec §4.2: a pure
// fold of heterogeneous raw adapter output, plus a daily FX table, into
// uniform MetricSamples. It holds no state of its own — every exported
// function is a pure function of its arguments, mirroring the
// input-struct-in/formatted-struct-out shape of tarsy's
// pkg/agent/context formatters.
package normalize

import (
	"time"

	"github.com/adspilot/core/pkg/currency"
	"github.com/adspilot/core/pkg/domain"
	"github.com/shopspring/decimal"
)

// FXTable maps a platform's native currency code to a conversion rate into
// the canonical currency, valid for one reporting day.
type FXTable map[string]float64

// RawMetric is what an adapter reports before normalisation: its own
// currency code is still attached. Newly-discovered campaigns are marked
// from Normalise's known and lastSeen arguments, not from fields here.
type RawMetric struct {
	CampaignRef  domain.CampaignRef
	SampleTime   time.Time
	Impressions  int64
	Clicks       int64
	SpendNative  currency.Amount
	CurrencyCode string
	Conversions  int64
	RevenueNative currency.Amount
}

// NormalisedSample augments a domain.MetricSample with normalisation
// bookkeeping the Decision Engine needs but that isn't part of the
// persisted entity itself.
type NormalisedSample struct {
	domain.MetricSample
	NewlySeen  bool
	LastSeenAt time.Time
	// SpendResidual and RevenueResidual are the amounts currency.RoundToMinorUnit
	// discarded converting this sample's native currency into the canonical
	// minor unit. The caller accumulates these per campaign per day to
	// enforce the bounded-drift property of spec §8.
	SpendResidual   currency.Amount
	RevenueResidual currency.Amount
}

// Normalise converts raw per-campaign metrics into MetricSamples using fx
// to convert each raw sample's native currency into the canonical unit.
// known is the set of campaign refs already on record (for NewlySeen);
// lastSeen carries forward each campaign's prior last-seen timestamp.
func Normalise(raw []RawMetric, fx FXTable, known map[domain.CampaignRef]bool, lastSeen map[domain.CampaignRef]time.Time) []NormalisedSample {
	out := make([]NormalisedSample, 0, len(raw))
	for _, r := range raw {
		rate, ok := fx[r.CurrencyCode]
		if !ok {
			rate = 1.0
		}

		spend, spendResidual := convert(r.SpendNative, rate)
		revenue, revenueResidual := convert(r.RevenueNative, rate)
		sample := domain.MetricSample{
			CampaignRef: r.CampaignRef,
			SampleTime:  r.SampleTime,
			Impressions: r.Impressions,
			Clicks:      r.Clicks,
			Spend:       spend,
			Conversions: r.Conversions,
			Revenue:     revenue,
		}

		prevSeen, wasKnown := lastSeen[r.CampaignRef]
		newlySeen := !known[r.CampaignRef]
		effectiveLastSeen := r.SampleTime
		if wasKnown && prevSeen.After(effectiveLastSeen) {
			effectiveLastSeen = prevSeen
		}

		out = append(out, NormalisedSample{
			MetricSample:    sample,
			NewlySeen:       newlySeen,
			LastSeenAt:      effectiveLastSeen,
			SpendResidual:   spendResidual,
			RevenueResidual: revenueResidual,
		})
	}
	return out
}

// convert applies the FX rate and rounds to the canonical minor unit,
// returning the rounded amount and the residual currency.RoundToMinorUnit
// discarded so the caller can track cumulative drift (spec §8).
func convert(amt currency.Amount, rate float64) (currency.Amount, currency.Amount) {
	converted := amt
	if rate != 1.0 {
		converted = amt.Mul(decimal.NewFromFloat(rate))
	}
	result := currency.RoundToMinorUnit(converted)
	return result.Rounded, result.Residual
}
