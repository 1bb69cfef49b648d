// Package currency provides canonical-unit, decimal-safe money arithmetic
// for amounts flowing between ad-platform adapters, the decision engine, and
// the ledger. All inter-component budget and spend values are expressed in
// a single canonical currency's major unit as a decimal.Decimal; adapters
// are responsible for converting from whatever sub-unit their platform
// natively reports (micros, cents, yuan-fen, ...) at the boundary.
package currency

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a canonical-currency amount, stored as a decimal to avoid the
// rounding drift that float64 accumulates across many small adjustments.
type Amount = decimal.Decimal

// Zero is the canonical zero amount.
var Zero = decimal.Zero

// FromMicros converts a platform value expressed in millionths of the
// canonical unit (Google Ads' native representation) into an Amount.
func FromMicros(micros int64) Amount {
	return decimal.New(micros, -6)
}

// FromCents converts a platform value expressed in hundredths of the
// canonical unit (Meta, LinkedIn) into an Amount.
func FromCents(cents int64) Amount {
	return decimal.New(cents, -2)
}

// FromMinorUnits converts a platform value expressed in an arbitrary
// sub-unit (exponent sub-units per major unit) into an Amount. exponent
// must be non-negative; a negative exponent is a caller bug, not a runtime
// condition, and panics.
func FromMinorUnits(value int64, exponent int32) Amount {
	if exponent < 0 {
		panic(fmt.Sprintf("currency: negative exponent %d", exponent))
	}
	return decimal.New(value, -exponent)
}

// RoundingResult carries a canonical-minor-unit-rounded amount together with
// the residual that rounding discarded, so callers can track cumulative
// drift (spec: "never causes cumulative drift exceeding one minor unit per
// campaign per day").
type RoundingResult struct {
	Rounded  Amount
	Residual Amount
}

// RoundToMinorUnit rounds amt to the canonical minor unit (2 decimal places)
// using banker's rounding and returns the discarded residual.
func RoundToMinorUnit(amt Amount) RoundingResult {
	rounded := amt.RoundBank(2)
	return RoundingResult{
		Rounded:  rounded,
		Residual: amt.Sub(rounded),
	}
}

// FromDecimalString parses a canonical decimal string (as persisted by the
// ledger) back into an Amount. ok is false if s is not a valid decimal.
func FromDecimalString(s string) (amt Amount, ok bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, false
	}
	return d, true
}

// DeltaFraction returns |to-from|/from as a float64, used by guardrail rules
// R4/I5 that reason about fractional budget change. Returns 0 when from is
// zero, since a fraction against a zero base is undefined and treating it as
// "no limiting fraction" is the safer default for a brand-new campaign.
func DeltaFraction(from, to Amount) float64 {
	if from.IsZero() {
		return 0
	}
	delta := to.Sub(from).Abs()
	f, _ := delta.Div(from).Float64()
	return f
}
