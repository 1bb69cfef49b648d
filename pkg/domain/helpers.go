package domain

import (
	"github.com/adspilot/core/pkg/currency"
	"github.com/shopspring/decimal"
)

func decimalFromInt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func safeDivAmt(numerator, denominator currency.Amount) float64 {
	if denominator.IsZero() {
		return 0
	}
	f, _ := numerator.Div(denominator).Float64()
	return f
}

func parseAmount(s string) (currency.Amount, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return currency.Zero, false
	}
	return d, true
}
