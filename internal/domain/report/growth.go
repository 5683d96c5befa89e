// Package report computes dashboard KPIs from ledger records.
// Everything here is pure: callers load the records and pass a logical now.
package report

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Growth returns the percentage change from prior to current.
// A zero prior yields 100 when current is positive and 0 otherwise.
func Growth(current, prior decimal.Decimal) decimal.Decimal {
	if prior.IsZero() {
		if current.IsPositive() {
			return hundred
		}
		return decimal.Zero
	}
	return current.Sub(prior).Div(prior).Mul(hundred).Round(2)
}

// GrowthInt is Growth for counts
func GrowthInt(current, prior int64) decimal.Decimal {
	return Growth(decimal.NewFromInt(current), decimal.NewFromInt(prior))
}

// ShareOf returns min(round(amount/top*100), 100) with halves rounded to
// even. A non-positive top counts as 1.
func ShareOf(amount, top decimal.Decimal) int {
	if !top.IsPositive() {
		top = decimal.NewFromInt(1)
	}
	pct := amount.Div(top).Mul(hundred).RoundBank(0).IntPart()
	if pct > 100 {
		return 100
	}
	return int(pct)
}
