package money

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round applies the payout rounding policy: two decimal places, half up.
// Intermediate sums must stay at full precision; only values leaving the
// engine as a final breakdown go through Round.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// PercentOf returns value * rate / 100, at full precision.
func PercentOf(value, rate decimal.Decimal) decimal.Decimal {
	return value.Mul(rate).Div(hundred)
}

// Zero is the canonical zero amount.
func Zero() decimal.Decimal {
	return decimal.Zero
}
