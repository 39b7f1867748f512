package money

import "github.com/shopspring/decimal"

// Format renders an amount with exactly two decimal places for API payloads.
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// Line multiplies a unit price by a quantity.
func Line(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// MinorUnits converts a decimal amount into integer minor units (cents for
// two-exponent currencies), rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
