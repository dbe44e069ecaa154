package utils

import (
	"github.com/shopspring/decimal"
)

var Dec100 = decimal.NewFromInt(100)

// ToMinorUnits converts rupees to paise, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(Dec100).Round(0).IntPart()
}

func FromMinorUnits(v int64) decimal.Decimal {
	return decimal.NewFromInt(v).Div(Dec100)
}

// IsPositive is false for zero, negative and sub-paisa amounts.
func IsPositive(amount decimal.Decimal) bool {
	return ToMinorUnits(amount) > 0
}
