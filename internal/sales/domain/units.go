package domain

import "github.com/shopspring/decimal"

// Per-line quantity bounds enforced by the order.
const (
	MinUnitsPerItem = 1
	MaxUnitsPerItem = 15
)

var hundred = decimal.NewFromInt(100)

func lineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
