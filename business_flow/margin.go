package businessflow

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MarginLine is one material line of a procedure. A NULL cost counts as 0 and a NULL quantity as 1.
type MarginLine struct {
	Cost     decimal.NullDecimal
	Quantity decimal.NullDecimal
}

// MarginResult holds the derived money fields of a procedure
type MarginResult struct {
	TotalCost  decimal.Decimal
	Margin     decimal.Decimal
	MarginRate decimal.Decimal
}

// ComputeMargin derives total cost, margin and margin rate.
// Amounts are rounded half away from zero to a whole unit, the rate to one decimal.
// The rate is 0 whenever the customer price is not positive.
func ComputeMargin(customerPrice decimal.Decimal, lines []MarginLine) MarginResult {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(LineCost(line))
	}
	total = total.Round(0)

	margin := customerPrice.Sub(total).Round(0)

	rate := decimal.Zero
	if customerPrice.IsPositive() {
		rate = margin.Div(customerPrice).Mul(hundred).Round(1)
	}

	return MarginResult{
		TotalCost:  total,
		Margin:     margin,
		MarginRate: rate,
	}
}

// LineCost is cost × quantity of one line, unrounded
func LineCost(line MarginLine) decimal.Decimal {
	cost := decimal.Zero
	if line.Cost.Valid {
		cost = line.Cost.Decimal
	}
	qty := decimal.NewFromInt(1)
	if line.Quantity.Valid {
		qty = line.Quantity.Decimal
	}
	return cost.Mul(qty)
}

func oneQuantity() decimal.Decimal {
	return decimal.NewFromInt(1)
}
