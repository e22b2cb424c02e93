package businessflow

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func line(cost, qty string) MarginLine {
	l := MarginLine{}
	if cost != "" {
		l.Cost = decimal.NewNullDecimal(decimal.RequireFromString(cost))
	}
	if qty != "" {
		l.Quantity = decimal.NewNullDecimal(decimal.RequireFromString(qty))
	}
	return l
}

func TestComputeMargin(t *testing.T) {
	tests := []struct {
		name      string
		price     string
		lines     []MarginLine
		totalCost string
		margin    string
		rate      string
	}{
		{
			name:      "botox procedure",
			price:     "400000",
			lines:     []MarginLine{line("120000", "1")},
			totalCost: "120000",
			margin:    "280000",
			rate:      "70",
		},
		{
			name:      "no materials",
			price:     "50000",
			lines:     nil,
			totalCost: "0",
			margin:    "50000",
			rate:      "100",
		},
		{
			name:      "zero price",
			price:     "0",
			lines:     []MarginLine{line("1000", "2")},
			totalCost: "2000",
			margin:    "-2000",
			rate:      "0",
		},
		{
			name:      "missing cost and quantity",
			price:     "10000",
			lines:     []MarginLine{line("", "3"), line("2500", "")},
			totalCost: "2500",
			margin:    "7500",
			rate:      "75",
		},
		{
			name:      "fractional quantity rounds half away from zero",
			price:     "30000",
			lines:     []MarginLine{line("1001", "0.5")},
			totalCost: "501",
			margin:    "29499",
			rate:      "98.3",
		},
		{
			name:      "rate rounded to one decimal",
			price:     "30000",
			lines:     []MarginLine{line("10000", "1")},
			totalCost: "10000",
			margin:    "20000",
			rate:      "66.7",
		},
		{
			name:      "negative price keeps identity",
			price:     "-1000",
			lines:     []MarginLine{line("500", "1")},
			totalCost: "500",
			margin:    "-1500",
			rate:      "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price := decimal.RequireFromString(tt.price)
			got := ComputeMargin(price, tt.lines)

			assert.True(t, decimal.RequireFromString(tt.totalCost).Equal(got.TotalCost), "total cost %s", got.TotalCost)
			assert.True(t, decimal.RequireFromString(tt.margin).Equal(got.Margin), "margin %s", got.Margin)
			assert.True(t, decimal.RequireFromString(tt.rate).Equal(got.MarginRate), "rate %s", got.MarginRate)

			// margin identity
			assert.True(t, got.Margin.Equal(price.Sub(got.TotalCost).Round(0)))
		})
	}
}

func TestComputeMarginDeterministic(t *testing.T) {
	price := decimal.NewFromInt(123457)
	lines := []MarginLine{line("333.33", "3"), line("12.5", "0.25")}

	first := ComputeMargin(price, lines)
	for i := 0; i < 5; i++ {
		again := ComputeMargin(price, lines)
		assert.True(t, first.TotalCost.Equal(again.TotalCost))
		assert.True(t, first.Margin.Equal(again.Margin))
		assert.True(t, first.MarginRate.Equal(again.MarginRate))
	}
}
