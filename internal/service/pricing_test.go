package service

import (
	"testing"

	"pos-service/internal/models"
	"pos-service/internal/money"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gst12 = decimal.NewFromInt(12)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeTotalsPercentDiscount(t *testing.T) {
	// Cart of 2500 MRP with 20% discount, 12% GST inclusive
	lines := []CartLine{
		{Barcode: "A", Name: "Shirt", Quantity: 1, UnitMRP: decimal.NewFromInt(1500)},
		{Barcode: "B", Name: "Jeans", Quantity: 1, UnitMRP: decimal.NewFromInt(1000)},
	}

	totals, err := ComputeTotals(lines, models.DiscountTypePercent, decimal.NewFromInt(20), 0, 0, gst12)
	require.NoError(t, err)

	assert.True(t, totals.TotalMRP.Equal(decimal.NewFromInt(2500)))
	assert.True(t, totals.TotalDiscount.Equal(decimal.NewFromInt(500)))
	assert.True(t, totals.TotalFinalPrice.Equal(decimal.NewFromInt(2000)))

	// Reverse split of 2000 at 12%: base 1785.71, GST 214.29, halves 107.14
	assert.True(t, money.Round2(totals.Tax.Base).Equal(d("1785.71")))
	assert.True(t, money.Round2(totals.Tax.GST).Equal(d("214.29")))
	assert.True(t, money.Round2(totals.Tax.CGST).Equal(d("107.14")))
	assert.True(t, money.Round2(totals.Tax.SGST).Equal(d("107.14")))

	// Exact invariants hold before display rounding
	assert.True(t, totals.Tax.Base.Add(totals.Tax.GST).Equal(totals.TotalFinalPrice))
	assert.True(t, totals.Tax.CGST.Equal(totals.Tax.SGST))
	assert.True(t, totals.Tax.CGST.Add(totals.Tax.SGST).Equal(totals.Tax.GST))
}

func TestComputeTotalsLineAllocationSumsExactly(t *testing.T) {
	lines := []CartLine{
		{Barcode: "A", Quantity: 1, UnitMRP: decimal.NewFromInt(100)},
		{Barcode: "B", Quantity: 1, UnitMRP: decimal.NewFromInt(100)},
		{Barcode: "C", Quantity: 1, UnitMRP: decimal.NewFromInt(100)},
	}

	// 100 off 300 leaves 200 split across three equal-weight lines
	totals, err := ComputeTotals(lines, models.DiscountTypeFixed, decimal.NewFromInt(100), 0, 0, gst12)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, line := range totals.Lines {
		sum = sum.Add(line.FinalPrice)
	}
	assert.True(t, sum.Equal(totals.TotalFinalPrice), "line shares must sum to the total exactly")
	assert.True(t, totals.Lines[0].FinalPrice.Equal(d("66.67")))
	assert.True(t, totals.Lines[1].FinalPrice.Equal(d("66.67")))
	assert.True(t, totals.Lines[2].FinalPrice.Equal(d("66.66")))
}

func TestComputeTotalsLoyaltyRedemption(t *testing.T) {
	lines := []CartLine{
		{Barcode: "A", Quantity: 2, UnitMRP: decimal.NewFromInt(500)},
	}

	totals, err := ComputeTotals(lines, models.DiscountTypeNone, decimal.Zero, 150, 200, gst12)
	require.NoError(t, err)

	assert.True(t, totals.LoyaltyDiscount.Equal(decimal.NewFromInt(150)))
	assert.True(t, totals.TotalFinalPrice.Equal(decimal.NewFromInt(850)))
}

func TestComputeTotalsStrictRedemption(t *testing.T) {
	lines := []CartLine{
		{Barcode: "A", Quantity: 1, UnitMRP: decimal.NewFromInt(1000)},
	}

	// Asking for more points than held is rejected, never clamped
	_, err := ComputeTotals(lines, models.DiscountTypeNone, decimal.Zero, 201, 200, gst12)
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)
}

func TestComputeTotalsFixedDiscountClamped(t *testing.T) {
	lines := []CartLine{
		{Barcode: "A", Quantity: 1, UnitMRP: decimal.NewFromInt(100)},
	}

	totals, err := ComputeTotals(lines, models.DiscountTypeFixed, decimal.NewFromInt(500), 0, 0, gst12)
	require.NoError(t, err)

	assert.True(t, totals.TotalDiscount.Equal(decimal.NewFromInt(100)))
	assert.True(t, totals.TotalFinalPrice.IsZero())
	assert.True(t, totals.Tax.GST.IsZero())
}

func TestComputeTotalsValidation(t *testing.T) {
	valid := []CartLine{{Barcode: "A", Quantity: 1, UnitMRP: decimal.NewFromInt(100)}}

	cases := []struct {
		name  string
		lines []CartLine
		dtype string
		dval  decimal.Decimal
	}{
		{"empty cart", nil, models.DiscountTypeNone, decimal.Zero},
		{"zero quantity", []CartLine{{Barcode: "A", Quantity: 0, UnitMRP: decimal.NewFromInt(100)}}, models.DiscountTypeNone, decimal.Zero},
		{"negative mrp", []CartLine{{Barcode: "A", Quantity: 1, UnitMRP: decimal.NewFromInt(-1)}}, models.DiscountTypeNone, decimal.Zero},
		{"negative discount", valid, models.DiscountTypeFixed, decimal.NewFromInt(-5)},
		{"percent over 100", valid, models.DiscountTypePercent, decimal.NewFromInt(101)},
		{"unknown discount type", valid, "BOGOF", decimal.Zero},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeTotals(tc.lines, tc.dtype, tc.dval, 0, 0, gst12)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestEarnedPoints(t *testing.T) {
	assert.Equal(t, 18, EarnedPoints(d("1850"), 100))
	assert.Equal(t, 18, EarnedPoints(d("1899.99"), 100))
	assert.Equal(t, 0, EarnedPoints(d("99.99"), 100))
	assert.Equal(t, 0, EarnedPoints(decimal.Zero, 100))
	assert.Equal(t, 0, EarnedPoints(d("1850"), 0))
}
