// Package money provides exact decimal arithmetic for billing calculations.
// All intermediate math is carried at full precision; rounding to two
// fractional digits happens once, at the display/persistence boundary.
package money

import (
	"github.com/shopspring/decimal"
)

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// taxSplitPrecision bounds the base-amount division so that the GST half
// (gst/2) stays exactly representable. With the base at 6 fractional digits,
// gst = final - base has at most 6 digits and gst/2 at most 7 — well inside
// decimal's division precision, so CGST == SGST and CGST+SGST == GST hold
// exactly, not approximately.
const taxSplitPrecision = 6

// Round2 applies the boundary rounding rule: two fractional digits, half away
// from zero. Never call it mid-calculation.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// TaxSplit is the GST decomposition of a tax-inclusive amount.
type TaxSplit struct {
	Base decimal.Decimal
	GST  decimal.Decimal
	CGST decimal.Decimal
	SGST decimal.Decimal
}

// SplitGST reverse-computes the tax decomposition of a GST-inclusive amount.
// Base + GST == final and CGST == SGST == GST/2 hold exactly. Rates at or
// below -100 leave no divisible base; the amount is treated as untaxed
// rather than dividing by a non-positive number.
func SplitGST(finalPrice decimal.Decimal, gstRatePercent decimal.Decimal) TaxSplit {
	divisor := decimal.NewFromInt(1).Add(gstRatePercent.Div(hundred))
	if !divisor.IsPositive() {
		return TaxSplit{Base: finalPrice}
	}
	base := finalPrice.DivRound(divisor, taxSplitPrecision)
	gst := finalPrice.Sub(base)
	half := gst.Div(two)
	return TaxSplit{
		Base: base,
		GST:  gst,
		CGST: half,
		SGST: half,
	}
}

// Allocate splits total across weights proportionally, in cents. Every share
// except the last is rounded to two digits; the last share absorbs the
// residual so the shares always sum to total exactly. Zero or negative weight
// sums yield equal zero shares except the last, which carries the full total.
func Allocate(total decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(weights))
	if len(weights) == 0 {
		return shares
	}

	sum := decimal.Zero
	for _, w := range weights {
		sum = sum.Add(w)
	}

	allocated := decimal.Zero
	for i := 0; i < len(weights)-1; i++ {
		var share decimal.Decimal
		if sum.IsPositive() {
			share = total.Mul(weights[i]).DivRound(sum, 2)
		}
		shares[i] = share
		allocated = allocated.Add(share)
	}
	shares[len(weights)-1] = total.Sub(allocated)
	return shares
}
