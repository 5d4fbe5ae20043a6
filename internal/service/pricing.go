package service

import (
	"fmt"

	"pos-service/internal/models"
	"pos-service/internal/money"

	"github.com/shopspring/decimal"
)

// CartLine is one resolved catalog item in a cart, priced at MRP.
type CartLine struct {
	Barcode  string
	Name     string
	Quantity int
	UnitMRP  decimal.Decimal
}

// LineTotals is the priced result for one cart line. FinalPrice is the line's
// MRP-weighted share of the post-discount total; the tax split decomposes it.
type LineTotals struct {
	CartLine
	FinalPrice decimal.Decimal
	Tax        money.TaxSplit
}

// Totals is the immutable result of pricing a cart.
type Totals struct {
	TotalMRP        decimal.Decimal
	TotalDiscount   decimal.Decimal
	LoyaltyDiscount decimal.Decimal
	TotalFinalPrice decimal.Decimal
	Tax             money.TaxSplit
	Lines           []LineTotals
}

// ComputeTotals prices a cart. Pure calculation, no I/O.
//
// The discount pipeline: explicit discount (PERCENT of MRP or FIXED amount,
// clamped to the MRP total) plus loyalty redemption at one currency unit per
// point. Redemption is strict: asking for more points than the customer holds
// fails rather than clamping. The post-discount total is then reverse-split
// into base and GST halves and allocated back across lines by MRP weight.
func ComputeTotals(
	lines []CartLine,
	discountType string,
	discountValue decimal.Decimal,
	pointsToRedeem int,
	availablePoints int,
	gstRatePercent decimal.Decimal,
) (*Totals, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("empty cart: %w", models.ErrValidation)
	}
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("quantity %d for %s: %w", line.Quantity, line.Barcode, models.ErrValidation)
		}
		if line.UnitMRP.IsNegative() {
			return nil, fmt.Errorf("negative MRP for %s: %w", line.Barcode, models.ErrValidation)
		}
	}
	if discountValue.IsNegative() {
		return nil, fmt.Errorf("negative discount value: %w", models.ErrValidation)
	}
	if pointsToRedeem < 0 {
		return nil, fmt.Errorf("negative redemption: %w", models.ErrValidation)
	}
	if pointsToRedeem > availablePoints {
		return nil, fmt.Errorf("redeem %d of %d points: %w", pointsToRedeem, availablePoints, models.ErrInsufficientBalance)
	}

	totalMRP := decimal.Zero
	lineMRPs := make([]decimal.Decimal, len(lines))
	for i, line := range lines {
		lineMRPs[i] = line.UnitMRP.Mul(decimal.NewFromInt(int64(line.Quantity)))
		totalMRP = totalMRP.Add(lineMRPs[i])
	}

	var discount decimal.Decimal
	switch discountType {
	case models.DiscountTypePercent:
		if discountValue.GreaterThan(decimal.NewFromInt(100)) {
			return nil, fmt.Errorf("percent discount over 100: %w", models.ErrValidation)
		}
		discount = money.Round2(totalMRP.Mul(discountValue).Div(decimal.NewFromInt(100)))
	case models.DiscountTypeFixed:
		discount = discountValue
		if discount.GreaterThan(totalMRP) {
			discount = totalMRP
		}
	case models.DiscountTypeNone, "":
		discount = decimal.Zero
	default:
		return nil, fmt.Errorf("unknown discount type %q: %w", discountType, models.ErrValidation)
	}

	loyaltyDiscount := decimal.NewFromInt(int64(pointsToRedeem))
	totalDiscount := discount.Add(loyaltyDiscount)
	if totalDiscount.GreaterThan(totalMRP) {
		totalDiscount = totalMRP
	}

	totalFinal := totalMRP.Sub(totalDiscount)
	shares := money.Allocate(totalFinal, lineMRPs)

	result := &Totals{
		TotalMRP:        totalMRP,
		TotalDiscount:   totalDiscount,
		LoyaltyDiscount: loyaltyDiscount,
		TotalFinalPrice: totalFinal,
		Tax:             money.SplitGST(totalFinal, gstRatePercent),
		Lines:           make([]LineTotals, len(lines)),
	}

	for i, line := range lines {
		result.Lines[i] = LineTotals{
			CartLine:   line,
			FinalPrice: shares[i],
			Tax:        money.SplitGST(shares[i], gstRatePercent),
		}
	}

	return result, nil
}

// EarnedPoints computes the loyalty accrual for a final invoice price: one
// point per earnDivisor currency units, floored. Non-positive divisors or
// totals earn nothing.
func EarnedPoints(finalPrice decimal.Decimal, earnDivisor int) int {
	if earnDivisor <= 0 || !finalPrice.IsPositive() {
		return 0
	}
	return int(finalPrice.Div(decimal.NewFromInt(int64(earnDivisor))).IntPart())
}
