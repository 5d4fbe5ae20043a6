package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestSplitGST(t *testing.T) {
	split := SplitGST(d("2000"), d("12"))

	assert.Equal(t, "1785.71", Round2(split.Base).StringFixed(2))
	assert.Equal(t, "214.29", Round2(split.GST).StringFixed(2))
	assert.Equal(t, "107.14", Round2(split.CGST).StringFixed(2))
	assert.Equal(t, "107.14", Round2(split.SGST).StringFixed(2))

	// Exact invariants on the unrounded values.
	assert.True(t, split.Base.Add(split.GST).Equal(d("2000")))
	assert.True(t, split.CGST.Equal(split.SGST))
	assert.True(t, split.CGST.Add(split.SGST).Equal(split.GST))
}

func TestSplitGSTZeroAmount(t *testing.T) {
	split := SplitGST(decimal.Zero, d("12"))

	assert.True(t, split.Base.IsZero())
	assert.True(t, split.GST.IsZero())
	assert.True(t, split.CGST.IsZero())
	assert.True(t, split.SGST.IsZero())
}

func TestSplitGSTZeroRate(t *testing.T) {
	split := SplitGST(d("500"), decimal.Zero)

	assert.True(t, split.Base.Equal(d("500")))
	assert.True(t, split.GST.IsZero())
}

func TestSplitGSTNonPositiveDivisor(t *testing.T) {
	// A rate of -100 makes the reverse-split divisor zero; below that it
	// goes negative. Both must degrade to an untaxed amount, not panic.
	for _, rate := range []string{"-100", "-150"} {
		split := SplitGST(d("2000"), d(rate))

		assert.True(t, split.Base.Equal(d("2000")), "rate %s", rate)
		assert.True(t, split.GST.IsZero(), "rate %s", rate)
		assert.True(t, split.CGST.IsZero(), "rate %s", rate)
		assert.True(t, split.SGST.IsZero(), "rate %s", rate)
	}
}

func TestAllocateResidualGoesToLast(t *testing.T) {
	// 100 split three ways: 33.33 + 33.33 + 33.34
	shares := Allocate(d("100"), []decimal.Decimal{d("1"), d("1"), d("1")})
	require.Len(t, shares, 3)

	assert.Equal(t, "33.33", shares[0].StringFixed(2))
	assert.Equal(t, "33.33", shares[1].StringFixed(2))
	assert.Equal(t, "33.34", shares[2].StringFixed(2))

	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s)
	}
	assert.True(t, sum.Equal(d("100")))
}

func TestAllocateProportional(t *testing.T) {
	// Weights 900:900 over 1800 -> equal halves.
	shares := Allocate(d("1800"), []decimal.Decimal{d("900"), d("900")})
	require.Len(t, shares, 2)
	assert.True(t, shares[0].Equal(d("900")))
	assert.True(t, shares[1].Equal(d("900")))
}

func TestAllocateSingleWeight(t *testing.T) {
	shares := Allocate(d("42.42"), []decimal.Decimal{d("7")})
	require.Len(t, shares, 1)
	assert.True(t, shares[0].Equal(d("42.42")))
}

func TestAllocateEmpty(t *testing.T) {
	assert.Empty(t, Allocate(d("10"), nil))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, "10.13", Round2(d("10.125")).StringFixed(2))
	assert.Equal(t, "10.12", Round2(d("10.124")).StringFixed(2))
	assert.Equal(t, "-10.13", Round2(d("-10.125")).StringFixed(2))
}
