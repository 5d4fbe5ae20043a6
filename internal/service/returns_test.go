package service

import (
	"testing"

	"pos-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invoiceItemFixture() []models.InvoiceItem {
	// 3 units sold for 1500 total (500/unit paid), GST share 160.71
	return []models.InvoiceItem{
		{
			ID:         11,
			Barcode:    "A",
			Quantity:   3,
			UnitMRP:    decimal.NewFromInt(600),
			FinalPrice: decimal.NewFromInt(1500),
			GSTAmount:  d("160.71"),
		},
		{
			ID:         12,
			Barcode:    "B",
			Quantity:   1,
			UnitMRP:    decimal.NewFromInt(200),
			FinalPrice: decimal.NewFromInt(200),
			GSTAmount:  d("21.43"),
		},
	}
}

func TestComputeReturnItemsPartialReturn(t *testing.T) {
	items, amount, gst, err := computeReturnItems(invoiceItemFixture(), []ReturnItemRequest{
		{InvoiceItemID: 11, ReturnQuantity: 2},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)

	// Refund is per-unit paid price times returned units: 1500/3 * 2
	assert.True(t, amount.Equal(decimal.NewFromInt(1000)))
	assert.True(t, items[0].UnitPrice.Equal(decimal.NewFromInt(500)))
	assert.True(t, gst.Equal(d("107.14")))
	assert.Equal(t, 2, items[0].ReturnQuantity)
	assert.Equal(t, 3, items[0].OriginalQuantity)
}

func TestComputeReturnItemsSkipsZeroQuantities(t *testing.T) {
	items, amount, _, err := computeReturnItems(invoiceItemFixture(), []ReturnItemRequest{
		{InvoiceItemID: 11, ReturnQuantity: 0},
		{InvoiceItemID: 12, ReturnQuantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(12), items[0].InvoiceItemID)
	assert.True(t, amount.Equal(decimal.NewFromInt(200)))
}

func TestComputeReturnItemsValidation(t *testing.T) {
	fixture := invoiceItemFixture()

	cases := []struct {
		name string
		reqs []ReturnItemRequest
	}{
		{"unknown item", []ReturnItemRequest{{InvoiceItemID: 99, ReturnQuantity: 1}}},
		{"excess quantity", []ReturnItemRequest{{InvoiceItemID: 11, ReturnQuantity: 4}}},
		{"negative quantity", []ReturnItemRequest{{InvoiceItemID: 11, ReturnQuantity: -1}}},
		{"all zero quantities", []ReturnItemRequest{{InvoiceItemID: 11, ReturnQuantity: 0}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, _, err := computeReturnItems(fixture, tc.reqs)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestComputeReturnItemsUnevenSplit(t *testing.T) {
	// 3 units for 100 means a repeating per-unit price; one unit refunds 33.33
	items, amount, _, err := computeReturnItems([]models.InvoiceItem{
		{ID: 21, Quantity: 3, FinalPrice: decimal.NewFromInt(100), GSTAmount: d("10.71")},
	}, []ReturnItemRequest{
		{InvoiceItemID: 21, ReturnQuantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, amount.Equal(d("33.33")))
}

func TestDocumentNumberFormat(t *testing.T) {
	n := newInvoiceNumber()
	assert.Regexp(t, `^INV-\d{8}-[0-9A-F]{8}$`, n)
	assert.Regexp(t, `^RET-\d{8}-[0-9A-F]{8}$`, newReturnNumber())
	assert.NotEqual(t, n, newInvoiceNumber())
}
