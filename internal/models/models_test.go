package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNetCash(t *testing.T) {
	day := &CashRegisterDay{
		OpeningBalance: decimal.NewFromInt(5000),
		TotalSales:     decimal.NewFromInt(12000),
		TotalReturns:   decimal.NewFromInt(1500),
		TotalExpenses:  decimal.NewFromInt(800),
	}

	assert.True(t, day.NetCash().Equal(decimal.NewFromInt(14700)))
}

func TestNetCashEmptyDay(t *testing.T) {
	day := &CashRegisterDay{OpeningBalance: decimal.NewFromInt(2000)}
	assert.True(t, day.NetCash().Equal(decimal.NewFromInt(2000)))
}
