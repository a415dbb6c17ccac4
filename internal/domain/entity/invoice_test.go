package entity

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSumByCategory(t *testing.T) {
	invoices := []*Invoice{
		{Category: CategoryFood, Value: decimal.RequireFromString("10.10")},
		{Category: CategoryFood, Value: decimal.RequireFromString("0.20")},
		{Category: "", Value: decimal.RequireFromString("5")},
		{Category: CategoryFuel, Value: decimal.RequireFromString("1.05")},
	}

	totals := SumByCategory(invoices)

	assert.Len(t, totals, 3)
	assert.True(t, decimal.RequireFromString("10.30").Equal(totals[CategoryFood]))
	assert.True(t, decimal.NewFromInt(5).Equal(totals[Uncategorized]))
	assert.True(t, decimal.RequireFromString("16.35").Equal(totals.Total()))
}

func TestCategoryTotals_Clone(t *testing.T) {
	orig := CategoryTotals{CategoryFood: decimal.NewFromInt(1)}
	cp := orig.Clone()
	cp[CategoryFood] = decimal.NewFromInt(2)

	assert.True(t, decimal.NewFromInt(1).Equal(orig[CategoryFood]))
}

func TestInvoice_Month(t *testing.T) {
	inv := &Invoice{Date: time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, "2024-02", inv.Month().String())
}

func TestRole(t *testing.T) {
	assert.True(t, RoleAdmin.CanMutate())
	assert.False(t, RoleExternal.CanMutate())
	assert.False(t, Role("").CanMutate())
	assert.True(t, RoleExternal.IsValid())
	assert.False(t, Role("root").IsValid())
}

func TestCategories(t *testing.T) {
	assert.True(t, IsKnownCategory(CategoryServices))
	assert.False(t, IsKnownCategory(Uncategorized))
	assert.Equal(t, Uncategorized, NormalizeCategory(""))
	assert.Equal(t, CategoryOther, NormalizeCategory(CategoryOther))
}
