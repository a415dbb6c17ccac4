package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is a stored expense invoice with its uploaded document
type Invoice struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Value       decimal.Decimal `json:"value"`
	FileKey     string          `json:"file_key"`
	ContentType string          `json:"content_type"`
	PageCount   int             `json:"page_count"`
	UserName    string          `json:"user_name"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Month returns the month the invoice is filed under
func (i *Invoice) Month() Month {
	return MonthOf(i.Date)
}

// CategoryTotals maps a category to the summed value of its invoices
type CategoryTotals map[string]decimal.Decimal

// SumByCategory groups values by category. Empty categories fall under Uncategorized.
func SumByCategory(invoices []*Invoice) CategoryTotals {
	totals := make(CategoryTotals)
	for _, inv := range invoices {
		cat := NormalizeCategory(inv.Category)
		totals[cat] = totals[cat].Add(inv.Value)
	}
	return totals
}

// Total returns the sum over all categories
func (t CategoryTotals) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, v := range t {
		sum = sum.Add(v)
	}
	return sum
}

// Clone returns an independent copy
func (t CategoryTotals) Clone() CategoryTotals {
	out := make(CategoryTotals, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
