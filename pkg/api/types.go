// Package api holds the JSON shapes shared by the invoice server and its client.
package api

import "github.com/shopspring/decimal"

func init() {
	// Value travels as a JSON number.
	decimal.MarshalJSONWithoutQuotes = true
}

// DateLayout is the wire format of invoice dates
const DateLayout = "2006-01-02"

// Invoice is one record returned by the month listing
type Invoice struct {
	InvoiceId   string          `json:"InvoiceId"`
	Date        string          `json:"Date"`
	Category    string          `json:"Category"`
	Description string          `json:"Description"`
	Value       decimal.Decimal `json:"Value"`
	ImgLink     string          `json:"ImgLink"`
	UserName    string          `json:"UserName"`
}

// CreateInvoiceRequest is the upload payload. Content is the base64 file body.
type CreateInvoiceRequest struct {
	UserName    string          `json:"UserName"`
	Value       decimal.Decimal `json:"Value"`
	Date        string          `json:"Date"`
	Description string          `json:"Description"`
	Category    string          `json:"Category"`
	Content     string          `json:"Content"`
}

// Session describes the caller behind a bearer token
type Session struct {
	UserName string `json:"UserName"`
	Role     string `json:"Role"`
}

// Summary carries per-category totals for one month
type Summary struct {
	Month  string                     `json:"Month"`
	Totals map[string]decimal.Decimal `json:"Totals"`
	Total  decimal.Decimal            `json:"Total"`
}

// ErrorBody is the body of every non-2xx response
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
