// Package report turns a filtered invoice list into a printable document.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

const (
	baseTitle = "Reporte de Facturas"

	// DisplayDateLayout renders dates as dd/mm/yyyy
	DisplayDateLayout = "02/01/2006"
)

// Entry is one invoice line of a report
type Entry struct {
	Date        time.Time
	Category    string
	Description string
	Value       decimal.Decimal
}

// FormatDate renders t as dd/mm/yyyy. An unset date renders empty.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DisplayDateLayout)
}

// DisplayDate formats the entry date as dd/mm/yyyy
func (e Entry) DisplayDate() string {
	return FormatDate(e.Date)
}

// Line formats the entry as a single report line
func (e Entry) Line() string {
	return fmt.Sprintf("Fecha: %s | Categoría: %s | Descripción: %s | Valor: %s",
		e.DisplayDate(), e.Category, e.Description, e.Value.String())
}

// Document is the materialized content of a report
type Document struct {
	Title   string
	Entries []Entry
	Total   decimal.Decimal
}

// Build assembles a report. month and category name the active filters and are
// left out of the title when empty. Entries keep the order they are given in.
func Build(month, category string, entries []Entry, total decimal.Decimal) Document {
	title := baseTitle
	if month != "" {
		title += " mes " + month
	}
	if category != "" {
		title += " categoría " + category
	}

	cp := make([]Entry, len(entries))
	copy(cp, entries)

	return Document{Title: title, Entries: cp, Total: total}
}

// TotalLine formats the closing total
func (d Document) TotalLine() string {
	return "Total: " + d.Total.String()
}

// Lines returns the header, one line per entry and the total line
func (d Document) Lines() []string {
	lines := make([]string, 0, len(d.Entries)+2)
	lines = append(lines, d.Title)
	for _, e := range d.Entries {
		lines = append(lines, e.Line())
	}
	return append(lines, d.TotalLine())
}

// Renderer writes a document in one output format
type Renderer interface {
	Render(w io.Writer, doc Document) error
	FileName() string
}
