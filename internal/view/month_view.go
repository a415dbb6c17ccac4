package view

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-desk/internal/domain/entity"
	"github.com/garyjia/invoice-desk/internal/report"
	"github.com/garyjia/invoice-desk/pkg/api"
)

const monthViewOwner = "month-view"

var (
	ErrInvalidMonth  = errors.New("invalid month")
	ErrForbidden     = errors.New("role not allowed to modify invoices")
	ErrNothingStaged = errors.New("no invoice staged for deletion")
	ErrModalBusy     = errors.New("modal already open")
	ErrNotFound      = errors.New("invoice not in view")
)

// Invoice is a listed invoice in display form
type Invoice struct {
	ID          string
	Date        time.Time
	Category    string
	Description string
	Value       decimal.Decimal
	ImgLink     string
	UserName    string
}

// DisplayDate formats the date as dd/mm/yyyy
func (i Invoice) DisplayDate() string {
	return report.FormatDate(i.Date)
}

// DisplayValue formats the value as currency with two decimals
func (i Invoice) DisplayValue() string {
	return "$" + i.Value.StringFixed(2)
}

// Config holds view settings
type Config struct {
	// Year is joined with the selected month to build the month key
	Year int
}

type stagedDelete struct {
	id      string
	fileKey string
}

// MonthView lists one month of invoices with a client-side category filter
type MonthView struct {
	api    InvoiceAPI
	state  *AppState
	shell  Shell
	logger *zap.Logger
	year   int

	mu         sync.Mutex
	generation uint64
	month      string
	loaded     entity.Month
	category   string
	batch      []Invoice
	filtered   []Invoice
	staged     *stagedDelete
}

// NewMonthView creates a listing view. A zero Year means the current year.
func NewMonthView(cfg Config, invoices InvoiceAPI, state *AppState, shell Shell, logger *zap.Logger) *MonthView {
	year := cfg.Year
	if year == 0 {
		year = time.Now().Year()
	}
	return &MonthView{
		api:    invoices,
		state:  state,
		shell:  shell,
		logger: logger,
		year:   year,
	}
}

// Year returns the year the month selector works on
func (v *MonthView) Year() int {
	return v.year
}

// MonthOptions lists the selectable months as of now
func (v *MonthView) MonthOptions(now time.Time) []MonthOption {
	return MonthOptions(v.year, now)
}

// SelectMonth fetches the invoices of month ("01".."12"). A response that
// arrives after a newer SelectMonth call is dropped. Failures are reported to
// the shell and leave the displayed list untouched.
func (v *MonthView) SelectMonth(ctx context.Context, month string) error {
	m, err := monthKey(v.year, month)
	if err != nil {
		return err
	}
	key := m.String()
	gen := v.state.NextGeneration()

	v.mu.Lock()
	v.generation = gen
	v.month = month
	v.mu.Unlock()

	v.state.OpenLoading()
	records, err := v.api.GetInvoices(ctx, key)
	v.state.CloseLoading()

	v.mu.Lock()
	defer v.mu.Unlock()

	if gen != v.generation {
		v.logger.Debug("Discarding stale month listing",
			zap.String("month", key),
			zap.Uint64("generation", gen))
		return nil
	}
	if err != nil {
		reportFailure(v.shell, v.logger, err, MsgFetchFailed, "list")
		return err
	}

	batch := make([]Invoice, 0, len(records))
	for _, rec := range records {
		batch = append(batch, v.fromWire(rec))
	}
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].Date.Before(batch[j].Date)
	})

	v.batch = batch
	v.loaded = m
	v.filtered = filterByCategory(batch, v.category)

	v.state.UpdateInvoiceDataByMonth(key, totalsOf(batch), gen)
	v.state.SetCurrentMonth(key, gen)
	return nil
}

func (v *MonthView) fromWire(rec api.Invoice) Invoice {
	inv := Invoice{
		ID:          rec.InvoiceId,
		Category:    entity.NormalizeCategory(rec.Category),
		Description: rec.Description,
		Value:       rec.Value,
		ImgLink:     rec.ImgLink,
		UserName:    rec.UserName,
	}
	if d, err := parseWireDate(rec.Date); err == nil {
		inv.Date = d
	} else {
		v.logger.Warn("Unparseable invoice date",
			zap.String("invoice_id", rec.InvoiceId),
			zap.String("date", rec.Date))
	}
	return inv
}

func parseWireDate(s string) (time.Time, error) {
	if d, err := time.Parse(api.DateLayout, s); err == nil {
		return d, nil
	}
	return time.Parse(time.RFC3339, s)
}

// SelectCategory filters the loaded month. An empty category clears the filter.
func (v *MonthView) SelectCategory(category string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.category = category
	v.filtered = filterByCategory(v.batch, category)
}

// Month returns the selected "01".."12" value
func (v *MonthView) Month() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.month
}

// LoadedMonth returns the "01".."12" value of the listed invoices. It differs
// from Month while a fetch is in flight or after one failed.
func (v *MonthView) LoadedMonth() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loadedNumber()
}

func (v *MonthView) loadedNumber() string {
	if v.loaded.IsZero() {
		return ""
	}
	return v.loaded.Number()
}

// Category returns the active filter
func (v *MonthView) Category() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.category
}

// Filtered returns a copy of the invoices shown
func (v *MonthView) Filtered() []Invoice {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Invoice, len(v.filtered))
	copy(out, v.filtered)
	return out
}

// Total sums the filtered invoices
func (v *MonthView) Total() decimal.Decimal {
	v.mu.Lock()
	defer v.mu.Unlock()
	return sumValues(v.filtered)
}

// StageDelete remembers an invoice for deletion and opens the confirmation modal
func (v *MonthView) StageDelete(id, fileKey string) error {
	if !v.state.Role().CanMutate() {
		return ErrForbidden
	}
	if !v.state.OpenModal(monthViewOwner) {
		return ErrModalBusy
	}

	v.mu.Lock()
	v.staged = &stagedDelete{id: id, fileKey: fileKey}
	v.mu.Unlock()
	return nil
}

// Staged returns the invoice waiting for confirmation
func (v *MonthView) Staged() (id, fileKey string, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.staged == nil {
		return "", "", false
	}
	return v.staged.id, v.staged.fileKey, true
}

// CancelDelete drops the staged invoice without any request
func (v *MonthView) CancelDelete() {
	v.mu.Lock()
	v.staged = nil
	v.mu.Unlock()
	v.state.CloseModal(monthViewOwner)
}

// ConfirmDelete deletes the staged invoice and removes it from the view
func (v *MonthView) ConfirmDelete(ctx context.Context) error {
	v.mu.Lock()
	staged := v.staged
	v.staged = nil
	v.mu.Unlock()
	v.state.CloseModal(monthViewOwner)

	if staged == nil {
		return ErrNothingStaged
	}

	v.state.OpenLoading()
	err := v.api.DeleteInvoice(ctx, staged.id, staged.fileKey)
	v.state.CloseLoading()

	if err != nil {
		reportFailure(v.shell, v.logger, err, MsgDeleteFailed, "delete")
		return err
	}

	gen := v.state.NextGeneration()

	v.mu.Lock()
	v.filtered = withoutID(v.filtered, staged.id)
	v.batch = withoutID(v.batch, staged.id)
	totals := totalsOf(v.batch)
	loaded := v.loaded
	v.mu.Unlock()

	if !loaded.IsZero() {
		v.state.UpdateInvoiceDataByMonth(loaded.String(), totals, gen)
	}

	v.logger.Info("Invoice deleted", zap.String("invoice_id", staged.id))
	v.shell.Notify(LevelSuccess, MsgDeleted)
	return nil
}

// ViewLink returns the document locator of a listed invoice
func (v *MonthView) ViewLink(id string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, inv := range v.batch {
		if inv.ID == id {
			return inv.ImgLink, nil
		}
	}
	return "", ErrNotFound
}

// Edit is reserved for administrators and does nothing yet
func (v *MonthView) Edit(id string) error {
	if !v.state.Role().CanMutate() {
		return ErrForbidden
	}
	v.logger.Debug("Edit requested", zap.String("invoice_id", id))
	return nil
}

// Report builds a report of the filtered invoices
func (v *MonthView) Report() report.Document {
	v.mu.Lock()
	defer v.mu.Unlock()

	entries := make([]report.Entry, 0, len(v.filtered))
	for _, inv := range v.filtered {
		entries = append(entries, report.Entry{
			Date:        inv.Date,
			Category:    inv.Category,
			Description: inv.Description,
			Value:       inv.Value,
		})
	}
	return report.Build(v.loadedNumber(), v.category, entries, sumValues(v.filtered))
}

func filterByCategory(invoices []Invoice, category string) []Invoice {
	out := make([]Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if category == "" || inv.Category == category {
			out = append(out, inv)
		}
	}
	return out
}

func withoutID(invoices []Invoice, id string) []Invoice {
	out := make([]Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if inv.ID != id {
			out = append(out, inv)
		}
	}
	return out
}

func sumValues(invoices []Invoice) decimal.Decimal {
	sum := decimal.Zero
	for _, inv := range invoices {
		sum = sum.Add(inv.Value)
	}
	return sum
}

func totalsOf(invoices []Invoice) entity.CategoryTotals {
	totals := make(entity.CategoryTotals)
	for _, inv := range invoices {
		totals[inv.Category] = totals[inv.Category].Add(inv.Value)
	}
	return totals
}
