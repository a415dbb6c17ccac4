package view

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-desk/internal/client"
	"github.com/garyjia/invoice-desk/internal/domain/entity"
	"github.com/garyjia/invoice-desk/pkg/api"
)

type mockAPI struct {
	GetInvoicesFunc   func(ctx context.Context, monthKey string) ([]api.Invoice, error)
	CreateInvoiceFunc func(ctx context.Context, req api.CreateInvoiceRequest) (*api.Invoice, error)
	DeleteInvoiceFunc func(ctx context.Context, invoiceID, fileKey string) error
}

func (m *mockAPI) GetInvoices(ctx context.Context, monthKey string) ([]api.Invoice, error) {
	return m.GetInvoicesFunc(ctx, monthKey)
}

func (m *mockAPI) CreateInvoice(ctx context.Context, req api.CreateInvoiceRequest) (*api.Invoice, error) {
	return m.CreateInvoiceFunc(ctx, req)
}

func (m *mockAPI) DeleteInvoice(ctx context.Context, invoiceID, fileKey string) error {
	return m.DeleteInvoiceFunc(ctx, invoiceID, fileKey)
}

type notice struct {
	level Level
	msg   string
}

type navigation struct {
	route string
	delay time.Duration
}

type recordingShell struct {
	mu       sync.Mutex
	notices  []notice
	navigate []navigation
}

func (s *recordingShell) Notify(level Level, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, notice{level, msg})
}

func (s *recordingShell) NavigateAfter(route string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigate = append(s.navigate, navigation{route, delay})
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleInvoices() []api.Invoice {
	return []api.Invoice{
		{InvoiceId: "c", Date: "2024-03-20", Category: entity.CategoryFood, Value: dec("30.10"), ImgLink: "/api/files/c"},
		{InvoiceId: "a", Date: "2024-03-02", Category: entity.CategoryTransport, Value: dec("10.25"), ImgLink: "/api/files/a"},
		{InvoiceId: "b", Date: "2024-03-02", Category: "", Value: dec("5"), ImgLink: "/api/files/b"},
		{InvoiceId: "d", Date: "2024-03-10", Category: entity.CategoryFood, Value: dec("0.05"), ImgLink: "/api/files/d"},
	}
}

func newTestView(t *testing.T, m *mockAPI, role entity.Role) (*MonthView, *AppState, *recordingShell) {
	t.Helper()
	state := NewAppState(role)
	shell := &recordingShell{}
	return NewMonthView(Config{Year: 2024}, m, state, shell, zap.NewNop()), state, shell
}

func ids(invoices []Invoice) []string {
	out := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, inv.ID)
	}
	return out
}

func TestMonthView_SelectMonth(t *testing.T) {
	var gotKey string
	m := &mockAPI{GetInvoicesFunc: func(ctx context.Context, monthKey string) ([]api.Invoice, error) {
		gotKey = monthKey
		return sampleInvoices(), nil
	}}
	v, state, shell := newTestView(t, m, entity.RoleAdmin)

	require.NoError(t, v.SelectMonth(context.Background(), "03"))

	assert.Equal(t, "2024-03", gotKey)
	// stable: a before b on the same date
	assert.Equal(t, []string{"a", "b", "d", "c"}, ids(v.Filtered()))
	assert.Equal(t, entity.Uncategorized, v.Filtered()[1].Category)
	assert.True(t, dec("45.40").Equal(v.Total()))
	assert.Equal(t, "2024-03", state.CurrentMonth())
	assert.False(t, state.Loading())
	assert.Empty(t, shell.notices)

	totals, ok := state.InvoiceDataByMonth("2024-03")
	require.True(t, ok)
	assert.True(t, dec("30.15").Equal(totals[entity.CategoryFood]))
	assert.True(t, dec("5").Equal(totals[entity.Uncategorized]))
}

func TestMonthView_SelectCategory(t *testing.T) {
	m := &mockAPI{GetInvoicesFunc: func(ctx context.Context, monthKey string) ([]api.Invoice, error) {
		return sampleInvoices(), nil
	}}
	v, _, _ := newTestView(t, m, entity.RoleAdmin)
	v.SelectCategory(entity.CategoryFood)
	require.NoError(t, v.SelectMonth(context.Background(), "03"))

	assert.Equal(t, []string{"d", "c"}, ids(v.Filtered()))
	assert.True(t, dec("30.15").Equal(v.Total()))

	v.SelectCategory(entity.CategoryFuel)
	assert.Empty(t, v.Filtered())
	assert.True(t, v.Total().IsZero())

	v.SelectCategory("")
	assert.Len(t, v.Filtered(), 4)
}

func TestMonthView_SelectMonth_Invalid(t *testing.T) {
	v, _, _ := newTestView(t, &mockAPI{}, entity.RoleAdmin)

	for _, month := range []string{"", "0", "00", "13", "1a"} {
		assert.ErrorIs(t, v.SelectMonth(context.Background(), month), ErrInvalidMonth, month)
	}
}

func TestMonthView_SelectMonth_Unauthorized(t *testing.T) {
	fail := false
	m := &mockAPI{GetInvoicesFunc: func(ctx context.Context, monthKey string) ([]api.Invoice, error) {
		if fail {
			return nil, client.ErrUnauthorized
		}
		return sampleInvoices(), nil
	}}
	v, state, shell := newTestView(t, m, entity.RoleAdmin)
	require.NoError(t, v.SelectMonth(context.Background(), "03"))
	before := v.Filtered()

	fail = true
	err := v.SelectMonth(context.Background(), "02")

	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, before, v.Filtered())
	assert.Equal(t, []notice{{LevelError, MsgSessionExpired}}, shell.notices)
	assert.Equal(t, []navigation{{RouteLogin, 3 * time.Second}}, shell.navigate)
	assert.Equal(t, "2024-03", state.CurrentMonth())
	assert.False(t, state.Loading())
}

func TestMonthView_SelectMonth_GenericFailure(t *testing.T) {
	m := &mockAPI{GetInvoicesFunc: func(ctx context.Context, monthKey string) ([]api.Invoice, error) {
		return nil, errors.New("boom")
	}}
	v, _, shell := newTestView(t, m, entity.RoleAdmin)

	assert.Error(t, v.SelectMonth(context.Background(), "03"))
	assert.Empty(t, v.Filtered())
	assert.Equal(t, []notice{{LevelError, MsgFetchFailed}}, shell.notices)
	assert.Empty(t, shell.navigate)
}

func TestMonthView_SelectMonth_DiscardsStaleResult(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	m := &mockAPI{GetInvoicesFunc: func(ctx context.Context, monthKey string) ([]api.Invoice, error) {
		if monthKey == "2024-01" {
			close(started)
			<-release
			return []api.Invoice{{InvoiceId: "old", Date: "2024-01-01", Value: dec("1")}}, nil
		}
		return []api.Invoice{{InvoiceId: "new", Date: "2024-02-01", Value: dec("2")}}, nil
	}}
	v, state, _ := newTestView(t, m, entity.RoleAdmin)

	done := make(chan error)
	go func() { done <- v.SelectMonth(context.Background(), "01") }()
	<-started

	require.NoError(t, v.SelectMonth(context.Background(), "02"))
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, []string{"new"}, ids(v.Filtered()))
	assert.Equal(t, "2024-02", state.CurrentMonth())
	_, stored := state.InvoiceDataByMonth("2024-01")
	assert.False(t, stored)
}

func TestMonthView_DeleteFlow(t *testing.T) {
	var deleted []string
	m := &mockAPI{
		GetInvoicesFunc: func(ctx context.Context, monthKey string) ([]api.Invoice, error) {
			return sampleInvoices(), nil
		},
		DeleteInvoiceFunc: func(ctx context.Context, invoiceID, fileKey string) error {
			deleted = append(deleted, invoiceID+"|"+fileKey)
			return nil
		},
	}
	v, state, shell := newTestView(t, m, entity.RoleAdmin)
	require.NoError(t, v.SelectMonth(context.Background(), "03"))

	require.NoError(t, v.StageDelete("d", "/api/files/d"))
	assert.Equal(t, monthViewOwner, state.Modal())

	require.NoError(t, v.ConfirmDelete(context.Background()))

	assert.Equal(t, []string{"d|/api/files/d"}, deleted)
	assert.Equal(t, []string{"a", "b", "c"}, ids(v.Filtered()))
	assert.Empty(t, state.Modal())
	_, _, staged := v.Staged()
	assert.False(t, staged)
	assert.Equal(t, []notice{{LevelSuccess, MsgDeleted}}, shell.notices)

	totals, ok := state.InvoiceDataByMonth("2024-03")
	require.True(t, ok)
	assert.Len(t, totals, 3)
	assert.True(t, dec("30.10").Equal(totals[entity.CategoryFood]))
	assert.True(t, dec("10.25").Equal(totals[entity.CategoryTransport]))
	assert.True(t, dec("5").Equal(totals[entity.Uncategorized]))
}

func TestMonthView_DeleteAfterFailedFetchKeepsLoadedMonth(t *testing.T) {
	m := &mockAPI{
		GetInvoicesFunc: func(ctx context.Context, monthKey string) ([]api.Invoice, error) {
			switch monthKey {
			case "2024-04":
				return []api.Invoice{{InvoiceId: "apr", Date: "2024-04-01", Category: entity.CategoryFuel, Value: dec("7")}}, nil
			case "2024-03":
				return sampleInvoices(), nil
			}
			return nil, errors.New("boom")
		},
		DeleteInvoiceFunc: func(ctx context.Context, invoiceID, fileKey string) error {
			return nil
		},
	}
	v, state, _ := newTestView(t, m, entity.RoleAdmin)
	ctx := context.Background()

	require.NoError(t, v.SelectMonth(ctx, "04"))
	require.NoError(t, v.SelectMonth(ctx, "03"))
	require.Error(t, v.SelectMonth(ctx, "05"))

	assert.Equal(t, "05", v.Month())
	assert.Equal(t, "03", v.LoadedMonth())
	assert.Equal(t, "Reporte de Facturas mes 03", v.Report().Title)
	assert.Equal(t, "2024-03", state.CurrentMonth())

	require.NoError(t, v.StageDelete("a", "/api/files/a"))
	require.NoError(t, v.ConfirmDelete(ctx))

	_, stored := state.InvoiceDataByMonth("2024-05")
	assert.False(t, stored)

	march, ok := state.InvoiceDataByMonth("2024-03")
	require.True(t, ok)
	_, hasTransport := march[entity.CategoryTransport]
	assert.False(t, hasTransport)
	assert.True(t, dec("30.15").Equal(march[entity.CategoryFood]))
	assert.True(t, dec("5").Equal(march[entity.Uncategorized]))

	april, ok := state.InvoiceDataByMonth("2024-04")
	require.True(t, ok)
	assert.True(t, dec("7").Equal(april[entity.CategoryFuel]))
	assert.Equal(t, "Reporte de Facturas mes 03", v.Report().Title)
}

func TestMonthView_CancelDelete(t *testing.T) {
	m := &mockAPI{DeleteInvoiceFunc: func(ctx context.Context, invoiceID, fileKey string) error {
		t.Fatal("no request expected")
		return nil
	}}
	v, state, _ := newTestView(t, m, entity.RoleAdmin)

	require.NoError(t, v.StageDelete("x", "k"))
	v.CancelDelete()

	assert.Empty(t, state.Modal())
	assert.ErrorIs(t, v.ConfirmDelete(context.Background()), ErrNothingStaged)
}

func TestMonthView_DeleteFailureClearsStaged(t *testing.T) {
	m := &mockAPI{DeleteInvoiceFunc: func(ctx context.Context, invoiceID, fileKey string) error {
		return client.ErrUnauthorized
	}}
	v, _, shell := newTestView(t, m, entity.RoleAdmin)
	require.NoError(t, v.StageDelete("x", "k"))

	assert.ErrorIs(t, v.ConfirmDelete(context.Background()), client.ErrUnauthorized)

	_, _, staged := v.Staged()
	assert.False(t, staged)
	assert.Equal(t, []navigation{{RouteLogin, 3 * time.Second}}, shell.navigate)
}

func TestMonthView_ExternalCannotMutate(t *testing.T) {
	v, state, _ := newTestView(t, &mockAPI{}, entity.RoleExternal)

	assert.ErrorIs(t, v.StageDelete("x", "k"), ErrForbidden)
	assert.ErrorIs(t, v.Edit("x"), ErrForbidden)
	assert.Empty(t, state.Modal())

	state.SetRole(entity.RoleAdmin)
	assert.NoError(t, v.Edit("x"))
}

func TestMonthView_ViewLinkAndReport(t *testing.T) {
	m := &mockAPI{GetInvoicesFunc: func(ctx context.Context, monthKey string) ([]api.Invoice, error) {
		return sampleInvoices(), nil
	}}
	v, _, _ := newTestView(t, m, entity.RoleExternal)
	require.NoError(t, v.SelectMonth(context.Background(), "03"))
	v.SelectCategory(entity.CategoryFood)

	link, err := v.ViewLink("a")
	require.NoError(t, err)
	assert.Equal(t, "/api/files/a", link)
	_, err = v.ViewLink("zzz")
	assert.ErrorIs(t, err, ErrNotFound)

	doc := v.Report()
	assert.Equal(t, "Reporte de Facturas mes 03 categoría "+entity.CategoryFood, doc.Title)
	assert.Len(t, doc.Lines(), 4)
	assert.Equal(t, "Total: 30.15", doc.TotalLine())
}

func TestInvoice_Display(t *testing.T) {
	inv := Invoice{Date: time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC), Value: dec("10.5")}

	assert.Equal(t, "07/03/2024", inv.DisplayDate())
	assert.Equal(t, "$10.50", inv.DisplayValue())
}

func TestMonthOptions(t *testing.T) {
	now := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)

	opts := MonthOptions(2024, now)
	require.Len(t, opts, 12)
	assert.Equal(t, MonthOption{Value: "01", Label: "Enero"}, opts[0])
	assert.False(t, opts[4].Disabled)
	assert.True(t, opts[5].Disabled)
	assert.Equal(t, "Diciembre", opts[11].Label)

	for _, o := range MonthOptions(2023, now) {
		assert.False(t, o.Disabled)
	}
	assert.Equal(t, "Mayo", MonthLabel("05"))
}
