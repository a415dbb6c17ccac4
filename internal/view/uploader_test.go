package view

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-desk/internal/client"
	"github.com/garyjia/invoice-desk/internal/domain/entity"
	"github.com/garyjia/invoice-desk/pkg/api"
)

func validForm() UploadForm {
	f := NewUploadForm(time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC))
	f.FileName = "ticket.pdf"
	f.File = []byte("%PDF-1.4")
	f.Amount = "12,50"
	f.Category = entity.CategoryFuel
	f.Description = "gasolina"
	return f
}

func TestUploadForm_Defaults(t *testing.T) {
	f := NewUploadForm(time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-03-07", f.Date)
}

func TestUploadForm_ValidateOrder(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*UploadForm)
		want   error
	}{
		{"no file beats everything", func(f *UploadForm) { f.FileName = ""; f.File = nil; f.Amount = "" }, ErrNoFile},
		{"missing amount", func(f *UploadForm) { f.Amount = " " }, ErrMissingFields},
		{"missing category", func(f *UploadForm) { f.Category = ""; f.Amount = "abc" }, ErrMissingFields},
		{"missing date", func(f *UploadForm) { f.Date = "" }, ErrMissingFields},
		{"bad amount", func(f *UploadForm) { f.Amount = "12,5,0" }, ErrInvalidAmount},
		{"not a number", func(f *UploadForm) { f.Amount = "NaN" }, ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(&f)
			_, err := f.Validate()
			assert.ErrorIs(t, err, tt.want)
		})
	}

	amount, err := validForm().Validate()
	require.NoError(t, err)
	assert.Equal(t, "12.5", amount.String())
}

func TestUploader_ValidationSkipsNetwork(t *testing.T) {
	m := &mockAPI{CreateInvoiceFunc: func(ctx context.Context, req api.CreateInvoiceRequest) (*api.Invoice, error) {
		t.Fatal("no request expected")
		return nil, nil
	}}
	shell := &recordingShell{}
	u := NewUploader(m, NewAppState(entity.RoleAdmin), shell, zap.NewNop())

	f := validForm()
	f.FileName = ""
	f.File = nil
	_, err := u.Submit(context.Background(), f)

	assert.ErrorIs(t, err, ErrNoFile)
	assert.Equal(t, []notice{{LevelWarning, "Por favor, seleccione un archivo"}}, shell.notices)
}

func TestUploader_EmptyFileReachesServer(t *testing.T) {
	var got api.CreateInvoiceRequest
	m := &mockAPI{CreateInvoiceFunc: func(ctx context.Context, req api.CreateInvoiceRequest) (*api.Invoice, error) {
		got = req
		return nil, &client.StatusError{StatusCode: 400, Message: "validation failed: file is empty"}
	}}
	shell := &recordingShell{}
	u := NewUploader(m, NewAppState(entity.RoleAdmin), shell, zap.NewNop())

	f := validForm()
	f.File = []byte{}
	_, err := u.Submit(context.Background(), f)

	var statusErr *client.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 400, statusErr.StatusCode)
	assert.Empty(t, got.Content)
	assert.Equal(t, []notice{{LevelError, MsgUploadFailed}}, shell.notices)
}

func TestUploader_Submit(t *testing.T) {
	var got api.CreateInvoiceRequest
	m := &mockAPI{CreateInvoiceFunc: func(ctx context.Context, req api.CreateInvoiceRequest) (*api.Invoice, error) {
		got = req
		return &api.Invoice{InvoiceId: "new"}, nil
	}}
	state := NewAppState(entity.RoleExternal)
	shell := &recordingShell{}
	u := NewUploader(m, state, shell, zap.NewNop())

	created, err := u.Submit(context.Background(), validForm())

	require.NoError(t, err)
	assert.Equal(t, "new", created.InvoiceId)
	assert.Equal(t, PlaceholderUserName, got.UserName)
	assert.Equal(t, "12.5", got.Value.String())
	assert.Equal(t, "2024-03-07", got.Date)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")), got.Content)
	assert.Equal(t, []notice{{LevelSuccess, MsgUploaded}}, shell.notices)
	assert.Equal(t, []navigation{{RouteHome, 3 * time.Second}}, shell.navigate)
	assert.False(t, state.Loading())
}

func TestUploader_SubmitFailures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantMsg  string
		navigate bool
	}{
		{"unauthorized", client.ErrUnauthorized, MsgSessionExpired, true},
		{"generic", errors.New("boom"), MsgUploadFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockAPI{CreateInvoiceFunc: func(ctx context.Context, req api.CreateInvoiceRequest) (*api.Invoice, error) {
				return nil, tt.err
			}}
			shell := &recordingShell{}
			u := NewUploader(m, NewAppState(entity.RoleAdmin), shell, zap.NewNop())

			_, err := u.Submit(context.Background(), validForm())

			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, []notice{{LevelError, tt.wantMsg}}, shell.notices)
			assert.Equal(t, tt.navigate, len(shell.navigate) == 1)
		})
	}
}
