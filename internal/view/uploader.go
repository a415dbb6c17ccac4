package view

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-desk/pkg/api"
)

// PlaceholderUserName is sent as the uploader name. The server records the
// session user instead when one is known.
const PlaceholderUserName = "Nombre de usuario"

// Upload validation errors, checked in this order
var (
	ErrNoFile        = errors.New("no file selected")
	ErrMissingFields = errors.New("amount, category and date are required")
	ErrInvalidAmount = errors.New("amount is not a number")
)

var validationNotices = map[error]string{
	ErrNoFile:        "Por favor, seleccione un archivo",
	ErrMissingFields: "Por favor, complete todos los campos",
	ErrInvalidAmount: "Por favor, ingrese un valor numérico válido",
}

// ValidationNotice returns the user-facing text of an upload validation error
func ValidationNotice(err error) (string, bool) {
	for target, msg := range validationNotices {
		if errors.Is(err, target) {
			return msg, true
		}
	}
	return "", false
}

// UploadForm is the state of the upload screen
type UploadForm struct {
	FileName    string
	File        []byte
	Amount      string
	Category    string
	Description string
	Date        string
}

// NewUploadForm returns an empty form dated today
func NewUploadForm(now time.Time) UploadForm {
	return UploadForm{Date: now.Format(api.DateLayout)}
}

// HasFile reports whether a file was selected. An empty file still counts;
// the server rejects empty content.
func (f UploadForm) HasFile() bool {
	return f.FileName != "" || f.File != nil
}

// Validate checks the form and returns the parsed amount. The first failing
// check wins.
func (f UploadForm) Validate() (decimal.Decimal, error) {
	if !f.HasFile() {
		return decimal.Zero, ErrNoFile
	}
	if strings.TrimSpace(f.Amount) == "" || f.Category == "" || f.Date == "" {
		return decimal.Zero, ErrMissingFields
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(f.Amount), ",", "."))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}

// Uploader submits upload forms
type Uploader struct {
	api    InvoiceAPI
	state  *AppState
	shell  Shell
	logger *zap.Logger
}

// NewUploader creates an Uploader
func NewUploader(invoices InvoiceAPI, state *AppState, shell Shell, logger *zap.Logger) *Uploader {
	return &Uploader{api: invoices, state: state, shell: shell, logger: logger}
}

// Submit validates and sends the form. Validation failures are shown as a
// warning and never reach the network.
func (u *Uploader) Submit(ctx context.Context, form UploadForm) (*api.Invoice, error) {
	amount, err := form.Validate()
	if err != nil {
		msg, _ := ValidationNotice(err)
		u.shell.Notify(LevelWarning, msg)
		return nil, err
	}

	u.state.OpenLoading()
	req := api.CreateInvoiceRequest{
		UserName:    PlaceholderUserName,
		Value:       amount,
		Date:        form.Date,
		Description: form.Description,
		Category:    form.Category,
		Content:     base64.StdEncoding.EncodeToString(form.File),
	}
	created, err := u.api.CreateInvoice(ctx, req)
	u.state.CloseLoading()

	if err != nil {
		reportFailure(u.shell, u.logger, err, MsgUploadFailed, "upload")
		return nil, err
	}

	u.logger.Info("Invoice uploaded",
		zap.String("file", form.FileName),
		zap.String("invoice_id", created.InvoiceId))
	u.shell.Notify(LevelSuccess, MsgUploaded)
	u.shell.NavigateAfter(RouteHome, redirectDelay)
	return created, nil
}
