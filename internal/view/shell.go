// Package view holds the listing, upload and shared-state logic behind the
// invoice screens. Rendering is left to a Shell implementation.
package view

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/invoice-desk/internal/client"
	"github.com/garyjia/invoice-desk/pkg/api"
)

// Level is the severity of a notice
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

const (
	RouteLogin = "/"
	RouteHome  = "/home"

	redirectDelay = 3 * time.Second
)

// User-facing notices
const (
	MsgSessionExpired = "Tu sesión ha expirado. Por favor, inicia sesión de nuevo."
	MsgFetchFailed    = "Error al consultar facturas. Por favor, inténtelo de nuevo más tarde."
	MsgDeleteFailed   = "Error al eliminar factura. Por favor, inténtelo de nuevo más tarde."
	MsgDeleted        = "Factura eliminada exitosamente."
	MsgUploaded       = "Factura cargada exitosamente"
	MsgUploadFailed   = "Error al cargar la factura. Por favor, inténtelo de nuevo más tarde."
)

// Shell shows notices and performs navigation for the views
type Shell interface {
	Notify(level Level, msg string)
	NavigateAfter(route string, delay time.Duration)
}

// InvoiceAPI is the part of the API client the views call
type InvoiceAPI interface {
	GetInvoices(ctx context.Context, monthKey string) ([]api.Invoice, error)
	CreateInvoice(ctx context.Context, req api.CreateInvoiceRequest) (*api.Invoice, error)
	DeleteInvoice(ctx context.Context, invoiceID, fileKey string) error
}

// reportFailure surfaces a remote failure. Unauthorized sends the user back
// to login; anything else gets the generic notice and is only logged.
func reportFailure(shell Shell, logger *zap.Logger, err error, generic, op string) {
	if errors.Is(err, client.ErrUnauthorized) {
		shell.Notify(LevelError, MsgSessionExpired)
		shell.NavigateAfter(RouteLogin, redirectDelay)
		return
	}
	logger.Error("Invoice request failed", zap.String("operation", op), zap.Error(err))
	shell.Notify(LevelError, generic)
}
