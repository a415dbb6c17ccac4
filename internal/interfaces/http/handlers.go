package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/invoice-desk/internal/application/service"
	"github.com/garyjia/invoice-desk/internal/domain/entity"
	"github.com/garyjia/invoice-desk/pkg/api"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	invoices service.InvoiceService
	health   HealthFunc
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(invoices service.InvoiceService, health HealthFunc, logger Logger) *Handlers {
	return &Handlers{
		invoices: invoices,
		health:   health,
		logger:   logger,
	}
}

// Response is the envelope of non-listing endpoints and of every error
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	healthy, detail := true, interface{}(nil)
	if h.health != nil {
		healthy, detail = h.health()
	}

	resp := HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: detail,
	}
	status := http.StatusOK
	if !healthy {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, Response{Success: healthy, Data: resp})
}

// Session handles GET /api/session
func (h *Handlers) Session(c *gin.Context) {
	caller := callerFrom(c)
	c.JSON(http.StatusOK, api.Session{UserName: caller.UserName, Role: string(caller.Role)})
}

// ListInvoices handles GET /api/invoices?month=YYYY-MM
func (h *Handlers) ListInvoices(c *gin.Context) {
	month, ok := h.monthParam(c)
	if !ok {
		return
	}

	invoices, err := h.invoices.ListByMonth(c.Request.Context(), month)
	if err != nil {
		h.fail(c, err, "failed to list invoices")
		return
	}

	out := make([]api.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toWireInvoice(inv))
	}
	c.JSON(http.StatusOK, out)
}

// Summary handles GET /api/invoices/summary?month=YYYY-MM
func (h *Handlers) Summary(c *gin.Context) {
	month, ok := h.monthParam(c)
	if !ok {
		return
	}

	totals, err := h.invoices.Summary(c.Request.Context(), month)
	if err != nil {
		h.fail(c, err, "failed to summarize invoices")
		return
	}

	out := make(map[string]decimal.Decimal, len(totals))
	for cat, v := range totals {
		out[cat] = v
	}
	c.JSON(http.StatusOK, api.Summary{Month: month.String(), Totals: out, Total: totals.Total()})
}

// CreateInvoice handles POST /api/invoices
func (h *Handlers) CreateInvoice(c *gin.Context) {
	var req api.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abort(c, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.logger.Error("Invalid upload payload", "error", err)
		abort(c, http.StatusBadRequest, "invalid request body")
		return
	}

	date, err := time.Parse(api.DateLayout, req.Date)
	if err != nil {
		abort(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	caller := callerFrom(c)
	invoice, err := h.invoices.Create(c.Request.Context(), caller, service.CreateInvoiceInput{
		UserName:    req.UserName,
		Value:       req.Value,
		Date:        date,
		Description: req.Description,
		Category:    req.Category,
		Content:     req.Content,
	})
	if err != nil {
		h.fail(c, err, "failed to create invoice")
		return
	}

	c.JSON(http.StatusCreated, toWireInvoice(invoice))
}

// DeleteInvoice handles DELETE /api/invoices/:id?fileKey=...
func (h *Handlers) DeleteInvoice(c *gin.Context) {
	id := c.Param("id")
	fileKey := c.Query("fileKey")

	if err := h.invoices.Delete(c.Request.Context(), callerFrom(c), id, fileKey); err != nil {
		h.fail(c, err, "failed to delete invoice")
		return
	}
	c.Status(http.StatusNoContent)
}

// EditInvoice handles PUT /api/invoices/:id
func (h *Handlers) EditInvoice(c *gin.Context) {
	err := h.invoices.Edit(c.Request.Context(), callerFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to edit invoice")
		return
	}
	c.Status(http.StatusNoContent)
}

// ServeFile handles GET /api/files/*key
func (h *Handlers) ServeFile(c *gin.Context) {
	data, err := h.invoices.OpenFile(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.fail(c, err, "failed to read file")
		return
	}
	c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
}

func (h *Handlers) monthParam(c *gin.Context) (entity.Month, bool) {
	month, err := entity.ParseMonth(c.Query("month"))
	if err != nil {
		abort(c, http.StatusBadRequest, "month must be YYYY-MM")
		return entity.Month{}, false
	}
	return month, true
}

// fail maps service errors to status codes. Internal errors are logged and
// answered with msg only.
func (h *Handlers) fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrFileKeyMismatch):
		abort(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		abort(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		abort(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotImplemented):
		abort(c, http.StatusNotImplemented, err.Error())
	default:
		h.logger.Error(msg, "path", c.Request.URL.Path, "error", err)
		abort(c, http.StatusInternalServerError, msg)
	}
}

func toWireInvoice(inv *entity.Invoice) api.Invoice {
	return api.Invoice{
		InvoiceId:   inv.ID,
		Date:        inv.Date.Format(api.DateLayout),
		Category:    inv.Category,
		Description: inv.Description,
		Value:       inv.Value,
		ImgLink:     service.ImageLink(inv.FileKey),
		UserName:    inv.UserName,
	}
}
