package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/garyjia/invoice-desk/internal/application/port"
	"github.com/garyjia/invoice-desk/internal/domain/entity"
	"github.com/garyjia/invoice-desk/internal/domain/event"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

var (
	ErrValidation      = errors.New("validation failed")
	ErrForbidden       = errors.New("role not allowed to modify invoices")
	ErrNotFound        = errors.New("invoice not found")
	ErrFileKeyMismatch = errors.New("file key does not belong to invoice")
	ErrNotImplemented  = errors.New("operation not implemented")
)

// FileRoutePrefix is the public path under which stored documents are served.
// Image links carry it; file keys are accepted with or without it.
const FileRoutePrefix = "/api/files/"

// Caller identifies who issued a request
type Caller struct {
	UserName string
	Role     entity.Role
}

// CreateInvoiceInput holds the fields of an upload
type CreateInvoiceInput struct {
	UserName    string
	Value       decimal.Decimal
	Date        time.Time
	Description string
	Category    string
	Content     string // base64
}

// InvoiceService manages invoice intake, listing and removal
type InvoiceService interface {
	ListByMonth(ctx context.Context, month entity.Month) ([]*entity.Invoice, error)
	Summary(ctx context.Context, month entity.Month) (entity.CategoryTotals, error)
	Create(ctx context.Context, caller Caller, in CreateInvoiceInput) (*entity.Invoice, error)
	Delete(ctx context.Context, caller Caller, id, fileKey string) error
	Edit(ctx context.Context, caller Caller, id string) error
	OpenFile(ctx context.Context, fileKey string) ([]byte, error)
}

// InvoiceServiceConfig bounds what an upload may contain
type InvoiceServiceConfig struct {
	MaxUploadBytes int
}

type invoiceServiceImpl struct {
	cfg       InvoiceServiceConfig
	repo      port.InvoiceRepository
	txManager port.TransactionManager
	storage   port.FileStorage
	inspector port.DocumentInspector
	publisher port.EventPublisher
	logger    Logger
	now       func() time.Time
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	cfg InvoiceServiceConfig,
	repo port.InvoiceRepository,
	txManager port.TransactionManager,
	storage port.FileStorage,
	inspector port.DocumentInspector,
	publisher port.EventPublisher,
	logger Logger,
) InvoiceService {
	return &invoiceServiceImpl{
		cfg:       cfg,
		repo:      repo,
		txManager: txManager,
		storage:   storage,
		inspector: inspector,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// ListByMonth returns the month batch ordered by date
func (s *invoiceServiceImpl) ListByMonth(ctx context.Context, month entity.Month) ([]*entity.Invoice, error) {
	invoices, err := s.repo.ListByMonth(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

// Summary returns per-category totals for month
func (s *invoiceServiceImpl) Summary(ctx context.Context, month entity.Month) (entity.CategoryTotals, error) {
	totals, err := s.repo.SumByCategory(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("sum invoices: %w", err)
	}
	return totals, nil
}

// Create stores the document and records the invoice
func (s *invoiceServiceImpl) Create(ctx context.Context, caller Caller, in CreateInvoiceInput) (*entity.Invoice, error) {
	content, err := s.validateCreate(in)
	if err != nil {
		return nil, err
	}

	info, err := s.inspector.Inspect(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	userName := caller.UserName
	if userName == "" {
		userName = in.UserName
	}

	invoice := &entity.Invoice{
		ID:          uuid.NewString(),
		Date:        in.Date,
		Category:    in.Category,
		Description: strings.TrimSpace(in.Description),
		Value:       in.Value,
		ContentType: info.ContentType,
		PageCount:   info.PageCount,
		UserName:    userName,
		CreatedAt:   s.now().UTC(),
	}
	invoice.FileKey = fmt.Sprintf("%s/%s%s", invoice.Month(), invoice.ID, info.Extension)

	if err := s.storage.Save(ctx, invoice.FileKey, content); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, invoice); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		if delErr := s.storage.Delete(ctx, invoice.FileKey); delErr != nil {
			s.logger.Error("Failed to remove orphaned document", "file_key", invoice.FileKey, "error", delErr)
		}
		return nil, err
	}

	s.logger.Info("Invoice created",
		"id", invoice.ID,
		"month", invoice.Month().String(),
		"category", invoice.Category,
		"value", invoice.Value.String(),
		"user", invoice.UserName)

	s.publish(ctx, event.NewEvent(event.TypeInvoiceCreated, invoice.ID, invoice.Month().String(), map[string]interface{}{
		"category": invoice.Category,
		"value":    invoice.Value.String(),
		"file_key": invoice.FileKey,
	}))

	return invoice, nil
}

func (s *invoiceServiceImpl) validateCreate(in CreateInvoiceInput) ([]byte, error) {
	if in.Content == "" {
		return nil, fmt.Errorf("%w: file content is required", ErrValidation)
	}
	if in.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrValidation)
	}
	if in.Category == "" {
		return nil, fmt.Errorf("%w: category is required", ErrValidation)
	}
	if !entity.IsKnownCategory(in.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", ErrValidation, in.Category)
	}
	if in.Value.IsNegative() {
		return nil, fmt.Errorf("%w: value must not be negative", ErrValidation)
	}

	content, err := decodeContent(in.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: content is not valid base64", ErrValidation)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrValidation)
	}
	if s.cfg.MaxUploadBytes > 0 && len(content) > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrValidation, s.cfg.MaxUploadBytes)
	}
	return content, nil
}

// decodeContent accepts bare base64 or a data URL
func decodeContent(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	return base64.StdEncoding.DecodeString(s)
}

// Delete removes an invoice and its document. Only roles that may mutate are allowed.
func (s *invoiceServiceImpl) Delete(ctx context.Context, caller Caller, id, fileKey string) error {
	if !caller.Role.CanMutate() {
		s.logger.Info("Delete rejected", "id", id, "user", caller.UserName, "role", string(caller.Role))
		return ErrForbidden
	}

	invoice, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get invoice: %w", err)
	}
	if invoice == nil {
		return ErrNotFound
	}
	if NormalizeFileKey(fileKey) != invoice.FileKey {
		return ErrFileKeyMismatch
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("delete invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, invoice.FileKey); err != nil {
		s.logger.Error("Failed to delete document", "id", id, "file_key", invoice.FileKey, "error", err)
	}

	s.logger.Info("Invoice deleted", "id", id, "user", caller.UserName)

	s.publish(ctx, event.NewEvent(event.TypeInvoiceDeleted, id, invoice.Month().String(), map[string]interface{}{
		"file_key": invoice.FileKey,
		"user":     caller.UserName,
	}))

	return nil
}

// Edit checks the caller's role. Editing stored invoices is not supported yet.
func (s *invoiceServiceImpl) Edit(ctx context.Context, caller Caller, id string) error {
	if !caller.Role.CanMutate() {
		return ErrForbidden
	}
	return ErrNotImplemented
}

// OpenFile reads a stored document by key
func (s *invoiceServiceImpl) OpenFile(ctx context.Context, fileKey string) ([]byte, error) {
	key := NormalizeFileKey(fileKey)
	if key == "" || !s.storage.Exists(ctx, key) {
		return nil, ErrNotFound
	}
	return s.storage.Read(ctx, key)
}

func (s *invoiceServiceImpl) publish(ctx context.Context, e *event.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Error("Failed to publish event", "type", e.Type.String(), "invoice_id", e.InvoiceID, "error", err)
	}
}

// ImageLink returns the public locator of a stored document
func ImageLink(fileKey string) string {
	return FileRoutePrefix + fileKey
}

// NormalizeFileKey strips the public route prefix from an image link
func NormalizeFileKey(key string) string {
	key = strings.TrimPrefix(key, FileRoutePrefix)
	return strings.TrimPrefix(key, "/")
}
