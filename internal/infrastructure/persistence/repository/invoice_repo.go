package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-desk/internal/application/port"
	"github.com/garyjia/invoice-desk/internal/domain/entity"
	"github.com/garyjia/invoice-desk/internal/infrastructure/persistence/sqlite"
)

const dateLayout = "2006-01-02"

// InvoiceRepository implements port.InvoiceRepository
type InvoiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *sql.DB, logger *zap.Logger) port.InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

const invoiceColumns = `id, invoice_date, category, description, value, file_key,
	content_type, page_count, user_name, created_at`

// Create inserts a new invoice record
func (r *InvoiceRepository) Create(ctx context.Context, invoice *entity.Invoice) error {
	query := `
		INSERT INTO invoices (
			id, invoice_date, month, category, description, value, file_key,
			content_type, page_count, user_name, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		invoice.ID,
		invoice.Date.Format(dateLayout),
		invoice.Month().String(),
		invoice.Category,
		invoice.Description,
		invoice.Value,
		invoice.FileKey,
		invoice.ContentType,
		invoice.PageCount,
		invoice.UserName,
		invoice.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create invoice", zap.String("id", invoice.ID), zap.Error(err))
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	return nil
}

// GetByID retrieves an invoice by ID. It returns nil, nil when none exists.
func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = ?`

	invoice, err := scanInvoice(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get invoice by ID", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	return invoice, nil
}

// ListByMonth returns every invoice of month ordered by date, then upload time
func (r *InvoiceRepository) ListByMonth(ctx context.Context, month entity.Month) ([]*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE month = ?
		ORDER BY invoice_date ASC, created_at ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, month)
	if err != nil {
		r.logger.Error("Failed to list invoices", zap.String("month", month.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]*entity.Invoice, 0)
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoices: %w", err)
	}

	return invoices, nil
}

// SumByCategory totals the month's values per category.
// Values are summed as decimals in Go; SQLite SUM would go through floats.
func (r *InvoiceRepository) SumByCategory(ctx context.Context, month entity.Month) (entity.CategoryTotals, error) {
	query := `SELECT category, value FROM invoices WHERE month = ?`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, month)
	if err != nil {
		r.logger.Error("Failed to sum invoices", zap.String("month", month.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to sum invoices: %w", err)
	}
	defer rows.Close()

	totals := make(entity.CategoryTotals)
	for rows.Next() {
		var category string
		var value decimal.Decimal
		if err := rows.Scan(&category, &value); err != nil {
			return nil, fmt.Errorf("failed to scan total: %w", err)
		}
		category = entity.NormalizeCategory(category)
		totals[category] = totals[category].Add(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate totals: %w", err)
	}

	return totals, nil
}

// Delete removes an invoice by ID
func (r *InvoiceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete invoice", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete invoice: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("invoice %s not found", id)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvoice(row rowScanner) (*entity.Invoice, error) {
	var invoice entity.Invoice
	var date string

	err := row.Scan(
		&invoice.ID,
		&date,
		&invoice.Category,
		&invoice.Description,
		&invoice.Value,
		&invoice.FileKey,
		&invoice.ContentType,
		&invoice.PageCount,
		&invoice.UserName,
		&invoice.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	invoice.Date, err = time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid stored date %q: %w", date, err)
	}

	return &invoice, nil
}

// getExecutor returns appropriate executor based on context
func (r *InvoiceRepository) getExecutor(ctx context.Context) sqlite.QueryExecutor {
	return sqlite.Executor(ctx, r.db)
}

// Verify interface compliance
var _ port.InvoiceRepository = (*InvoiceRepository)(nil)
