package port

import (
	"context"

	"github.com/garyjia/invoice-desk/internal/domain/entity"
)

// InvoiceRepository defines invoice persistence operations
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	ListByMonth(ctx context.Context, month entity.Month) ([]*entity.Invoice, error)
	SumByCategory(ctx context.Context, month entity.Month) (entity.CategoryTotals, error)
	Delete(ctx context.Context, id string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
