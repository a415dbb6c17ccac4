package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-desk/internal/domain/entity"
	"github.com/garyjia/invoice-desk/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/invoice-desk/pkg/database"
)

func setupRepo(t *testing.T) (*InvoiceRepository, *sqlite.Transactor) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := database.New(database.Config{Path: path}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrator(path, logger).RunMigrations())

	repo := NewInvoiceRepository(db.DB, logger).(*InvoiceRepository)
	return repo, sqlite.NewTransactor(db.DB, sqlite.DefaultRetryPolicy, logger)
}

func newInvoice(id string, day int, category, value string) *entity.Invoice {
	return &entity.Invoice{
		ID:          id,
		Date:        time.Date(2024, time.January, day, 0, 0, 0, 0, time.UTC),
		Category:    category,
		Description: "desc " + id,
		Value:       decimal.RequireFromString(value),
		FileKey:     "2024-01/" + id + ".pdf",
		ContentType: "application/pdf",
		PageCount:   2,
		UserName:    "ana",
	}
}

func TestInvoiceRepository_CreateAndGet(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	inv := newInvoice("a", 5, entity.CategoryFood, "10.35")
	require.NoError(t, repo.Create(ctx, inv))

	got, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, inv.Date, got.Date)
	assert.Equal(t, entity.CategoryFood, got.Category)
	assert.True(t, inv.Value.Equal(got.Value))
	assert.Equal(t, inv.FileKey, got.FileKey)
	assert.Equal(t, 2, got.PageCount)

	missing, err := repo.GetByID(ctx, "zzz")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInvoiceRepository_ListByMonth(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newInvoice("late", 20, entity.CategoryFood, "1")))
	require.NoError(t, repo.Create(ctx, newInvoice("early", 2, entity.CategoryFuel, "2")))
	other := newInvoice("feb", 1, entity.CategoryFood, "3")
	other.Date = time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	other.FileKey = "2024-02/feb.pdf"
	require.NoError(t, repo.Create(ctx, other))

	list, err := repo.ListByMonth(ctx, entity.NewMonth(2024, time.January))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "early", list[0].ID)
	assert.Equal(t, "late", list[1].ID)

	empty, err := repo.ListByMonth(ctx, entity.NewMonth(2024, time.March))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestInvoiceRepository_SumByCategory(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newInvoice("a", 1, entity.CategoryFood, "0.10")))
	require.NoError(t, repo.Create(ctx, newInvoice("b", 2, entity.CategoryFood, "0.20")))
	require.NoError(t, repo.Create(ctx, newInvoice("c", 3, "", "1.00")))

	totals, err := repo.SumByCategory(ctx, entity.NewMonth(2024, time.January))
	require.NoError(t, err)
	assert.Equal(t, "0.3", totals[entity.CategoryFood].String())
	assert.True(t, decimal.NewFromInt(1).Equal(totals[entity.Uncategorized]))
}

func TestInvoiceRepository_Delete(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newInvoice("a", 1, entity.CategoryFood, "1")))
	require.NoError(t, repo.Delete(ctx, "a"))

	got, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Error(t, repo.Delete(ctx, "a"))
}

func TestInvoiceRepository_TransactionRollback(t *testing.T) {
	repo, tx := setupRepo(t)
	ctx := context.Background()

	err := tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := repo.Create(txCtx, newInvoice("rolled", 1, entity.CategoryFood, "1")); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	got, err := repo.GetByID(ctx, "rolled")
	require.NoError(t, err)
	assert.Nil(t, got)

	err = tx.WithTransaction(ctx, func(txCtx context.Context) error {
		return repo.Create(txCtx, newInvoice("kept", 1, entity.CategoryFood, "1"))
	})
	require.NoError(t, err)

	got, err = repo.GetByID(ctx, "kept")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestInvoiceRepository_DuplicateFileKey(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newInvoice("a", 1, entity.CategoryFood, "1")))
	dup := newInvoice("b", 1, entity.CategoryFood, "1")
	dup.FileKey = "2024-01/a.pdf"

	assert.Error(t, repo.Create(ctx, dup))
}
