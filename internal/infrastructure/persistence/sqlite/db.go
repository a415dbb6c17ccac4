// Package sqlite runs invoice writes inside SQLite transactions.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-desk/internal/application/port"
)

type txKey struct{}

// RetryPolicy bounds how often a transaction is replayed when SQLite reports
// the database as busy or locked. The wait grows linearly with each attempt.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetryPolicy suits a single WAL database shared by a few writers
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: 50 * time.Millisecond}

// Transactor implements port.TransactionManager on a SQLite handle
type Transactor struct {
	db     *sql.DB
	retry  RetryPolicy
	logger *zap.Logger
}

// NewTransactor creates a Transactor. Attempts below one mean a single try.
func NewTransactor(db *sql.DB, retry RetryPolicy, logger *zap.Logger) *Transactor {
	if retry.Attempts < 1 {
		retry.Attempts = 1
	}
	return &Transactor{db: db, retry: retry, logger: logger}
}

// WithTransaction runs fn in a transaction carried by the context passed to
// fn. Nested calls join the outer transaction. A busy or locked database
// rolls back and replays fn, so fn must only touch the database.
func (t *Transactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFrom(ctx); ok {
		return fn(ctx)
	}

	var err error
	for attempt := 1; attempt <= t.retry.Attempts; attempt++ {
		err = t.runOnce(ctx, fn)
		if err == nil || !IsBusy(err) || attempt == t.retry.Attempts {
			return err
		}

		t.logger.Warn("Database busy, retrying transaction",
			zap.Int("attempt", attempt),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.retry.Backoff * time.Duration(attempt)):
		}
	}
	return err
}

func (t *Transactor) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			t.logger.Error("Transaction panicked, rolled back", zap.Any("panic", p))
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			t.logger.Error("Failed to roll back transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// IsBusy reports whether err comes from SQLite refusing a write because
// another connection holds the lock
func IsBusy(err error) bool {
	var sqlErr sqlite3.Error
	if !errors.As(err, &sqlErr) {
		return false
	}
	return sqlErr.Code == sqlite3.ErrBusy || sqlErr.Code == sqlite3.ErrLocked
}

func txFrom(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

// QueryExecutor covers both *sql.DB and *sql.Tx
type QueryExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Executor returns the transaction carried by ctx, or fallback outside one
func Executor(ctx context.Context, fallback *sql.DB) QueryExecutor {
	if tx, ok := txFrom(ctx); ok {
		return tx
	}
	return fallback
}

var _ port.TransactionManager = (*Transactor)(nil)
