package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_CreatesParentDirAndMigrates(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	path := filepath.Join(t.TempDir(), "nested", "invoices.db")

	db, err := New(Config{Path: path, MaxOpenConns: 4}, logger)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, NewMigrator(path, logger).RunMigrations())

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='invoices'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "invoices", name)

	// Second run is a no-op.
	assert.NoError(t, NewMigrator(path, logger).RunMigrations())
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "file:data/x.db?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", DSN("data/x.db"))
}
