// Package dbtest provides a migrated in-memory database for package tests.
package dbtest

import (
	"context"
	"testing"

	"loralinka/internal/database"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// New returns a fresh SQLite database with the full schema. It is closed when the test ends.
func New(t testing.TB) *bun.DB {
	t.Helper()

	db, err := database.NewSQLite(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}
