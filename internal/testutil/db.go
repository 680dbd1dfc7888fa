// Package testutil provides shared helpers for package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mikewrather/agent-arena/internal/db"
)

// NewTestDB opens a migrated in-memory journal database. The connection is
// closed when the test finishes.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.OpenInMemory()
	require.NoError(t, err, "open in-memory database")
	require.NoError(t, database.Migrate(context.Background()), "migrate journal schema")

	t.Cleanup(func() { _ = database.Close() })
	return database
}
