package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLiteDBAndMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "documents.db")

	conn, err := NewSQLiteDB(path)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, RunMigrations(conn))
	// second run is a no-op
	require.NoError(t, RunMigrations(conn))

	var tables []string
	require.NoError(t, conn.Select(&tables,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('documents', 'analyses') ORDER BY name`))
	assert.Equal(t, []string{"analyses", "documents"}, tables)

	var fk int
	require.NoError(t, conn.Get(&fk, `PRAGMA foreign_keys`))
	assert.Equal(t, 1, fk)
}
