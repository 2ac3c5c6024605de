package iocache

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/oilshock/brentcp/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateResults_NoneBackend(t *testing.T) {
	err := MigrateResults(schema.NoneBackend, "", -1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations are not supported for NoneBackend")
}

func TestMigrateResults_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migrate.db")

	require.NoError(t, MigrateResults(schema.SQLiteBackend, dbPath, -1))
	assert.Equal(t, []string{fitsTable, parametersTable, runsTable}, listTables(t, dbPath))

	// Already at the latest version.
	require.NoError(t, MigrateResults(schema.SQLiteBackend, dbPath, -1))

	require.NoError(t, MigrateResults(schema.SQLiteBackend, dbPath, 1))
	assert.Equal(t, []string{runsTable}, listTables(t, dbPath))

	require.NoError(t, MigrateResults(schema.SQLiteBackend, dbPath, 0))
	assert.Empty(t, listTables(t, dbPath))

	require.NoError(t, MigrateResults(schema.SQLiteBackend, dbPath, 3))
	assert.Len(t, listTables(t, dbPath), 3)

	// The store accepts a migrated database.
	store, err := NewResultStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestMigrateResults_SQLiteInMemory(t *testing.T) {
	require.NoError(t, MigrateResults(schema.SQLiteBackend, ":memory:", -1))
}

func TestMigrationDir(t *testing.T) {
	for _, backend := range []schema.DatabaseBackend{schema.SQLiteBackend, schema.MySQLBackend, schema.PostgreSQLBackend} {
		entries, err := migrationsFS.ReadDir(migrationDir(backend))
		require.NoError(t, err, backend)
		assert.Len(t, entries, 6, "up and down files for three versions in %s", backend)
	}
}

// listTables returns the brentcp tables of a SQLite file in name order.
func listTables(t *testing.T, path string) []string {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE 'brentcp_%' ORDER BY name`)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}
