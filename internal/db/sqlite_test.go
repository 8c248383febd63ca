package db

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN_File(t *testing.T) {
	dsn := buildDSN("/tmp/test.sqlite")

	assert.Contains(t, dsn, "_journal_mode=WAL")
	assert.Contains(t, dsn, "_busy_timeout=5000")
	assert.NotContains(t, dsn, "mode=memory")
	assert.True(t, strings.HasPrefix(dsn, "/tmp/test.sqlite?"))
}

func TestBuildDSN_Memory(t *testing.T) {
	for _, path := range []string{"", ":memory:"} {
		dsn := buildDSN(path)
		assert.True(t, strings.HasPrefix(dsn, "file:fireant?"))
		assert.Contains(t, dsn, "mode=memory")
		assert.Contains(t, dsn, "cache=shared")
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}

func TestOpenSQLite(t *testing.T) {
	db, err := Open("sqlite3", filepath.Join(t.TempDir(), "test.db"), 2)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", strings.ToLower(journalMode))

	assert.Equal(t, 2, db.Stats().MaxOpenConnections)
}

func TestOpenDuckDB_InMemory(t *testing.T) {
	db, err := OpenDuckDB("", 1)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var n int
	require.NoError(t, db.QueryRow("SELECT 40 + 2").Scan(&n))
	assert.Equal(t, 42, n)
}

func TestOpenTestSQLite_Seeds(t *testing.T) {
	db := OpenTestSQLite(t,
		`CREATE TABLE t (x INTEGER)`,
		`INSERT INTO t VALUES (1), (2)`,
	)
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM t").Scan(&n))
	assert.Equal(t, 2, n)
}
