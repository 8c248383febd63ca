// Package db opens the database handles that datasets are queried through.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" driver
	_ "github.com/mattn/go-sqlite3"    // registers the "sqlite3" driver
)

// SQLite DSN parameters for read-mostly analytical access.
const (
	defaultBusyTimeout = "5000" // 5 seconds
	defaultJournalMode = "WAL"
)

// Supported drivers.
const (
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite3"
)

// Open opens a pool for driver. maxOpen bounds open connections and should
// match the executor's worker count; 0 leaves the driver default.
func Open(driver, dsn string, maxOpen int) (*sql.DB, error) {
	switch strings.ToLower(driver) {
	case DriverDuckDB, "":
		return OpenDuckDB(dsn, maxOpen)
	case DriverSQLite, "sqlite":
		return OpenSQLite(dsn, maxOpen)
	default:
		return nil, fmt.Errorf("unsupported driver %q: must be %q or %q", driver, DriverDuckDB, DriverSQLite)
	}
}

// OpenDuckDB opens a DuckDB database. An empty dsn is an in-memory database.
func OpenDuckDB(dsn string, maxOpen int) (*sql.DB, error) {
	db, err := sql.Open(DriverDuckDB, dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return configure(db, "duckdb", maxOpen)
}

// OpenSQLite opens a SQLite database file. An empty path or ":memory:" opens
// a shared in-memory database.
func OpenSQLite(path string, maxOpen int) (*sql.DB, error) {
	db, err := sql.Open(DriverSQLite, buildDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return configure(db, "sqlite", maxOpen)
}

func configure(db *sql.DB, name string, maxOpen int) (*sql.DB, error) {
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen)
	}
	db.SetConnMaxLifetime(time.Hour)

	// Verify the connection is usable.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", name, err)
	}
	return db, nil
}

// buildDSN constructs a SQLite DSN. In-memory databases use shared cache so
// every pooled connection sees the same data.
func buildDSN(path string) string {
	params := url.Values{}
	params.Set("_busy_timeout", defaultBusyTimeout)

	if path == "" || path == ":memory:" {
		params.Set("mode", "memory")
		params.Set("cache", "shared")
		return "file:fireant?" + params.Encode()
	}
	params.Set("_journal_mode", defaultJournalMode)
	return path + "?" + params.Encode()
}
