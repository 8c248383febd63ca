package domain

import (
	"context"
	"time"
)

// Result holds the tabular output of one SQL statement.
type Result struct {
	Columns  []string
	Rows     [][]interface{}
	RowCount int
}

// QueryExecutor runs a single SQL statement and returns its rows.
// Implemented by executor.SQLExecutor and executor.CachingExecutor.
type QueryExecutor interface {
	Execute(ctx context.Context, sqlQuery string) (*Result, error)
}

// SlowQueryHook is notified when a statement runs longer than the configured threshold.
type SlowQueryHook func(ctx context.Context, sqlQuery string, elapsed time.Duration)
