// Package executor runs planned SQL statements against a database. The
// SQLExecutor talks to database/sql; Runner fans a fetch's statements out to
// a bounded worker pool and reports slow statements.
package executor

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"fireant/domain"
	"fireant/frame"
)

// Compile-time check.
var _ domain.QueryExecutor = (*SQLExecutor)(nil)

// SQLExecutor runs statements on a *sql.DB.
type SQLExecutor struct {
	db      *sql.DB
	logger  *slog.Logger
	limiter *rate.Limiter
	metrics *Metrics
}

// NewSQLExecutor creates an executor over db. A nil logger uses slog.Default().
func NewSQLExecutor(db *sql.DB, logger *slog.Logger) *SQLExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLExecutor{db: db, logger: logger}
}

// SetRateLimit throttles statements to qps per second with the given burst.
// A non-positive qps removes the limit.
func (e *SQLExecutor) SetRateLimit(qps float64, burst int) {
	if qps <= 0 {
		e.limiter = nil
		return
	}
	if burst < 1 {
		burst = 1
	}
	e.limiter = rate.NewLimiter(rate.Limit(qps), burst)
}

// SetMetrics records statement counts and durations in m.
func (e *SQLExecutor) SetMetrics(m *Metrics) {
	e.metrics = m
}

// Execute runs sqlQuery and returns all rows. Cancellation of ctx surfaces as
// domain.QueryCancelledError, driver failures as domain.ExecutionError.
func (e *SQLExecutor) Execute(ctx context.Context, sqlQuery string) (*domain.Result, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			// Wait fails early when the next token is past the deadline.
			if ctx.Err() != nil {
				err = ctx.Err()
			} else {
				err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
			}
			return nil, domain.WrapExecution(sqlQuery, err)
		}
	}

	start := time.Now()
	result, err := e.query(ctx, sqlQuery)
	elapsed := time.Since(start)
	e.metrics.observe(elapsed, err)

	if err != nil {
		err = domain.WrapExecution(sqlQuery, err)
		e.logger.Error("statement failed", "query_id", QueryID(ctx), "sql", sqlQuery, "elapsed", elapsed, "error", err)
		return nil, err
	}
	e.logger.Debug("statement executed", "query_id", QueryID(ctx), "sql", sqlQuery, "elapsed", elapsed, "rows", result.RowCount)
	return result, nil
}

func (e *SQLExecutor) query(ctx context.Context, sqlQuery string) (*domain.Result, error) {
	rows, err := e.db.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	result, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("scan results: %w", err)
	}
	return result, nil
}

// Close closes the underlying database handle.
func (e *SQLExecutor) Close() error {
	return e.db.Close()
}

// scanRows reads the whole result set. Driver values are normalized to the
// plain types frames hold, so cached results never alias driver buffers.
func scanRows(rows *sql.Rows) (*domain.Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	res := &domain.Result{Columns: cols, Rows: [][]interface{}{}}
	dest := make([]interface{}, len(cols))
	for rows.Next() {
		row := make([]interface{}, len(cols))
		for i := range row {
			dest[i] = &row[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		for i, v := range row {
			row[i] = frame.NormalizeValue(v)
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	res.RowCount = len(res.Rows)
	return res, nil
}

type queryIDKey struct{}

// WithQueryID tags ctx so every statement of one fetch logs the same id.
func WithQueryID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, queryIDKey{}, id)
}

// QueryID returns the id set by WithQueryID, or "".
func QueryID(ctx context.Context) string {
	id, _ := ctx.Value(queryIDKey{}).(string)
	return id
}
