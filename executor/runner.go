package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fireant/domain"
)

// DefaultSlowQueryThreshold is used when a Runner has no threshold.
const DefaultSlowQueryThreshold = 15 * time.Second

// Runner executes the statements of one fetch.
type Runner struct {
	Exec domain.QueryExecutor
	// MaxWorkers bounds concurrent statements. Zero means 1.
	MaxWorkers int
	// SlowQueryThreshold defaults to DefaultSlowQueryThreshold.
	SlowQueryThreshold time.Duration
	// OnSlowQuery defaults to a warning on Logger.
	OnSlowQuery domain.SlowQueryHook
	Logger      *slog.Logger
}

// RunAll executes statements concurrently and returns their results in the
// order given. The first failure cancels the remaining statements and no
// partial results are returned.
func (r *Runner) RunAll(ctx context.Context, statements []string) ([]*domain.Result, error) {
	if r.Exec == nil {
		return nil, fmt.Errorf("run statements: no executor configured")
	}
	workers := r.MaxWorkers
	if workers < 1 {
		workers = 1
	}

	results := make([]*domain.Result, len(statements))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range statements {
		sqlQuery := statements[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return domain.WrapExecution(sqlQuery, err)
			}
			start := time.Now()
			res, err := r.Exec.Execute(gctx, sqlQuery)
			if err != nil {
				return err
			}
			if elapsed := time.Since(start); elapsed > r.threshold() {
				r.slowQuery(gctx, sqlQuery, elapsed)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// A statement failing after ctx was cancelled by the caller reports
		// the cancellation, not the driver's reaction to it.
		if ctx.Err() != nil {
			return nil, domain.WrapExecution("", ctx.Err())
		}
		return nil, err
	}
	return results, nil
}

func (r *Runner) threshold() time.Duration {
	if r.SlowQueryThreshold <= 0 {
		return DefaultSlowQueryThreshold
	}
	return r.SlowQueryThreshold
}

func (r *Runner) slowQuery(ctx context.Context, sqlQuery string, elapsed time.Duration) {
	if r.OnSlowQuery != nil {
		r.OnSlowQuery(ctx, sqlQuery, elapsed)
		return
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("slow query", "query_id", QueryID(ctx), "sql", sqlQuery, "elapsed", elapsed, "threshold", r.threshold())
}
