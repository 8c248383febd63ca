package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fireant/dataset"
	"fireant/domain"
	"fireant/executor"
	"fireant/frame"
	"fireant/postprocess"
	"fireant/widget"
)

// Metadata accompanies results of datasets that ask for it.
type Metadata struct {
	MaxRowsReturned int `json:"max_rows_returned"`
}

// Result is the outcome of Fetch. Data holds one transformed output per
// widget, in widget order.
type Result struct {
	QueryID    string        `json:"query_id"`
	Data       []interface{} `json:"data"`
	Annotation *frame.Frame  `json:"-"`
	Metadata   *Metadata     `json:"metadata,omitempty"`
}

// Fetch plans, executes and post-processes the query. hint labels the
// statements on dialects that support query hints; it may be empty.
func (b *Builder) Fetch(ctx context.Context, hint string) (*Result, error) {
	p, err := b.plan(hint)
	if err != nil {
		return nil, err
	}
	run, logger, err := newRun(ctx, b.ds)
	if err != nil {
		return nil, err
	}
	start := time.Now()

	statements := p.SQL()
	if p.Annotation != nil {
		statements = append(statements, p.Annotation.SQL)
	}
	results, err := run.runner.RunAll(run.ctx, statements)
	if err != nil {
		return nil, err
	}

	var annotation *frame.Frame
	if p.Annotation != nil {
		annotation, err = postprocess.Annotation(p, results[len(results)-1])
		if err != nil {
			return nil, err
		}
		results = results[:len(results)-1]
	}

	f, err := postprocess.Process(p, results)
	if err != nil {
		return nil, err
	}

	out := &Result{QueryID: run.id, Annotation: annotation}
	wctx := widget.Context{Plan: p, Annotation: annotation}
	for _, w := range b.widgets {
		data, err := w.Transform(f, wctx)
		if err != nil {
			return nil, fmt.Errorf("transform widget: %w", err)
		}
		out.Data = append(out.Data, data)
	}

	if b.ds.ReturnAdditionalMetadata() {
		md := &Metadata{}
		for _, r := range results {
			if r.RowCount > md.MaxRowsReturned {
				md.MaxRowsReturned = r.RowCount
			}
		}
		out.Metadata = md
	}

	logger.Debug("fetch complete",
		"dataset", b.ds.Name(),
		"statements", len(statements),
		"rows", f.Len(),
		"elapsed", time.Since(start),
	)
	return out, nil
}

// run carries the execution context shared by the statements of one call.
type run struct {
	id     string
	ctx    context.Context
	runner *executor.Runner
}

func newRun(ctx context.Context, ds *dataset.DataSet) (*run, *slog.Logger, error) {
	db := ds.Database()
	if db == nil || db.Executor == nil {
		return nil, nil, domain.ErrDataSet("dataset %q has no database executor", ds.Name())
	}
	logger := db.Logger
	if logger == nil {
		logger = slog.Default()
	}
	// A caller-assigned id (e.g. an HTTP request id) is reused.
	id := executor.QueryID(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	logger = logger.With("query_id", id)

	threshold := db.SlowQueryThreshold
	if threshold <= 0 {
		threshold = dataset.DefaultSlowQueryThreshold
	}
	return &run{
		id:  id,
		ctx: executor.WithQueryID(ctx, id),
		runner: &executor.Runner{
			Exec:               db.Executor,
			MaxWorkers:         db.MaxWorkers,
			SlowQueryThreshold: threshold,
			OnSlowQuery:        db.OnSlowQuery,
			Logger:             logger,
		},
	}, logger, nil
}

// runOne executes a single statement.
func runOne(ctx context.Context, ds *dataset.DataSet, sqlQuery string) (*domain.Result, error) {
	r, _, err := newRun(ctx, ds)
	if err != nil {
		return nil, err
	}
	results, err := r.runner.RunAll(r.ctx, []string{sqlQuery})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}
