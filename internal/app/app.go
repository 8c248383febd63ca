// Package app wires configuration, the database, the executor chain and the
// dataset catalog into a runnable application.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"fireant/dataset"
	"fireant/domain"
	"fireant/executor"
	"fireant/internal/config"
	internaldb "fireant/internal/db"
	"fireant/internal/declarative"
	"fireant/sqlexpr"
)

// Deps holds what main() provides. DB is optional; when nil, New opens one
// from the config. App.Close closes the handle either way.
type Deps struct {
	Cfg    *config.Config
	DB     *sql.DB
	Logger *slog.Logger
	// Registerer receives the executor metrics. Nil keeps them private.
	Registerer prometheus.Registerer
}

// App is the wired application.
type App struct {
	Catalog  *declarative.Catalog
	Database *dataset.Database
	Metrics  *executor.Metrics

	closer io.Closer
}

// New opens the database, runs the seed script, builds the executor chain
// and loads the dataset catalog.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db := deps.DB
	if db == nil {
		var err error
		db, err = internaldb.Open(cfg.Driver, cfg.DSN, cfg.MaxWorkers)
		if err != nil {
			return nil, err
		}
	}

	if cfg.SeedFile != "" {
		if err := runSeed(ctx, db, cfg.SeedFile); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("seed script applied", "path", cfg.SeedFile)
	}

	metrics := executor.NewMetrics(deps.Registerer)
	sqlExec := executor.NewSQLExecutor(db, logger)
	sqlExec.SetMetrics(metrics)
	if cfg.QueryRate > 0 {
		sqlExec.SetRateLimit(cfg.QueryRate, cfg.MaxWorkers)
	}

	var exec domain.QueryExecutor = sqlExec
	var closer io.Closer = sqlExec
	if cfg.CacheSize > 0 {
		cached, err := executor.NewCachingExecutor(sqlExec, cfg.CacheSize)
		if err != nil {
			_ = sqlExec.Close()
			return nil, fmt.Errorf("result cache: %w", err)
		}
		cached.SetMetrics(metrics)
		exec, closer = cached, cached
	}

	dialect, err := sqlexpr.DialectByName(cfg.Driver)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	database := &dataset.Database{
		Dialect:            dialect,
		Executor:           exec,
		MaxWorkers:         cfg.MaxWorkers,
		SlowQueryThreshold: cfg.SlowQueryThreshold,
		MaxResultSet:       cfg.MaxResultSet,
		Logger:             logger,
	}

	cat, err := declarative.Load(cfg.DatasetsFile, database, declarative.LoadOptions{})
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	logger.Info("datasets loaded", "path", cfg.DatasetsFile, "count", len(cat.Names()), "driver", cfg.Driver)

	return &App{Catalog: cat, Database: database, Metrics: metrics, closer: closer}, nil
}

// Close releases the executor chain and the database handle.
func (a *App) Close() error {
	return executor.CloseAll(a.closer)
}
