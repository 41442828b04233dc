package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"navcli/internal/config"
	"navcli/internal/dataprocessing"
	"navcli/internal/exporter"
	"navcli/internal/files"
	"navcli/internal/infrastructure"
	"navcli/internal/operations"
	"navcli/internal/services"
	"navcli/internal/statistics"
	chstore "navcli/internal/storage/clickhouse"
	"navcli/internal/storage/migrations"
	pgstore "navcli/internal/storage/postgres"
)

// dbSink is a report sink backed by a database connection.
type dbSink interface {
	exporter.Sink
	services.Checker
	services.LatestStore
	Close() error
}

// Pipeline holds everything a pipeline run needs: the step registry and
// the sinks it writes to.
type Pipeline struct {
	Paths      *config.Paths
	Files      *files.Manager
	Calculator *statistics.Calculator
	Registry   *operations.Registry
	Sinks      []exporter.Sink

	databases []dbSink
	logger    *slog.Logger
}

// PlanConfigFrom maps the configured windows onto a statistics plan.
func PlanConfigFrom(cfg config.MetricsConfig) statistics.PlanConfig {
	plan := statistics.PlanConfig{
		CAGRWindows:    cfg.CAGRWindows,
		RollingWindows: cfg.RollingWindows,
	}
	for _, l := range cfg.Layers {
		plan.Layers = append(plan.Layers, statistics.Layer{Window: l.Window, Over: l.Over})
	}
	return plan
}

// NewPipeline builds the metric plan, opens the configured sinks and
// registers the discover, scan and compute steps. Close must be called to
// release database connections.
func NewPipeline(ctx context.Context, cfg *config.Config, paths *config.Paths, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	plan, err := statistics.NewPlan(PlanConfigFrom(cfg.Metrics))
	if err != nil {
		return nil, fmt.Errorf("failed to build metric plan: %w", err)
	}
	calc := statistics.NewCalculator(plan, logger)
	calc.SetWorkers(cfg.Processing.Workers)

	fm := files.NewManager(paths)
	p := &Pipeline{
		Paths:      paths,
		Files:      fm,
		Calculator: calc,
		logger:     logger,
	}

	p.Sinks = append(p.Sinks, exporter.NewFundCSVSink(exporter.NewCSVWriter(fm), paths, logger))
	if cfg.Sinks.XLSX {
		p.Sinks = append(p.Sinks, exporter.NewXLSXSink(fm, paths, logger))
	}
	if err := p.openDatabases(ctx, cfg.Sinks); err != nil {
		p.Close()
		return nil, err
	}

	p.Registry, err = operations.NewPipelineRegistry(operations.PipelineDeps{
		Files:      fm,
		Discovery:  files.NewDiscovery(paths.BaseDir, files.ParseExtensions(config.NAVFileExtensions)...),
		Parser:     dataprocessing.NewFeedParser(logger),
		Filler:     dataprocessing.NewForwardFillProcessor(logger),
		Calculator: calc,
		Sinks:      p.Sinks,
		BatchSize:  cfg.Processing.BatchSize,
		Metrics:    metrics,
		Logger:     logger,
	})
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to register pipeline steps: %w", err)
	}

	names := make([]string, 0, len(p.Sinks))
	for _, s := range p.Sinks {
		names = append(names, s.Name())
	}
	logger.InfoContext(ctx, "pipeline ready",
		slog.Int("nodes", len(plan.Nodes())),
		slog.Int("fields", len(plan.Fields())),
		slog.Any("sinks", names))
	return p, nil
}

func (p *Pipeline) openDatabases(ctx context.Context, cfg config.SinksConfig) error {
	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("failed to open postgres sink: %w", err)
		}
		if cfg.Migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				pool.Close()
				return fmt.Errorf("failed to migrate postgres: %w", err)
			}
		}
		p.addDatabase(pgstore.NewMetricsSink(pool, p.logger))
	}

	if cfg.ClickHouseDSN != "" {
		var (
			conn *chstore.Conn
			err  error
		)
		if cfg.Migrate {
			conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		} else {
			conn, err = chstore.NewConn(ctx, cfg.ClickHouseDSN)
		}
		if err != nil {
			return fmt.Errorf("failed to open clickhouse sink: %w", err)
		}
		p.addDatabase(chstore.NewMetricsSink(conn, p.logger))
	}
	return nil
}

func (p *Pipeline) addDatabase(s dbSink) {
	p.databases = append(p.databases, s)
	p.Sinks = append(p.Sinks, s)
}

// Latest returns the first database sink as the source of latest values,
// or nil when only file sinks are configured.
func (p *Pipeline) Latest() services.LatestStore {
	if len(p.databases) == 0 {
		return nil
	}
	return p.databases[0]
}

// Checks returns the database sinks keyed by name for health probing.
func (p *Pipeline) Checks() map[string]services.Checker {
	checks := make(map[string]services.Checker, len(p.databases))
	for _, db := range p.databases {
		checks[db.Name()] = db
	}
	return checks
}

// Close releases the database connections.
func (p *Pipeline) Close() error {
	var errs []error
	for _, db := range p.databases {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", db.Name(), err))
		}
	}
	p.databases = nil
	return errors.Join(errs...)
}
