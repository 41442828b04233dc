package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"navcli/internal/app"
	"navcli/internal/config"
	"navcli/internal/files"
	"navcli/internal/infrastructure"
	"navcli/internal/operations"
	"navcli/internal/validation"
)

type options struct {
	configPath string
	inDir      string
	outDir     string
	batchSize  int
	workers    int
	xlsx       bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML config file (defaults to config.yaml or configs/config.yaml)")
	flag.StringVar(&opts.inDir, "in", "", "input directory of AMFI NAV history files (defaults to data/nav relative to executable)")
	flag.StringVar(&opts.outDir, "out", "", "report directory (defaults to data/reports relative to executable)")
	flag.IntVar(&opts.batchSize, "batch", 0, "maximum funds held in memory at once (0 keeps the configured value)")
	flag.IntVar(&opts.workers, "workers", 0, "funds computed concurrently (0 keeps the configured value)")
	flag.BoolVar(&opts.xlsx, "xlsx", false, "also write the fund_statistics.xlsx workbook")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		slog.Error("Processing failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func loadConfig(opts options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if opts.inDir != "" {
		cfg.Paths.InputDir = opts.inDir
	}
	if opts.outDir != "" {
		cfg.Paths.ReportsDir = opts.outDir
	}
	if opts.batchSize > 0 {
		cfg.Processing.BatchSize = opts.batchSize
	}
	if opts.workers > 0 {
		cfg.Processing.Workers = opts.workers
	}
	if opts.xlsx {
		cfg.Sinks.XLSX = true
	}
	return cfg, nil
}

func run(ctx context.Context, opts options, out io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return process(ctx, cfg, logger, out)
}

func process(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	paths, err := cfg.GetPaths()
	if err != nil {
		return err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return err
	}

	validator := validation.NewFileValidator(logger, files.ParseExtensions(config.NAVFileExtensions)...)
	if _, err := validator.ValidateInputDirectory(paths.InputDir); err != nil {
		return err
	}
	if err := validator.ValidateOutputDirectory(paths.CSVDir); err != nil {
		return err
	}

	telemetry := cfg.Telemetry
	telemetry.MetricsEnabled = false
	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(telemetry), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer providers.Shutdown(context.WithoutCancel(ctx))
	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return err
	}

	pipeline, err := app.NewPipeline(ctx, cfg, paths, metrics, logger)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	manager := operations.NewManager(
		progressLog{logger: logger},
		pipeline.Registry,
		operations.ConfigFrom(cfg.Processing),
		operations.NewOperationTracer(providers.Tracer, metrics),
		logger,
	)
	defer manager.Shutdown()

	resp, err := manager.Execute(ctx, operations.OperationRequest{
		Parameters: map[string]interface{}{operations.ConfigKeyTriggeredBy: "processor"},
	})
	if err != nil {
		return err
	}
	printSummary(out, paths, resp)
	return nil
}

// progressLog reports operation snapshots through the logger instead of a
// WebSocket hub.
type progressLog struct {
	logger *slog.Logger
}

func (p progressLog) BroadcastUpdate(eventType, step, status string, data interface{}) {
	snap, ok := data.(*operations.OperationSnapshot)
	if !ok {
		return
	}
	p.logger.Debug("progress",
		slog.String("event", eventType),
		slog.String("status", status),
		slog.String("step", snap.CurrentStep),
		slog.Int("progress", snap.Progress))
}

func printSummary(out io.Writer, paths *config.Paths, resp *operations.OperationResponse) {
	s := resp.Summary
	if s == nil {
		fmt.Fprintf(out, "Operation %s %s in %s\n", resp.ID, resp.Status, resp.Duration)
		return
	}
	fmt.Fprintf(out, "Processed %d lines from %d files\n", s.Lines, s.Files)
	fmt.Fprintf(out, "Funds: %d computed, %d failed, %d batches\n", s.Computed, len(s.Failed), s.Batches)
	fmt.Fprintf(out, "Forward-filled days: %d, duplicate observations: %d\n", s.FilledDays, s.Duplicates)
	fmt.Fprintf(out, "Metric values: %d\n", s.Values)
	if len(s.Failed) > 0 {
		fmt.Fprintf(out, "Failed funds: %v\n", s.Failed)
	}
	fmt.Fprintf(out, "Reports written to %s (%v) in %s\n", paths.ReportsDir, s.SinksWritten, resp.Duration)
}
