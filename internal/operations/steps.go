package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"navcli/internal/dataprocessing"
	"navcli/internal/exporter"
	"navcli/internal/files"
	"navcli/internal/infrastructure"
	"navcli/internal/statistics"
)

// PipelineDeps are the collaborators shared by the pipeline steps.
type PipelineDeps struct {
	Files      *files.Manager
	Discovery  *files.Discovery
	Parser     *dataprocessing.FeedParser
	Filler     *dataprocessing.ForwardFillProcessor
	Calculator *statistics.Calculator
	Sinks      []exporter.Sink
	BatchSize  int
	Metrics    *infrastructure.BusinessMetrics
	Logger     *slog.Logger
}

// NewPipelineRegistry registers discover, scan and compute in order.
func NewPipelineRegistry(deps PipelineDeps) (*Registry, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = NewOperationTracer(nil, nil).Metrics()
	}
	registry := NewRegistry()
	for _, step := range []Step{
		NewDiscoverStep(deps),
		NewScanStep(deps),
		NewComputeStep(deps),
	} {
		if err := registry.Register(step); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// DiscoverStep lists the NAV history files of the input directory
type DiscoverStep struct {
	BaseStep
	deps PipelineDeps
}

// NewDiscoverStep creates the file discovery step
func NewDiscoverStep(deps PipelineDeps) *DiscoverStep {
	return &DiscoverStep{BaseStep: NewBaseStep(StepIDDiscover, StepNameDiscover), deps: deps}
}

// Execute finds the input files and stores their paths for later steps
func (s *DiscoverStep) Execute(ctx context.Context, state *OperationState) error {
	dir := s.deps.Files.Paths().InputDir
	if v, ok := state.GetConfig(ConfigKeyInputDir); ok {
		if override, ok := v.(string); ok && override != "" {
			dir = override
		}
	}

	found, err := s.deps.Discovery.FindNAVFiles(dir)
	if err != nil {
		return NewExecutionError(s.ID(), err, false)
	}
	if len(found) == 0 {
		err := *ErrNoInputFiles
		err.Step = s.ID()
		err.Context = map[string]interface{}{"dir": dir}
		return &err
	}

	var size int64
	for _, f := range found {
		size += f.Size
	}
	paths := files.Paths(found)
	state.SetContext(ContextKeyFiles, paths)

	s.deps.Logger.InfoContext(ctx, "NAV files discovered",
		slog.String("dir", dir),
		slog.Int("files", len(paths)),
		slog.Int64("bytes", size))
	s.report(state, 100, fmt.Sprintf("Found %d NAV files", len(paths)), map[string]interface{}{
		"files": len(paths),
		"bytes": size,
	})
	return nil
}

// ScanStep reads the feed once to learn the set of fund codes
type ScanStep struct {
	BaseStep
	deps PipelineDeps
}

// NewScanStep creates the fund scan step
func NewScanStep(deps PipelineDeps) *ScanStep {
	return &ScanStep{BaseStep: NewBaseStep(StepIDScan, StepNameScan, StepIDDiscover), deps: deps}
}

// Validate requires the discovered file list
func (s *ScanStep) Validate(state *OperationState) error {
	_, err := contextValue[[]string](state, ContextKeyFiles)
	return err
}

// Execute collects the sorted fund codes and feed line statistics
func (s *ScanStep) Execute(ctx context.Context, state *OperationState) error {
	paths, err := contextValue[[]string](state, ContextKeyFiles)
	if err != nil {
		return NewValidationError(s.ID(), err.Error())
	}

	codes, stats, err := dataprocessing.ScanCodes(ctx, s.deps.Parser, paths)
	if err != nil {
		return NewExecutionError(s.ID(), err, false)
	}
	recordFeedLines(ctx, s.deps.Metrics, stats)

	state.SetContext(ContextKeyCodes, codes)
	state.SetContext(ContextKeyScanStats, stats)

	s.deps.Logger.InfoContext(ctx, "feed scanned",
		slog.Int("lines", stats.Lines),
		slog.Int("observations", stats.Observations),
		slog.Int("skipped", stats.Skipped),
		slog.Int("dropped", stats.Dropped),
		slog.Int("funds", len(codes)))
	s.report(state, 100, fmt.Sprintf("Found %d funds in %d lines", len(codes), stats.Lines), map[string]interface{}{
		"funds":   len(codes),
		"lines":   stats.Lines,
		"dropped": stats.Dropped,
	})
	return nil
}

func recordFeedLines(ctx context.Context, m *infrastructure.BusinessMetrics, stats dataprocessing.ParseStatistics) {
	for outcome, n := range map[string]int{
		"observation": stats.Observations,
		"skipped":     stats.Skipped,
		"dropped":     stats.Dropped,
	} {
		if n > 0 {
			m.FeedLines.Add(ctx, int64(n), metric.WithAttributes(attribute.String("outcome", outcome)))
		}
	}
}

// ComputeStep fills, computes and writes the funds batch by batch
type ComputeStep struct {
	BaseStep
	deps PipelineDeps
}

// NewComputeStep creates the statistics computation step
func NewComputeStep(deps PipelineDeps) *ComputeStep {
	return &ComputeStep{BaseStep: NewBaseStep(StepIDCompute, StepNameCompute, StepIDScan), deps: deps}
}

// Validate requires the scanned fund codes
func (s *ComputeStep) Validate(state *OperationState) error {
	if _, err := contextValue[[]string](state, ContextKeyFiles); err != nil {
		return err
	}
	_, err := contextValue[[]int64](state, ContextKeyCodes)
	return err
}

// Execute runs every batch through the pipeline and flushes the sinks.
// A fund that violates a precondition is dropped from its batch; any
// other failure aborts the step.
func (s *ComputeStep) Execute(ctx context.Context, state *OperationState) error {
	paths, _ := contextValue[[]string](state, ContextKeyFiles)
	codes, _ := contextValue[[]int64](state, ContextKeyCodes)
	scan, _ := contextValue[dataprocessing.ParseStatistics](state, ContextKeyScanStats)

	batchSize := s.deps.BatchSize
	if v, ok := state.GetConfig(ConfigKeyBatchSize); ok {
		if n, ok := v.(int); ok {
			batchSize = n
		}
	}

	summary := &Summary{Files: len(paths), Lines: scan.Lines, Funds: len(codes)}
	progress := NewProgressTracker(s.Name(), len(codes))
	started := time.Now()

	for batch := range dataprocessing.Batches(codes, batchSize) {
		if err := ctx.Err(); err != nil {
			return NewCancellationError(s.ID())
		}
		if err := s.runBatch(ctx, paths, batch, summary); err != nil {
			return err
		}
		summary.Batches++

		progress.Add(len(batch.Codes))
		s.report(state, progress.Percentage(), progress.Message("funds"), map[string]interface{}{
			"batch":    batch.Index,
			"computed": summary.Computed,
			"failed":   len(summary.Failed),
		})
	}

	for _, sink := range s.deps.Sinks {
		if err := s.timedSink(ctx, sink, "flush", func() error { return sink.Flush(ctx) }); err != nil {
			return NewExecutionError(s.ID(), fmt.Errorf("flush %s: %w", sink.Name(), err), true)
		}
		summary.SinksWritten = append(summary.SinksWritten, sink.Name())
	}
	summary.ComputeTime = time.Since(started)
	state.SetContext(ContextKeySummary, summary)

	s.deps.Logger.InfoContext(ctx, "statistics computed",
		slog.Int("funds", summary.Funds),
		slog.Int("computed", summary.Computed),
		slog.Int("failed", len(summary.Failed)),
		slog.Int("batches", summary.Batches),
		slog.Int("values", summary.Values),
		slog.Duration("duration", summary.ComputeTime))
	return nil
}

func (s *ComputeStep) runBatch(ctx context.Context, paths []string, batch dataprocessing.Batch, summary *Summary) error {
	batchStart := time.Now()
	logger := s.deps.Logger.With(
		slog.Int("batch", batch.Index),
		slog.Int64("first_code", batch.First()),
		slog.Int64("last_code", batch.Last()))

	collector := dataprocessing.NewCollector()
	if _, err := s.deps.Parser.WithFilter(batch.Contains).ParseFiles(ctx, paths, collector.Add); err != nil {
		return NewExecutionError(s.ID(), fmt.Errorf("batch %d: %w", batch.Index, err), false)
	}
	summary.Duplicates += collector.Duplicates()

	store, fill, err := s.deps.Filler.BuildStore(ctx, collector)
	if err != nil {
		return NewExecutionError(s.ID(), fmt.Errorf("batch %d: %w", batch.Index, err), false)
	}
	summary.FilledDays += fill.ForwardFilledCount

	result, err := s.deps.Calculator.ComputeAll(ctx, store)
	if err != nil {
		return NewExecutionError(s.ID(), fmt.Errorf("batch %d: %w", batch.Index, err), false)
	}
	summary.Computed += result.Computed
	summary.Values += result.Values
	for _, failure := range result.Failed {
		summary.Failed = append(summary.Failed, failure.Code)
		if err := s.deps.Files.RemoveFundReport(failure.Code); err != nil {
			logger.WarnContext(ctx, "failed to remove stale fund report",
				slog.Int64("code", failure.Code),
				slog.String("error", err.Error()))
		}
	}

	out := &exporter.Batch{
		Index:    batch.Index,
		Fields:   s.deps.Calculator.Plan().Fields(),
		Entities: store.Entities(),
	}
	for _, sink := range s.deps.Sinks {
		if err := s.timedSink(ctx, sink, "write", func() error { return sink.WriteBatch(ctx, out) }); err != nil {
			return NewExecutionError(s.ID(), fmt.Errorf("batch %d: write %s: %w", batch.Index, sink.Name(), err), true)
		}
	}

	m := s.deps.Metrics
	m.FundsProcessed.Add(ctx, int64(result.Computed))
	m.FundsFailed.Add(ctx, int64(len(result.Failed)))
	m.DaysForwardFill.Add(ctx, int64(fill.ForwardFilledCount))
	m.MetricValues.Add(ctx, int64(result.Values))
	m.BatchDuration.Record(ctx, time.Since(batchStart).Seconds())

	logger.InfoContext(ctx, "batch completed",
		slog.Int("funds", len(batch.Codes)),
		slog.Int("computed", result.Computed),
		slog.Int("failed", len(result.Failed)),
		slog.Duration("duration", time.Since(batchStart)))
	return nil
}

func (s *ComputeStep) timedSink(ctx context.Context, sink exporter.Sink, op string, fn func() error) error {
	start := time.Now()
	err := fn()
	status := "success"
	if err != nil {
		status = "failure"
	}
	s.deps.Metrics.SinkWriteSeconds.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("sink", sink.Name()),
		attribute.String("op", op),
		attribute.String("status", status),
	))
	return err
}
