package operations

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navcli/internal/config"
	"navcli/internal/dataprocessing"
	"navcli/internal/exporter"
	"navcli/internal/files"
	"navcli/internal/shared/testutil"
	"navcli/internal/statistics"
)

const testFeed = `Scheme Code;Scheme Name;Net Asset Value;Repurchase Price;Sale Price;Date
Open Ended Schemes ( Income )
100027;Fund A;10.0000;;;01-Apr-2006
119551;Fund B;20.0000;;;01-Apr-2006
100027;Fund A;12.0000;;;03-Apr-2006
119551;Fund B;21.0000;;;02-Apr-2006
A1;broken;1;;;01-Apr-2006
`

type failingSink struct {
	writes atomic.Int32
}

func (s *failingSink) Name() string { return "broken" }

func (s *failingSink) WriteBatch(context.Context, *exporter.Batch) error {
	s.writes.Add(1)
	return errors.New("connection refused")
}

func (s *failingSink) Flush(context.Context) error { return nil }

func pipelineDeps(t *testing.T, sinks ...exporter.Sink) (PipelineDeps, *config.Paths) {
	t.Helper()
	paths := config.NewPaths(t.TempDir(), config.Default().Paths)
	require.NoError(t, paths.EnsureDirectories())
	require.NoError(t, os.WriteFile(filepath.Join(paths.InputDir, "navhistory.txt"), []byte(testFeed), 0o644))

	plan, err := statistics.NewPlan(statistics.PlanConfig{RollingWindows: []int{3}})
	require.NoError(t, err)
	fm := files.NewManager(paths)
	if sinks == nil {
		sinks = []exporter.Sink{exporter.NewFundCSVSink(exporter.NewCSVWriter(fm), paths, discardLogger())}
	}

	return PipelineDeps{
		Files:      fm,
		Discovery:  files.NewDiscovery(paths.BaseDir, files.ParseExtensions(config.NAVFileExtensions)...),
		Parser:     dataprocessing.NewFeedParser(discardLogger()),
		Filler:     dataprocessing.NewForwardFillProcessor(discardLogger()),
		Calculator: statistics.NewCalculator(plan, discardLogger()),
		Sinks:      sinks,
		BatchSize:  1,
		Logger:     discardLogger(),
	}, paths
}

func TestPipelineWritesFundReports(t *testing.T) {
	deps, paths := pipelineDeps(t)
	registry, err := NewPipelineRegistry(deps)
	require.NoError(t, err)
	m := NewManager(nil, registry, fastConfig(), nil, discardLogger())
	defer m.Shutdown()

	resp, err := m.Execute(context.Background(), OperationRequest{ID: "run"})
	require.NoError(t, err)
	require.NotNil(t, resp.Summary)

	s := resp.Summary
	assert.Equal(t, 1, s.Files)
	assert.Equal(t, 7, s.Lines)
	assert.Equal(t, 2, s.Funds)
	assert.Equal(t, 2, s.Batches)
	assert.Equal(t, 2, s.Computed)
	assert.Equal(t, 1, s.FilledDays)
	assert.Empty(t, s.Failed)
	assert.Equal(t, []string{"csv"}, s.SinksWritten)

	data, err := os.ReadFile(paths.FundCSVPath(100027))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Date,NAV,avg_3,std_3", lines[0])
	assert.Equal(t, "2006-04-02,10.0000,,", lines[2])
	assert.Equal(t, "2006-04-03,12.0000,10.6667,0.9428", lines[3])

	names, err := os.ReadFile(paths.FundNamesCSV)
	require.NoError(t, err)
	assert.Contains(t, string(names), "119551,Fund B")
}

func TestPipelineFailsWithoutInputFiles(t *testing.T) {
	deps, paths := pipelineDeps(t)
	require.NoError(t, os.Remove(filepath.Join(paths.InputDir, "navhistory.txt")))
	registry, err := NewPipelineRegistry(deps)
	require.NoError(t, err)
	m := NewManager(nil, registry, fastConfig(), nil, discardLogger())
	defer m.Shutdown()

	resp, err := m.Execute(context.Background(), OperationRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoInputFiles)
	assert.Equal(t, StepStatusSkipped, resp.Steps[StepIDScan].Status)
	assert.Equal(t, StepStatusSkipped, resp.Steps[StepIDCompute].Status)
}

func TestPipelineRetriesSinkFailures(t *testing.T) {
	sink := &failingSink{}
	deps, _ := pipelineDeps(t, sink)
	registry, err := NewPipelineRegistry(deps)
	require.NoError(t, err)
	cfg := fastConfig()
	cfg.RetryConfig.MaxAttempts = 2
	logger, logs := testutil.NewTestLogger(t)
	m := NewManager(nil, registry, cfg, nil, logger)
	defer m.Shutdown()

	resp, err := m.Execute(context.Background(), OperationRequest{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection refused")
	retry := testutil.AssertLogContains(t, logs, slog.LevelWarn, "retrying step")
	assert.Equal(t, StepIDCompute, retry.Attrs["step"])
	testutil.AssertLogContains(t, logs, slog.LevelError, "step failed")
	assert.EqualValues(t, 2, sink.writes.Load())
	assert.Equal(t, StepStatusFailed, resp.Steps[StepIDCompute].Status)
	assert.Equal(t, StepStatusCompleted, resp.Steps[StepIDScan].Status)
}

func TestPipelineInputDirOverride(t *testing.T) {
	deps, _ := pipelineDeps(t)
	registry, err := NewPipelineRegistry(deps)
	require.NoError(t, err)
	m := NewManager(nil, registry, fastConfig(), nil, discardLogger())
	defer m.Shutdown()

	_, err = m.Execute(context.Background(), OperationRequest{
		Parameters: map[string]interface{}{ConfigKeyInputDir: t.TempDir()},
	})
	assert.ErrorIs(t, err, ErrNoInputFiles)
}
