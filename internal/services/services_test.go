package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navcli/internal/config"
	"navcli/internal/date"
	"navcli/internal/exporter"
	"navcli/internal/files"
	"navcli/internal/operations"
	"navcli/internal/storage"
	"navcli/internal/storage/storagetest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writtenReports(t *testing.T) (*config.Paths, *files.Manager) {
	t.Helper()
	paths := config.NewPaths(t.TempDir(), config.Default().Paths)
	require.NoError(t, paths.EnsureDirectories())
	fm := files.NewManager(paths)

	sink := exporter.NewFundCSVSink(exporter.NewCSVWriter(fm), paths, discardLogger())
	ctx := context.Background()
	require.NoError(t, sink.WriteBatch(ctx, storagetest.Batch(t)))
	require.NoError(t, sink.Flush(ctx))
	return paths, fm
}

type stubLatest struct {
	values map[string]float64
	err    error
}

func (s stubLatest) Latest(context.Context, int64) (map[string]float64, error) {
	return s.values, s.err
}

func TestDataServiceListFunds(t *testing.T) {
	_, fm := writtenReports(t)
	ds := NewDataService(fm, nil, discardLogger())
	ctx := context.Background()

	funds, err := ds.ListFunds(ctx, "")
	require.NoError(t, err)
	require.Len(t, funds, 2)
	assert.EqualValues(t, 100027, funds[0].Code)

	funds, err = ds.ListFunds(ctx, "1195")
	require.NoError(t, err)
	require.Len(t, funds, 1)
	assert.Equal(t, "Fund 119551", funds[0].Name)

	funds, err = ds.ListFunds(ctx, "FUND 1000")
	require.NoError(t, err)
	assert.Len(t, funds, 1)
}

func TestDataServiceWithoutReports(t *testing.T) {
	paths := config.NewPaths(t.TempDir(), config.Default().Paths)
	ds := NewDataService(files.NewManager(paths), nil, discardLogger())

	_, err := ds.ListFunds(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoReportsFound)
	_, err = ds.GetSeries(context.Background(), 1, nil)
	assert.ErrorIs(t, err, ErrFundNotFound)
	_, err = ds.ReportFile(1)
	assert.ErrorIs(t, err, ErrFundNotFound)
}

func TestDataServiceSeriesAndSummary(t *testing.T) {
	_, fm := writtenReports(t)
	ds := NewDataService(fm, nil, discardLogger())
	ctx := context.Background()

	within := &date.Range{From: date.New(2021, 3, 2), To: date.New(2021, 3, 3)}
	report, err := ds.GetSeries(ctx, 100027, within)
	require.NoError(t, err)
	assert.Equal(t, []string{"NAV", "avg_3", "std_3"}, report.Columns)
	require.Len(t, report.Rows, 2)
	assert.Nil(t, report.Rows[0].Metrics["avg_3"])
	require.NotNil(t, report.Rows[1].Metrics["avg_3"])
	assert.InDelta(t, 11, *report.Rows[1].Metrics["avg_3"], 1e-9)

	_, err = ds.GetSeries(ctx, 100027, &date.Range{From: within.To, To: within.From})
	assert.ErrorIs(t, err, ErrInvalidRange)

	summary, err := ds.GetFundSummary(ctx, 100027)
	require.NoError(t, err)
	assert.Equal(t, "Fund 100027", summary.Name)
	assert.Equal(t, 5, summary.Days)
	assert.Equal(t, date.New(2021, 3, 1), summary.FirstDate)
	assert.Equal(t, date.New(2021, 3, 5), summary.LastDate)
	assert.InDelta(t, 14, *summary.Latest["NAV"], 1e-9)
	assert.InDelta(t, 13, *summary.Latest["avg_3"], 1e-9)

	count, size, err := ds.ReportStats()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Positive(t, size)
}

func TestDataServicePrefersDatabaseLatest(t *testing.T) {
	_, fm := writtenReports(t)
	ctx := context.Background()

	ds := NewDataService(fm, stubLatest{values: map[string]float64{"NAV": 99}}, discardLogger())
	summary, err := ds.GetFundSummary(ctx, 100027)
	require.NoError(t, err)
	assert.Len(t, summary.Latest, 1)
	assert.InDelta(t, 99, *summary.Latest["NAV"], 1e-9)

	ds = NewDataService(fm, stubLatest{err: storage.ErrNotFound}, discardLogger())
	summary, err = ds.GetFundSummary(ctx, 100027)
	require.NoError(t, err)
	assert.InDelta(t, 14, *summary.Latest["NAV"], 1e-9)

	ds = NewDataService(fm, stubLatest{err: errors.New("connection refused")}, discardLogger())
	summary, err = ds.GetFundSummary(ctx, 100027)
	require.NoError(t, err)
	assert.InDelta(t, 14, *summary.Latest["NAV"], 1e-9)
}

type gateStep struct {
	operations.BaseStep
	release chan struct{}
}

func (s *gateStep) Execute(ctx context.Context, _ *operations.OperationState) error {
	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestOperationServiceRunsOneAtATime(t *testing.T) {
	step := &gateStep{BaseStep: operations.NewBaseStep("gate", "Gate"), release: make(chan struct{})}
	registry := operations.NewRegistry()
	require.NoError(t, registry.Register(step))
	manager := operations.NewManager(nil, registry, nil, nil, discardLogger())
	defer manager.Shutdown()

	svc := NewOperationService(manager, time.Minute, discardLogger())
	ctx := context.Background()

	id, err := svc.StartRecompute(ctx, nil)
	require.NoError(t, err)
	running, ok := svc.Running()
	assert.True(t, ok)
	assert.Equal(t, id, running)

	_, err = svc.StartRecompute(ctx, nil)
	assert.ErrorIs(t, err, ErrOperationRunning)

	close(step.release)
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, svc.Wait(waitCtx))

	_, ok = svc.Running()
	assert.False(t, ok)
	snap, err := svc.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "completed", snap.Status)
	assert.Len(t, svc.ListOperations(ctx), 1)

	_, err = svc.GetStatus(ctx, "missing")
	assert.ErrorIs(t, err, ErrOperationMissing)
	assert.ErrorIs(t, svc.CancelOperation(ctx, "missing"), ErrOperationMissing)
}

type stubChecker struct{ err error }

func (s stubChecker) Ping(context.Context) error { return s.err }

func TestHealthServiceReadiness(t *testing.T) {
	paths, fm := writtenReports(t)
	data := NewDataService(fm, nil, discardLogger())
	ops := NewOperationService(operations.NewManager(nil, nil, nil, nil, discardLogger()), time.Minute, discardLogger())
	hs := NewHealthService("1.0.0", paths, data, ops, func() int { return 3 }, discardLogger())
	ctx := context.Background()

	assert.Equal(t, "ready", hs.ReadinessCheck(ctx).Status)

	hs.AddCheck("postgres", stubChecker{err: errors.New("down")})
	status := hs.ReadinessCheck(ctx)
	assert.Equal(t, "not_ready", status.Status)
	assert.Equal(t, "down", status.Services["postgres"].Message)

	stats, err := hs.SystemStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FundReports)
	assert.Equal(t, 3, stats.WebSocketClients)
	assert.Equal(t, "alive", hs.LivenessCheck(ctx).Status)
}
