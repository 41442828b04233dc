package exporter

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"navcli/internal/config"
	"navcli/internal/date"
	"navcli/internal/files"
	"navcli/internal/series"
	"navcli/internal/statistics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func computedBatch(t *testing.T) *Batch {
	t.Helper()
	plan, err := statistics.NewPlan(statistics.PlanConfig{
		CAGRWindows:    []int{365},
		RollingWindows: []int{3},
	})
	require.NoError(t, err)

	s := series.New(date.New(2020, 1, 1))
	for i, nav := range []float64{10, 11, 12, 13, 14} {
		require.NoError(t, s.Append(date.New(2020, 1, 1).Add(i), nav))
	}
	fund := &series.Entity{Code: 119551, Name: "Alpha Growth Fund", Series: s}
	_, err = statistics.NewCalculator(plan, discardLogger()).Compute(fund)
	require.NoError(t, err)

	return &Batch{Fields: plan.Fields(), Entities: []*series.Entity{fund}}
}

func newTestPaths(t *testing.T) (*config.Paths, *files.Manager) {
	paths := config.NewPaths(t.TempDir(), config.Default().Paths)
	require.NoError(t, paths.EnsureDirectories())
	return paths, files.NewManager(paths)
}

func TestFundCSVSink(t *testing.T) {
	ctx := context.Background()
	paths, fm := newTestPaths(t)
	sink := NewFundCSVSink(NewCSVWriter(fm), paths, discardLogger())

	require.NoError(t, sink.WriteBatch(ctx, computedBatch(t)))
	require.NoError(t, sink.Flush(ctx))

	data, err := os.ReadFile(paths.FundCSVPath(119551))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "Date,NAV,cagr_365,avg_3,std_3", lines[0])
	assert.Equal(t, "2020-01-01,10.0000,,,", lines[1])
	assert.Equal(t, "2020-01-02,11.0000,,,", lines[2])
	assert.Equal(t, "2020-01-03,12.0000,,11.0000,0.8165", lines[3])
	assert.Equal(t, "2020-01-05,14.0000,,13.0000,0.8165", lines[5])

	names, err := os.ReadFile(paths.FundNamesCSV)
	require.NoError(t, err)
	assert.Equal(t, "code,name\n119551,Alpha Growth Fund\n", string(names))
}

func TestReadReportRoundTrip(t *testing.T) {
	ctx := context.Background()
	paths, fm := newTestPaths(t)
	sink := NewFundCSVSink(NewCSVWriter(fm), paths, discardLogger())
	require.NoError(t, sink.WriteBatch(ctx, computedBatch(t)))

	f, err := fm.OpenFundReport(119551)
	require.NoError(t, err)
	defer f.Close()

	within := date.Range{From: date.New(2020, 1, 2), To: date.New(2020, 1, 4)}
	report, err := ReadReport(f, &within)
	require.NoError(t, err)

	assert.Equal(t, []string{"NAV", "cagr_365", "avg_3", "std_3"}, report.Columns)
	require.Len(t, report.Rows, 3)
	assert.Nil(t, report.Rows[0].Metrics["avg_3"])
	require.NotNil(t, report.Rows[2].Metrics["avg_3"])
	assert.InDelta(t, 12.0, *report.Rows[2].Metrics["avg_3"], 1e-9)

	latest := report.Latest()
	assert.InDelta(t, 13.0, *latest["NAV"], 1e-9)
	assert.Nil(t, latest["cagr_365"])
}

func TestReadReportRejectsForeignCSV(t *testing.T) {
	_, err := ReadReport(strings.NewReader("code,name\n1,x\n"), nil)
	assert.ErrorIs(t, err, ErrBadReport)

	_, err = ReadReport(strings.NewReader("Date,NAV\nyesterday,1\n"), nil)
	assert.ErrorIs(t, err, ErrBadReport)
}

func TestReadFundNames(t *testing.T) {
	funds, err := ReadFundNames(strings.NewReader("code,name\n7,Seven\n42,\"Answer, Inc\"\n"))
	require.NoError(t, err)
	require.Len(t, funds, 2)
	assert.Equal(t, "Answer, Inc", funds[1].Name)

	_, err = ReadFundNames(strings.NewReader("code,name\nx,y\n"))
	assert.Error(t, err)
}

func TestXLSXSink(t *testing.T) {
	ctx := context.Background()
	paths, fm := newTestPaths(t)
	sink := NewXLSXSink(fm, paths, discardLogger())

	require.NoError(t, sink.WriteBatch(ctx, computedBatch(t)))
	require.NoError(t, sink.Flush(ctx))

	wb, err := excelize.OpenFile(paths.WorkbookXLSX)
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows(FundsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Code", "Name", "Date", "NAV", "cagr_365", "avg_3", "std_3"}, rows[0])
	assert.Equal(t, "119551", rows[1][0])
	assert.Equal(t, "2020-01-05", rows[1][2])
	assert.Equal(t, "", rows[1][4])
}

func TestHeader(t *testing.T) {
	assert.Equal(t, "1.2346", formatFloat(1.23456))
	assert.Equal(t, "-0.5000", formatFloat(-0.5))
	assert.Equal(t, []string{"Date"}, Header(nil))
}
