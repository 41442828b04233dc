package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navcli/internal/config"
	"navcli/internal/date"
	"navcli/internal/exporter"
	"navcli/internal/files"
	"navcli/internal/series"
	"navcli/internal/statistics"
	"navcli/internal/storage/storagetest"
	"navcli/pkg/contracts/domain"
)

const feed = `100027;Alpha Growth Fund;10.0000;;;01-Mar-2021
100027;Alpha Growth Fund;10.0100;;;02-Mar-2021
100027;Alpha Growth Fund;10.0300;;;04-Mar-2021
100027;Alpha Growth Fund;10.0200;;;05-Mar-2021
100027;Alpha Growth Fund;10.0400;;;08-Mar-2021
119551;Beta Liquid Fund;20.0000;;;01-Mar-2021
`

func testConfig(t *testing.T) (*config.Config, *config.Paths) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.BaseDir = t.TempDir()
	cfg.Metrics = config.MetricsConfig{
		CAGRWindows:    []int{2},
		RollingWindows: []int{3},
		Layers:         config.Layers{{Window: 2, Over: 1}},
	}
	paths := config.NewPaths(cfg.Paths.BaseDir, cfg.Paths)
	require.NoError(t, paths.EnsureDirectories())
	require.NoError(t, os.WriteFile(filepath.Join(paths.InputDir, "navall.txt"), []byte(feed), 0o644))
	return cfg, paths
}

func TestVerifyFundAgreesWithDirectComputation(t *testing.T) {
	cfg, paths := testConfig(t)

	report, err := verifyFund(context.Background(), cfg, paths, 100027, 1e-6)
	require.NoError(t, err)
	assert.Equal(t, "Alpha Growth Fund", report.Name)
	assert.Equal(t, 8, report.Days)
	assert.Positive(t, report.Checked)
	assert.Empty(t, report.Mismatches)

	var out bytes.Buffer
	report.print(&out)
	assert.Contains(t, out.String(), "OK")

	_, err = verifyFund(context.Background(), cfg, paths, 999999, 1e-9)
	assert.Error(t, err)
}

func TestCheckEntityReportsTamperedValue(t *testing.T) {
	plan, err := statistics.NewPlan(statistics.PlanConfig{RollingWindows: []int{3}})
	require.NoError(t, err)
	avg, ok := plan.Registry().Lookup(series.Kind{Tag: series.Avg, Window: 3})
	require.True(t, ok)
	varSum, ok := plan.Registry().Lookup(series.Kind{Tag: series.VarSum, Window: 3})
	require.True(t, ok)

	start := date.New(2021, 3, 1)
	s := series.New(start)
	for i, nav := range []float64{10, 11, 12, 13, 14} {
		require.NoError(t, s.Append(start.Add(i), nav))
	}
	// Correct values except the last average.
	for i, v := range map[int]float64{2: 11, 3: 12, 4: 1000} {
		require.NoError(t, s.SetAt(i, avg, v))
		require.NoError(t, s.SetAt(i, varSum, 2))
	}
	e := &series.Entity{Code: 100027, Name: "Alpha", Series: s}

	report := checkEntity(plan, e, 1e-9)
	assert.Equal(t, 10, report.Checked)
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, "avg_3", report.Mismatches[0].Field)

	var out bytes.Buffer
	report.print(&out)
	assert.Contains(t, out.String(), "MISMATCH avg_3 2021-03-05: got 1000 want 13")
}

func TestListFundsAndSummary(t *testing.T) {
	_, paths := testConfig(t)
	fm := files.NewManager(paths)
	sink := exporter.NewFundCSVSink(exporter.NewCSVWriter(fm), paths, quietLogger())
	require.NoError(t, sink.WriteBatch(context.Background(), storagetest.Batch(t)))
	require.NoError(t, sink.Flush(context.Background()))

	ds := newDataService(paths)
	var out bytes.Buffer
	require.NoError(t, listFunds(context.Background(), ds, "1195", &out))
	assert.Contains(t, out.String(), "119551")
	assert.NotContains(t, out.String(), "100027")
	assert.Contains(t, out.String(), "1 funds")

	summary, err := ds.GetFundSummary(context.Background(), 100027)
	require.NoError(t, err)
	md := summaryMarkdown(summary)
	assert.Contains(t, md, "| NAV | 14.0000 |")
	assert.Contains(t, md, "| avg_3 | 13.0000 |")
	assert.Less(t, bytes.Index([]byte(md), []byte("| NAV")), bytes.Index([]byte(md), []byte("| avg_3")))

	var rendered bytes.Buffer
	require.NoError(t, renderMarkdown(&rendered, md, 80))
	assert.Contains(t, rendered.String(), "avg_3")
}

func TestSummaryMarkdownAbsentValue(t *testing.T) {
	md := summaryMarkdown(&domain.FundSummary{
		Code:      1,
		Name:      "New Fund",
		FirstDate: date.New(2024, 1, 1),
		LastDate:  date.New(2024, 1, 1),
		Days:      1,
		Latest:    map[string]*float64{"NAV": ptr(10), "avg_3": nil},
	})
	assert.Contains(t, md, "# New Fund")
	assert.Contains(t, md, "| avg_3 | n/a |")
}

func ptr(v float64) *float64 { return &v }
