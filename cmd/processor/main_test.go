package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navcli/internal/config"
	"navcli/internal/validation"
)

const feed = `100027;Alpha Growth Fund;10.0000;;;01-Mar-2021
100027;Alpha Growth Fund;12.0000;;;03-Mar-2021
100027;Alpha Growth Fund;0;;;04-Mar-2021
119551;Beta Liquid Fund;20.0000;;;01-Mar-2021
119551;Beta Liquid Fund;21.0000;;;02-Mar-2021
`

func TestLoadConfigOverrides(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("processing:\n  batch_size: 10\n"), 0o644))

	cfg, err := loadConfig(options{configPath: cfgFile, inDir: "/in", outDir: "/out", workers: 3, xlsx: true})
	require.NoError(t, err)
	assert.Equal(t, "/in", cfg.Paths.InputDir)
	assert.Equal(t, "/out", cfg.Paths.ReportsDir)
	assert.Equal(t, 10, cfg.Processing.BatchSize)
	assert.Equal(t, 3, cfg.Processing.Workers)
	assert.True(t, cfg.Sinks.XLSX)
}

func TestProcessWritesReports(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.BaseDir = t.TempDir()
	cfg.Metrics = config.MetricsConfig{RollingWindows: []int{2}}
	cfg.Processing.BatchSize = 1
	cfg.Sinks.XLSX = true

	paths := config.NewPaths(cfg.Paths.BaseDir, cfg.Paths)
	require.NoError(t, paths.EnsureDirectories())
	require.NoError(t, os.WriteFile(filepath.Join(paths.InputDir, "navall.txt"), []byte(feed), 0o644))

	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, process(context.Background(), cfg, logger, &out))

	assert.FileExists(t, paths.FundCSVPath(100027))
	assert.FileExists(t, paths.FundCSVPath(119551))
	assert.FileExists(t, paths.FundNamesCSV)
	assert.FileExists(t, paths.WorkbookXLSX)

	report, err := os.ReadFile(paths.FundCSVPath(100027))
	require.NoError(t, err)
	assert.Equal(t, "Date,NAV,avg_2,std_2\n"+
		"2021-03-01,10.0000,,\n"+
		"2021-03-02,10.0000,10.0000,0.0000\n"+
		"2021-03-03,12.0000,11.0000,1.0000\n", string(report))

	assert.Contains(t, out.String(), "Funds: 2 computed, 0 failed, 2 batches")
	assert.Contains(t, out.String(), "Forward-filled days: 1")
}

func TestProcessWithoutInput(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.BaseDir = t.TempDir()

	err := process(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), io.Discard)
	assert.ErrorIs(t, err, validation.ErrNoNAVFiles)
}
