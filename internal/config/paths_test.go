package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaths(t *testing.T) {
	base := t.TempDir()
	abs := filepath.Join(t.TempDir(), "input")

	p := NewPaths(base, PathsConfig{InputDir: abs, ReportsDir: "out", LogsDir: "logs"})

	assert.Equal(t, abs, p.InputDir)
	assert.Equal(t, filepath.Join(base, "out", "csv"), p.CSVDir)
	assert.Equal(t, filepath.Join(base, "out", "xlsx", WorkbookFile), p.WorkbookXLSX)
	assert.Equal(t, filepath.Join(base, "out", "csv", FundNamesFile), p.FundNamesCSV)
	assert.Equal(t, filepath.Join(base, "out", "csv", "119551.csv"), p.FundCSVPath(119551))
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	p := NewPaths(base, Default().Paths)

	require.NoError(t, p.EnsureDirectories())
	for _, dir := range []string{p.InputDir, p.CSVDir, p.XLSXDir, p.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir())
	}
	assert.True(t, FileExists(p.CSVDir))
	assert.False(t, FileExists(filepath.Join(base, "missing")))
}

func TestGetPathsUsesBaseDir(t *testing.T) {
	cfg := Default()
	cfg.Paths.BaseDir = t.TempDir()

	p, err := cfg.GetPaths()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Paths.BaseDir, "data", "nav"), p.InputDir)
}
