package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// Paths contains all the application paths
type Paths struct {
	BaseDir    string
	InputDir   string
	ReportsDir string
	CSVDir     string
	XLSXDir    string
	LogsDir    string

	FundNamesCSV string
	WorkbookXLSX string
}

// ExecutableDir returns the directory holding the running binary.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}
	return filepath.Dir(exe), nil
}

// GetPaths resolves the configured paths. Relative paths are taken from
// BaseDir, or from the executable directory when BaseDir is empty.
//
// Layout:
//
//	<base>/
//	  ├── data/nav/          (AMFI NAV history files)
//	  ├── data/reports/csv/  (<code>.csv and fund_names.csv)
//	  ├── data/reports/xlsx/ (fund_statistics.xlsx)
//	  └── logs/
func (c *Config) GetPaths() (*Paths, error) {
	base := c.Paths.BaseDir
	if base == "" {
		dir, err := ExecutableDir()
		if err != nil {
			return nil, err
		}
		base = dir
	}
	return NewPaths(base, c.Paths), nil
}

// NewPaths resolves cfg against base.
func NewPaths(base string, cfg PathsConfig) *Paths {
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	reports := resolve(cfg.ReportsDir)
	csvDir := filepath.Join(reports, CSVDirName)
	xlsxDir := filepath.Join(reports, XLSXDirName)
	return &Paths{
		BaseDir:      base,
		InputDir:     resolve(cfg.InputDir),
		ReportsDir:   reports,
		CSVDir:       csvDir,
		XLSXDir:      xlsxDir,
		LogsDir:      resolve(cfg.LogsDir),
		FundNamesCSV: filepath.Join(csvDir, FundNamesFile),
		WorkbookXLSX: filepath.Join(xlsxDir, WorkbookFile),
	}
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.InputDir, p.ReportsDir, p.CSVDir, p.XLSXDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FundCSVPath returns the report file of one fund.
func (p *Paths) FundCSVPath(code int64) string {
	return filepath.Join(p.CSVDir, strconv.FormatInt(code, 10)+".csv")
}

// LogPathResolution logs the resolved paths at debug level.
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Debug("resolved paths",
		slog.String("base_dir", p.BaseDir),
		slog.String("input_dir", p.InputDir),
		slog.String("csv_dir", p.CSVDir),
		slog.String("xlsx_dir", p.XLSXDir),
		slog.String("logs_dir", p.LogsDir),
	)
}

// FileExists reports whether path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
