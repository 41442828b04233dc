package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"navcli/internal/date"
	"navcli/internal/exporter"
	"navcli/internal/files"
	"navcli/internal/storage"
	"navcli/pkg/contracts/domain"
)

// LatestStore serves the most recent metric values of a fund from a database sink.
type LatestStore interface {
	Latest(ctx context.Context, code int64) (map[string]float64, error)
}

// DataService reads the reports written by the pipeline
type DataService struct {
	files     *files.Manager
	discovery *files.Discovery
	latest    LatestStore
	logger    *slog.Logger
}

// NewDataService creates a data service over the report directory.
// latest may be nil, in which case latest values come from the CSV reports.
func NewDataService(fm *files.Manager, latest LatestStore, logger *slog.Logger) *DataService {
	if logger == nil {
		logger = slog.Default()
	}
	paths := fm.Paths()
	logger.Info("DataService initialized",
		slog.String("reports_dir", paths.ReportsDir),
		slog.Bool("database", latest != nil))

	return &DataService{
		files:     fm,
		discovery: files.NewDiscovery(paths.BaseDir, ".csv"),
		latest:    latest,
		logger:    logger,
	}
}

// ListFunds returns the funds of the last run whose name contains query
// (case-insensitive) or whose code starts with it, ordered by code.
func (ds *DataService) ListFunds(ctx context.Context, query string) ([]domain.Fund, error) {
	f, err := os.Open(ds.files.Paths().FundNamesCSV)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoReportsFound
	}
	if err != nil {
		return nil, fmt.Errorf("open fund names: %w", err)
	}
	defer f.Close()

	funds, err := exporter.ReadFundNames(f)
	if err != nil {
		return nil, fmt.Errorf("read fund names: %w", err)
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query != "" {
		funds = slices.DeleteFunc(funds, func(fund domain.Fund) bool {
			return !strings.Contains(strings.ToLower(fund.Name), query) &&
				!strings.HasPrefix(strconv.FormatInt(fund.Code, 10), query)
		})
	}
	slices.SortFunc(funds, func(a, b domain.Fund) int { return cmp.Compare(a.Code, b.Code) })

	ds.logger.DebugContext(ctx, "listed funds",
		slog.String("query", query),
		slog.Int("count", len(funds)))
	return funds, nil
}

// GetSeries reads a fund's report, restricted to within when it is non-nil.
func (ds *DataService) GetSeries(ctx context.Context, code int64, within *date.Range) (*exporter.Report, error) {
	if within != nil && within.To.Before(within.From) {
		return nil, ErrInvalidRange
	}
	f, err := ds.files.OpenFundReport(code)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %d", ErrFundNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("open report of fund %d: %w", code, err)
	}
	defer f.Close()

	report, err := exporter.ReadReport(f, within)
	if err != nil {
		ds.logger.ErrorContext(ctx, "unreadable fund report",
			slog.Int64("code", code),
			slog.String("error", err.Error()))
		return nil, err
	}
	return report, nil
}

// GetFundSummary describes a fund's reported span and its latest values.
// When a database is configured the latest values are read from it.
func (ds *DataService) GetFundSummary(ctx context.Context, code int64) (*domain.FundSummary, error) {
	report, err := ds.GetSeries(ctx, code, nil)
	if err != nil {
		return nil, err
	}

	summary := &domain.FundSummary{Code: code, Days: len(report.Rows), Latest: report.Latest()}
	if len(report.Rows) > 0 {
		summary.FirstDate = report.Rows[0].Date
		summary.LastDate = report.Rows[len(report.Rows)-1].Date
	}
	if name, err := ds.fundName(ctx, code); err == nil {
		summary.Name = name
	}

	if ds.latest != nil {
		values, err := ds.latest.Latest(ctx, code)
		switch {
		case err == nil && len(values) > 0:
			summary.Latest = make(map[string]*float64, len(values))
			for metric, v := range values {
				summary.Latest[metric] = &v
			}
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			ds.logger.WarnContext(ctx, "database lookup failed, using report values",
				slog.Int64("code", code),
				slog.String("error", err.Error()))
		}
	}
	return summary, nil
}

func (ds *DataService) fundName(ctx context.Context, code int64) (string, error) {
	funds, err := ds.ListFunds(ctx, strconv.FormatInt(code, 10))
	if err != nil {
		return "", err
	}
	for _, f := range funds {
		if f.Code == code {
			return f.Name, nil
		}
	}
	return "", ErrFundNotFound
}

// ReportFile returns the path of a fund's CSV report for download.
func (ds *DataService) ReportFile(code int64) (files.FileInfo, error) {
	path := ds.files.Paths().FundCSVPath(code)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return files.FileInfo{}, fmt.Errorf("%w: %d", ErrFundNotFound, code)
	}
	if err != nil {
		return files.FileInfo{}, err
	}
	return files.FileInfo{Path: path, Name: info.Name(), Size: info.Size(), ModTime: info.ModTime()}, nil
}

// ReportStats counts the fund reports on disk and their total size.
func (ds *DataService) ReportStats() (count int, size int64, err error) {
	reports, err := ds.discovery.FindFundReports(ds.files.Paths().CSVDir)
	if err != nil {
		return 0, 0, err
	}
	for _, r := range reports {
		size += r.Size
	}
	return len(reports), size, nil
}
