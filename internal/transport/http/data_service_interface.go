package http

import (
	"context"

	"navcli/internal/date"
	"navcli/internal/exporter"
	"navcli/internal/files"
	"navcli/pkg/contracts/domain"
)

// DataServiceInterface reads the fund reports written by the pipeline
type DataServiceInterface interface {
	ListFunds(ctx context.Context, query string) ([]domain.Fund, error)
	GetSeries(ctx context.Context, code int64, within *date.Range) (*exporter.Report, error)
	GetFundSummary(ctx context.Context, code int64) (*domain.FundSummary, error)
	ReportFile(code int64) (files.FileInfo, error)
}
