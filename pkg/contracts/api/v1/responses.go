package api

import (
	"navcli/internal/date"
	"navcli/pkg/contracts/domain"
)

// FundListResponse is the body of GET /api/funds.
type FundListResponse struct {
	Funds []domain.Fund `json:"funds"`
	Count int           `json:"count"`
}

// SeriesResponse is the body of GET /api/funds/{code}/series.
type SeriesResponse struct {
	Code    int64            `json:"code"`
	From    *date.Date       `json:"from,omitempty"`
	To      *date.Date       `json:"to,omitempty"`
	Columns []string         `json:"columns"`
	Rows    []domain.FundRow `json:"rows"`
}

// RecomputeResponse is returned when a recompute run is accepted.
type RecomputeResponse struct {
	OperationID string `json:"operation_id"`
	Status      string `json:"status"`
}
