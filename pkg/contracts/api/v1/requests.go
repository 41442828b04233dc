// Package api contains the request and response contracts of the v1 HTTP API.
package api

// FundListRequest filters GET /api/funds.
type FundListRequest struct {
	Query string `query:"q" validate:"max=100"`
}

// FundRequest identifies a fund by its scheme code in the path.
type FundRequest struct {
	Code string `param:"code" validate:"required,numeric,max=18"`
}

// SeriesRequest restricts GET /api/funds/{code}/series to a date range.
// Both bounds are inclusive and optional.
type SeriesRequest struct {
	FundRequest
	From string `query:"from" validate:"omitempty,isodate"`
	To   string `query:"to" validate:"omitempty,isodate"`
}

// RecomputeRequest is the optional body of POST /api/operations/recompute.
type RecomputeRequest struct {
	InputDir  string `json:"input_dir,omitempty" validate:"omitempty,max=4096"`
	BatchSize int    `json:"batch_size,omitempty" validate:"omitempty,min=1,max=1000000"`
}

// OperationRequest identifies an operation in the path.
type OperationRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}
