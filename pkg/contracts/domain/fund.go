package domain

import (
	"navcli/internal/date"
)

// Observation is one validated NAV reading from the feed.
type Observation struct {
	Code int64     `json:"code" validate:"required,min=1"`
	Name string    `json:"name" validate:"required"`
	NAV  float64   `json:"nav" validate:"gt=0"`
	Date date.Date `json:"date"`
}

// Fund is an entry of the code to name lookup table.
type Fund struct {
	Code int64  `json:"code" csv:"code"`
	Name string `json:"name" csv:"name"`
}

// FundRow is one reported day of a fund. Absent metrics are nil.
type FundRow struct {
	Date    date.Date           `json:"date"`
	Metrics map[string]*float64 `json:"metrics"`
}

// FundSummary describes a fund's reported span and its latest statistics.
type FundSummary struct {
	Code      int64               `json:"code"`
	Name      string              `json:"name"`
	FirstDate date.Date           `json:"first_date"`
	LastDate  date.Date           `json:"last_date"`
	Days      int                 `json:"days"`
	Latest    map[string]*float64 `json:"latest"`
}
