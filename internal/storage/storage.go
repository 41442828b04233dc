// Package storage holds the database report sinks. Each backend lives in its
// own subpackage; migrations embeds their schemas.
package storage

import (
	"errors"
	"iter"

	"navcli/internal/date"
	"navcli/internal/exporter"
)

// MetricRow is one reported value of one fund on one day.
type MetricRow struct {
	Code   int64
	Day    date.Date
	Metric string
	Value  float64
}

// Rows flattens a batch into its present values, in reported form.
// Absent values produce no row.
func Rows(b *exporter.Batch) iter.Seq[MetricRow] {
	return func(yield func(MetricRow) bool) {
		for _, e := range b.Entities {
			for d, rec := range e.Series.All() {
				for _, f := range b.Fields {
					v, ok := f.Display(rec.Get(f.ID)).Get()
					if !ok {
						continue
					}
					if !yield(MetricRow{Code: e.Code, Day: d, Metric: f.Name, Value: v}) {
						return
					}
				}
			}
		}
	}
}

// Codes returns the fund codes of a batch in batch order.
func Codes(b *exporter.Batch) []int64 {
	codes := make([]int64, len(b.Entities))
	for i, e := range b.Entities {
		codes[i] = e.Code
	}
	return codes
}

// ErrNotFound is returned when a fund has no stored data.
var ErrNotFound = errors.New("not found")
