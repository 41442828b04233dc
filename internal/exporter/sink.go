package exporter

import (
	"context"

	"navcli/internal/date"
	"navcli/internal/series"
	"navcli/internal/statistics"
)

// Report column names shared by every sink.
const (
	DateColumn = "Date"
	NAVColumn  = "NAV"
)

// Batch is a computed set of funds handed to the sinks.
type Batch struct {
	Index    int
	Fields   []statistics.Field
	Entities []*series.Entity
}

// Sink persists computed fund series. WriteBatch is called once per batch;
// Flush ends a run and writes anything accumulated across its batches.
type Sink interface {
	Name() string
	WriteBatch(ctx context.Context, b *Batch) error
	Flush(ctx context.Context) error
}

// latest returns the last reported day of e.
func latest(e *series.Entity) (date.Date, series.DayRecord, bool) {
	if e.Series == nil || e.Series.Len() == 0 {
		return date.Date{}, series.DayRecord{}, false
	}
	return e.Series.End(), e.Series.Record(e.Series.Len() - 1), true
}
