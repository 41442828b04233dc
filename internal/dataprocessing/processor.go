package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"

	"navcli/internal/date"
	"navcli/internal/series"
	"navcli/internal/statistics"
)

// ForwardFillProcessor densifies sparse NAV observations into daily series.
type ForwardFillProcessor struct {
	logger *slog.Logger
}

// NewForwardFillProcessor creates a new forward-fill processor.
func NewForwardFillProcessor(logger *slog.Logger) *ForwardFillProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ForwardFillProcessor{logger: logger.With(slog.String("component", "forward_fill"))}
}

// Fill builds a series holding one record for every calendar day between
// the earliest and the latest observation. Days without an observation
// repeat the most recent earlier value.
func (f *ForwardFillProcessor) Fill(observations map[date.Date]float64) (*series.Series, FillStatistics, error) {
	if len(observations) == 0 {
		return nil, FillStatistics{}, fmt.Errorf("%w: no observations", statistics.ErrPrecondition)
	}

	var first, last date.Date
	for d := range observations {
		if first.IsZero() || d.Before(first) {
			first = d
		}
		if last.IsZero() || d.After(last) {
			last = d
		}
	}

	span := date.Range{From: first, To: last}
	s := series.New(first)
	s.Grow(span.Days())

	lastValid := observations[first]
	stats := FillStatistics{ObservedRecords: len(observations), FundsProcessed: 1}
	for d := range span.Each() {
		if v, ok := observations[d]; ok {
			lastValid = v
		} else {
			stats.ForwardFilledCount++
		}
		if err := s.Append(d, lastValid); err != nil {
			return nil, stats, err
		}
	}
	stats.TotalRecords = s.Len()
	return s, stats, nil
}

// BuildStore fills every fund held by c and returns them as a store.
func (f *ForwardFillProcessor) BuildStore(ctx context.Context, c *Collector) (*series.Store, FillStatistics, error) {
	store := series.NewStore()
	var total FillStatistics

	for i, code := range c.Codes() {
		if err := ctx.Err(); err != nil {
			return nil, total, err
		}
		if i > 0 && i%1000 == 0 {
			f.logger.InfoContext(ctx, "forward-filling funds",
				"progress", fmt.Sprintf("%d/%d", i, c.Len()),
			)
		}

		name, observations, _ := c.Fund(code)
		s, stats, err := f.Fill(observations)
		if err != nil {
			return nil, total, fmt.Errorf("fund %d: %w", code, err)
		}
		total.Add(stats)
		store.Put(&series.Entity{Code: code, Name: name, Series: s})
	}

	f.logger.InfoContext(ctx, "forward fill completed",
		"funds", total.FundsProcessed,
		"records", total.TotalRecords,
		"filled", total.ForwardFilledCount,
	)
	return store, total, nil
}
