package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"navcli/internal/config"
)

// FundCSVSink writes one <code>.csv per fund and, on Close, the code to
// name lookup table.
type FundCSVSink struct {
	csv    *CSVWriter
	paths  *config.Paths
	logger *slog.Logger
	names  map[int64]string
}

// NewFundCSVSink creates the CSV report sink.
func NewFundCSVSink(w *CSVWriter, paths *config.Paths, logger *slog.Logger) *FundCSVSink {
	return &FundCSVSink{
		csv:    w,
		paths:  paths,
		logger: logger.With(slog.String("sink", "csv")),
		names:  make(map[int64]string),
	}
}

// Name implements Sink.
func (s *FundCSVSink) Name() string { return "csv" }

// WriteBatch writes the full daily history of every fund in the batch.
func (s *FundCSVSink) WriteBatch(ctx context.Context, b *Batch) error {
	header := Header(b.Fields)
	for i, e := range b.Entities {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 && i%1000 == 0 {
			s.logger.InfoContext(ctx, "writing fund reports",
				slog.Int("batch", b.Index),
				slog.Int("done", i),
				slog.Int("total", len(b.Entities)))
		}

		err := s.csv.Stream(s.paths.FundCSVPath(e.Code), header, false, func(w *StreamWriter) error {
			row := make([]string, len(header))
			for d, rec := range e.Series.All() {
				row[0] = d.String()
				for j, f := range b.Fields {
					row[j+1] = formatValue(f, rec.Get(f.ID))
				}
				if err := w.WriteRecord(row); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("write report for fund %d: %w", e.Code, err)
		}
		s.names[e.Code] = e.Name
	}
	return nil
}

// Flush writes fund_names.csv sorted by code and resets the name table.
func (s *FundCSVSink) Flush(ctx context.Context) error {
	codes := slices.Sorted(maps.Keys(s.names))
	defer clear(s.names)
	records := make([][]string, 0, len(codes))
	for _, code := range codes {
		records = append(records, []string{formatInt(code), s.names[code]})
	}
	s.logger.InfoContext(ctx, "writing fund names", slog.Int("funds", len(records)))
	return s.csv.WriteCSV(s.paths.FundNamesCSV, WriteOptions{
		Headers: []string{"code", "name"},
		Records: records,
	})
}
