package exporter

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/xuri/excelize/v2"

	"navcli/internal/config"
	"navcli/internal/files"
	"navcli/internal/statistics"
)

// FundsSheet is the worksheet holding one row per fund.
const FundsSheet = "Funds"

type workbookRow struct {
	code   int64
	values []interface{}
}

// XLSXSink accumulates the latest statistics of every fund and writes them
// as a single workbook on Flush.
type XLSXSink struct {
	files  *files.Manager
	paths  *config.Paths
	logger *slog.Logger
	fields []statistics.Field
	rows   []workbookRow
}

// NewXLSXSink creates the workbook sink.
func NewXLSXSink(fm *files.Manager, paths *config.Paths, logger *slog.Logger) *XLSXSink {
	return &XLSXSink{
		files:  fm,
		paths:  paths,
		logger: logger.With(slog.String("sink", "xlsx")),
	}
}

// Name implements Sink.
func (s *XLSXSink) Name() string { return "xlsx" }

// WriteBatch records the last day of every fund in the batch.
func (s *XLSXSink) WriteBatch(ctx context.Context, b *Batch) error {
	s.fields = b.Fields
	for _, e := range b.Entities {
		d, rec, ok := latest(e)
		if !ok {
			continue
		}
		values := make([]interface{}, 0, len(b.Fields)+3)
		values = append(values, e.Code, e.Name, d.String())
		for _, f := range b.Fields {
			if x, ok := f.Display(rec.Get(f.ID)).Get(); ok {
				values = append(values, x)
			} else {
				values = append(values, nil)
			}
		}
		s.rows = append(s.rows, workbookRow{code: e.Code, values: values})
	}
	return nil
}

// Flush writes the workbook, funds sorted by code, and starts a new one.
func (s *XLSXSink) Flush(ctx context.Context) error {
	defer func() { s.rows = nil }()

	slices.SortFunc(s.rows, func(a, b workbookRow) int { return cmp.Compare(a.code, b.code) })

	s.logger.InfoContext(ctx, "writing workbook",
		slog.String("path", s.paths.WorkbookXLSX),
		slog.Int("funds", len(s.rows)))

	return s.files.WriteAtomic(s.paths.WorkbookXLSX, func(w io.Writer) error {
		return s.write(w)
	})
}

func (s *XLSXSink) write(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", FundsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(FundsSheet)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	numeric, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("create number style: %w", err)
	}

	header := []interface{}{
		excelize.Cell{StyleID: bold, Value: "Code"},
		excelize.Cell{StyleID: bold, Value: "Name"},
		excelize.Cell{StyleID: bold, Value: DateColumn},
	}
	for _, field := range s.fields {
		header = append(header, excelize.Cell{StyleID: bold, Value: columnName(field)})
	}
	if err := sw.SetColWidth(2, 2, 60); err != nil {
		return err
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range s.rows {
		cells := make([]interface{}, len(row.values))
		for j, v := range row.values {
			if j >= 3 && v != nil {
				cells[j] = excelize.Cell{StyleID: numeric, Value: v}
			} else {
				cells[j] = v
			}
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(axis, cells); err != nil {
			return fmt.Errorf("write fund %d: %w", row.code, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush workbook: %w", err)
	}
	return f.Write(w)
}
