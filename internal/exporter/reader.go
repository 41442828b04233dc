package exporter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"navcli/internal/date"
	"navcli/pkg/contracts/domain"
)

// ErrBadReport is returned for reports that do not start with Date,NAV.
var ErrBadReport = errors.New("malformed fund report")

// Report is a fund CSV report read back from disk.
type Report struct {
	Columns []string
	Rows    []domain.FundRow
}

// ReadReport reads a fund report, keeping the rows inside within when it
// is non-nil.
func ReadReport(r io.Reader, within *date.Range) (*Report, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadReport, err)
	}
	if len(header) < 2 || header[0] != DateColumn || header[1] != NAVColumn {
		return nil, fmt.Errorf("%w: header %q", ErrBadReport, strings.Join(header, ","))
	}
	report := &Report{Columns: append([]string(nil), header[1:]...)}

	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadReport, line, err)
		}
		d, err := date.Parse(record[0])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrBadReport, line, err)
		}
		if within != nil && !within.Contains(d) {
			continue
		}

		row := domain.FundRow{Date: d, Metrics: make(map[string]*float64, len(report.Columns))}
		for i, col := range report.Columns {
			cell := record[i+1]
			if cell == "" {
				row.Metrics[col] = nil
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %s: %v", ErrBadReport, line, col, err)
			}
			row.Metrics[col] = &v
		}
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}

// Latest returns the most recent present value of every column.
func (r *Report) Latest() map[string]*float64 {
	out := make(map[string]*float64, len(r.Columns))
	for _, col := range r.Columns {
		out[col] = nil
		for i := len(r.Rows) - 1; i >= 0; i-- {
			if v := r.Rows[i].Metrics[col]; v != nil {
				out[col] = v
				break
			}
		}
	}
	return out
}

// ReadFundNames reads the code to name table written by FundCSVSink.
func ReadFundNames(r io.Reader) ([]domain.Fund, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	funds := make([]domain.Fund, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != 2 {
			return nil, fmt.Errorf("fund names line %d: expected 2 fields, got %d", i+2, len(rec))
		}
		code, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("fund names line %d: %w", i+2, err)
		}
		funds = append(funds, domain.Fund{Code: code, Name: rec[1]})
	}
	return funds, nil
}
