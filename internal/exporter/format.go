package exporter

import (
	"strconv"

	"navcli/internal/series"
	"navcli/internal/statistics"
)

// formatFloat formats a value with exactly 4 decimal places.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

// formatInt formats an int64 value for CSV output
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// formatValue renders a value in its reported form. Absent values are empty.
func formatValue(f statistics.Field, v series.Value) string {
	x, ok := f.Display(v).Get()
	if !ok {
		return ""
	}
	return formatFloat(x)
}

// columnName is the report header of a field.
func columnName(f statistics.Field) string {
	if f.Tag == series.Base {
		return NAVColumn
	}
	return f.Name
}

// Header returns the report header row for fields.
func Header(fields []statistics.Field) []string {
	h := make([]string, 0, len(fields)+1)
	h = append(h, DateColumn)
	for _, f := range fields {
		h = append(h, columnName(f))
	}
	return h
}
