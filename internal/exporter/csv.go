package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"

	"navcli/internal/files"
)

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	files *files.Manager
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(fm *files.Manager) *CSVWriter {
	return &CSVWriter{files: fm}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV replaces filePath with the given headers and records.
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	slog.Debug("Writing CSV file",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(options.Records)))

	return w.Stream(filePath, options.Headers, options.BOMPrefix, func(s *StreamWriter) error {
		for i, record := range options.Records {
			if err := s.WriteRecord(record); err != nil {
				return fmt.Errorf("failed to write record %d: %w", i, err)
			}
		}
		return nil
	})
}

// Stream atomically replaces filePath with the records produced by fill.
func (w *CSVWriter) Stream(filePath string, headers []string, bom bool, fill func(*StreamWriter) error) error {
	return w.files.WriteAtomic(filePath, func(out io.Writer) error {
		s, err := NewStreamWriter(out, headers, bom)
		if err != nil {
			return err
		}
		if err := fill(s); err != nil {
			return err
		}
		return s.Flush()
	})
}

// StreamWriter provides streaming CSV writing for large datasets
type StreamWriter struct {
	writer *csv.Writer
	rows   int
}

// NewStreamWriter writes the optional BOM and headers to out.
func NewStreamWriter(out io.Writer, headers []string, bom bool) (*StreamWriter, error) {
	if bom {
		if _, err := out.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return nil, fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(out)
	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}
	return &StreamWriter{writer: writer}, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	s.rows++
	return s.writer.Write(record)
}

// Rows returns the number of records written, headers excluded.
func (s *StreamWriter) Rows() int { return s.rows }

// Flush writes buffered records to the underlying writer.
func (s *StreamWriter) Flush() error {
	s.writer.Flush()
	return s.writer.Error()
}
