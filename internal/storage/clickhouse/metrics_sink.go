package clickhouse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"navcli/internal/exporter"
	"navcli/internal/storage"
)

// MetricsSink appends reported metrics to the fund_metrics table. Rows of a
// recomputed fund supersede older rows when ClickHouse merges parts.
type MetricsSink struct {
	conn   *Conn
	logger *slog.Logger
	now    func() time.Time
}

// NewMetricsSink creates a sink writing through conn. The sink owns conn.
func NewMetricsSink(conn *Conn, logger *slog.Logger) *MetricsSink {
	return &MetricsSink{
		conn:   conn,
		logger: logger.With(slog.String("sink", "clickhouse")),
		now:    time.Now,
	}
}

// Compile-time interface check.
var _ exporter.Sink = (*MetricsSink)(nil)

// Name implements exporter.Sink.
func (s *MetricsSink) Name() string { return "clickhouse" }

// WriteBatch sends the whole batch as one native insert.
func (s *MetricsSink) WriteBatch(ctx context.Context, b *exporter.Batch) error {
	if len(b.Entities) == 0 {
		return nil
	}

	names := make(map[int64]string, len(b.Entities))
	for _, e := range b.Entities {
		names[e.Code] = e.Name
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO fund_metrics (code, name, day, metric, value, computed_at)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	computedAt := s.now().UTC()
	rows := 0
	for r := range storage.Rows(b) {
		if err := batch.Append(r.Code, names[r.Code], r.Day.Time(), r.Metric, r.Value, computedAt); err != nil {
			batch.Abort()
			return fmt.Errorf("append to batch: %w", err)
		}
		rows++
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	s.logger.DebugContext(ctx, "batch stored",
		slog.Int("batch", b.Index),
		slog.Int("funds", len(b.Entities)),
		slog.Int("rows", rows))
	return nil
}

// Flush implements exporter.Sink. Every batch is sent on write.
func (s *MetricsSink) Flush(context.Context) error { return nil }

// Close closes the connection.
func (s *MetricsSink) Close() error {
	return s.conn.Close()
}

// Ping checks the database connection.
func (s *MetricsSink) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Latest returns the most recent value of every metric of a fund.
func (s *MetricsSink) Latest(ctx context.Context, code int64) (map[string]float64, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT metric, argMax(value, (day, computed_at))
		FROM fund_metrics
		WHERE code = ?
		GROUP BY metric
	`, code)
	if err != nil {
		return nil, fmt.Errorf("query latest metrics: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var (
			metric string
			value  float64
		)
		if err := rows.Scan(&metric, &value); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		out[metric] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, storage.ErrNotFound
	}
	return out, nil
}
