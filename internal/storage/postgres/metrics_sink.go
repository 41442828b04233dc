package postgres

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"navcli/internal/exporter"
	"navcli/internal/storage"
)

// MetricsSink upserts funds and replaces their reported metrics.
type MetricsSink struct {
	pool   *Pool
	logger *slog.Logger
}

// NewMetricsSink creates a sink writing through pool. The sink owns the pool.
func NewMetricsSink(pool *Pool, logger *slog.Logger) *MetricsSink {
	return &MetricsSink{pool: pool, logger: logger.With(slog.String("sink", "postgres"))}
}

// Compile-time interface check.
var _ exporter.Sink = (*MetricsSink)(nil)

// Name implements exporter.Sink.
func (s *MetricsSink) Name() string { return "postgres" }

// WriteBatch replaces the metrics of every fund in the batch in one
// transaction: funds are upserted, their old rows deleted and the new rows
// bulk loaded with COPY.
func (s *MetricsSink) WriteBatch(ctx context.Context, b *exporter.Batch) error {
	if len(b.Entities) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	funds := &pgx.Batch{}
	for _, e := range b.Entities {
		funds.Queue(`
			INSERT INTO funds (code, name, updated_at) VALUES ($1, $2, now())
			ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at
		`, e.Code, e.Name)
	}
	if err := tx.SendBatch(ctx, funds).Close(); err != nil {
		return fmt.Errorf("upsert funds: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM fund_metrics WHERE code = ANY($1)`, storage.Codes(b)); err != nil {
		return fmt.Errorf("delete old metrics: %w", err)
	}

	src := newRowSource(storage.Rows(b))
	defer src.stop()
	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"fund_metrics"},
		[]string{"code", "day", "metric", "value"},
		src,
	)
	if err != nil {
		return fmt.Errorf("copy metrics: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.DebugContext(ctx, "batch stored",
		slog.Int("batch", b.Index),
		slog.Int("funds", len(b.Entities)),
		slog.Int64("rows", n))
	return nil
}

// Flush implements exporter.Sink. Every batch is committed on write.
func (s *MetricsSink) Flush(context.Context) error { return nil }

// Close releases the pool.
func (s *MetricsSink) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the database connection.
func (s *MetricsSink) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Latest returns the most recent value of every metric of a fund.
func (s *MetricsSink) Latest(ctx context.Context, code int64) (map[string]float64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (metric) metric, value
		FROM fund_metrics
		WHERE code = $1
		ORDER BY metric, day DESC
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
	return out, rows.Err()
}

// FundName returns the stored name of a fund.
func (s *MetricsSink) FundName(ctx context.Context, code int64) (string, error) {
	var name string
	err := s.pool.QueryRow(ctx, `SELECT name FROM funds WHERE code = $1`, code).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	return name, err
}

// rowSource adapts a row iterator to pgx.CopyFromSource so a batch is
// streamed into COPY without materializing it.
type rowSource struct {
	next func() (storage.MetricRow, bool)
	stop func()
	cur  storage.MetricRow
}

func newRowSource(seq iter.Seq[storage.MetricRow]) *rowSource {
	next, stop := iter.Pull(seq)
	return &rowSource{next: next, stop: stop}
}

func (r *rowSource) Next() bool {
	var ok bool
	r.cur, ok = r.next()
	return ok
}

func (r *rowSource) Values() ([]any, error) {
	return []any{r.cur.Code, r.cur.Day.Time(), r.cur.Metric, r.cur.Value}, nil
}

func (r *rowSource) Err() error { return nil }
