package statistics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"navcli/internal/series"
)

// DefaultWorkers is the number of funds computed concurrently.
const DefaultWorkers = 4

// Calculator evaluates a Plan over fund series.
type Calculator struct {
	plan    *Plan
	logger  *slog.Logger
	workers int
}

// NewCalculator creates a calculator for plan.
func NewCalculator(plan *Plan, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{
		plan:    plan,
		logger:  logger.With(slog.String("component", "statistics")),
		workers: DefaultWorkers,
	}
}

// SetWorkers sets how many funds are computed concurrently.
func (c *Calculator) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	c.workers = n
}

// Plan returns the plan the calculator evaluates.
func (c *Calculator) Plan() *Plan { return c.plan }

// Compute writes every planned metric onto the fund's series and returns
// the number of values written. Nodes run in plan order and each node walks
// the series in ascending date order.
func (c *Calculator) Compute(e *series.Entity) (int, error) {
	if e == nil || e.Series == nil || e.Series.Len() == 0 {
		return 0, fmt.Errorf("%w: empty series", ErrPrecondition)
	}
	s := e.Series
	for i := 0; i < s.Len(); i++ {
		if v := s.ValueAt(i, series.BaseID).Or(0); v <= 0 {
			return 0, fmt.Errorf("%w: non-positive NAV %v on %s", ErrPrecondition, v, s.Date(i))
		}
	}

	written := 0
	for _, n := range c.plan.nodes {
		var count int
		var err error
		switch n.Op {
		case OpCAGR:
			count, err = trailingReturn(s, n.Source, n.Outputs[0], n.Window)
		case OpRolling:
			count, err = rolling(s, n.Source, n.Outputs[0], n.Outputs[1], n.Window)
			count *= 2
		default:
			err = fmt.Errorf("%w: unknown op %d", ErrInvalidPlan, n.Op)
		}
		if err != nil {
			return written, fmt.Errorf("%s(%d) of %s: %w", n.Op, n.Window, c.plan.registry.Name(n.Source), err)
		}
		written += count
	}
	return written, nil
}

// Failure records a fund whose computation was abandoned.
type Failure struct {
	Code int64
	Err  error
}

// Result summarizes a ComputeAll run.
type Result struct {
	Computed int
	Values   int
	Failed   []Failure
	Duration time.Duration
}

// ComputeAll computes every fund in store with a bounded worker pool. Funds
// that fail are logged, removed from the store and listed in the result;
// the others are unaffected. Only cancellation of ctx aborts the run.
func (c *Calculator) ComputeAll(ctx context.Context, store *series.Store) (Result, error) {
	start := time.Now()
	entities := store.Entities()

	var (
		mu     sync.Mutex
		result Result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for _, e := range entities {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, err := c.Compute(e)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.logger.WarnContext(ctx, "failed to compute fund statistics",
					"code", e.Code,
					"name", e.Name,
					"error", err,
				)
				result.Failed = append(result.Failed, Failure{Code: e.Code, Err: err})
				return nil
			}
			result.Computed++
			result.Values += n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, fmt.Errorf("compute statistics: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("compute statistics: %w", err)
	}

	for _, f := range result.Failed {
		store.Remove(f.Code)
	}
	result.Duration = time.Since(start)

	c.logger.InfoContext(ctx, "statistics computed",
		"funds", result.Computed,
		"failed", len(result.Failed),
		"values", result.Values,
		"duration", result.Duration,
	)
	return result, nil
}
