// Package storagetest builds computed batches for sink tests.
package storagetest

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"navcli/internal/date"
	"navcli/internal/exporter"
	"navcli/internal/series"
	"navcli/internal/statistics"
)

// Batch returns a computed batch of two funds over five days with a three
// day rolling window, so only the last three days carry statistics.
func Batch(t *testing.T) *exporter.Batch {
	t.Helper()
	plan, err := statistics.NewPlan(statistics.PlanConfig{RollingWindows: []int{3}})
	require.NoError(t, err)
	calc := statistics.NewCalculator(plan, slog.New(slog.NewTextHandler(io.Discard, nil)))

	start := date.New(2021, 3, 1)
	var entities []*series.Entity
	for code, navs := range map[int64][]float64{
		100027: {10, 11, 12, 13, 14},
		119551: {20, 20, 20, 20, 21},
	} {
		s := series.New(start)
		for i, nav := range navs {
			require.NoError(t, s.Append(start.Add(i), nav))
		}
		e := &series.Entity{Code: code, Name: fmt.Sprintf("Fund %d", code), Series: s}
		_, err := calc.Compute(e)
		require.NoError(t, err)
		entities = append(entities, e)
	}
	return &exporter.Batch{Fields: plan.Fields(), Entities: entities}
}
