package dataprocessing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navcli/internal/date"
	"navcli/internal/series"
	"navcli/internal/statistics"
	"navcli/pkg/contracts/domain"
)

func d(s string) date.Date { return date.MustParse(s) }

func TestFillIsDenseAndForwardFilled(t *testing.T) {
	observations := map[date.Date]float64{
		d("2020-01-01"): 10,
		d("2020-01-04"): 13,
		d("2020-01-05"): 14,
		d("2020-01-09"): 18,
	}

	s, stats, err := NewForwardFillProcessor(nil).Fill(observations)
	require.NoError(t, err)

	assert.Equal(t, d("2020-01-01"), s.Start())
	assert.Equal(t, d("2020-01-09"), s.End())
	assert.Equal(t, 9, s.Len())
	assert.Equal(t, FillStatistics{TotalRecords: 9, ObservedRecords: 4, ForwardFilledCount: 5, FundsProcessed: 1}, stats)

	want := []float64{10, 10, 10, 13, 14, 14, 14, 14, 18}
	prev := date.Date{}
	i := 0
	for day, rec := range s.All() {
		if !prev.IsZero() {
			assert.Equal(t, 1, day.Sub(prev), "days must be consecutive")
		}
		v, ok := rec.Get(series.BaseID).Get()
		require.True(t, ok)
		assert.Equal(t, want[i], v, day.String())
		prev = day
		i++
	}
}

func TestFillSingleObservation(t *testing.T) {
	s, stats, err := NewForwardFillProcessor(nil).Fill(map[date.Date]float64{d("2021-06-30"): 42})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
	assert.Zero(t, stats.ForwardFilledCount)
}

func TestFillRejectsEmptyInput(t *testing.T) {
	s, _, err := NewForwardFillProcessor(nil).Fill(nil)
	assert.ErrorIs(t, err, statistics.ErrPrecondition)
	assert.Nil(t, s)
}

func TestCollectorResolvesNamesAndDuplicates(t *testing.T) {
	c := NewCollector()
	require.NoError(t, c.Add(domain.Observation{Code: 5, Name: "Old name", NAV: 1, Date: d("2020-01-01")}))
	require.NoError(t, c.Add(domain.Observation{Code: 5, Name: "New name", NAV: 2, Date: d("2020-01-01")}))
	require.NoError(t, c.Add(domain.Observation{Code: 3, Name: "Other", NAV: 3, Date: d("2020-01-02")}))

	name, observations, ok := c.Fund(5)
	require.True(t, ok)
	assert.Equal(t, "New name", name)
	assert.Equal(t, map[date.Date]float64{d("2020-01-01"): 1}, observations)
	assert.Equal(t, 1, c.Duplicates())
	assert.Equal(t, []domain.Fund{{Code: 3, Name: "Other"}, {Code: 5, Name: "New name"}}, c.Funds())
}

func TestBuildStore(t *testing.T) {
	c := NewCollector()
	require.NoError(t, c.Add(domain.Observation{Code: 1, Name: "A", NAV: 1, Date: d("2020-01-01")}))
	require.NoError(t, c.Add(domain.Observation{Code: 1, Name: "A", NAV: 2, Date: d("2020-01-03")}))
	require.NoError(t, c.Add(domain.Observation{Code: 2, Name: "B", NAV: 5, Date: d("2020-02-01")}))

	store, stats, err := NewForwardFillProcessor(nil).BuildStore(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, 2, store.Len())
	assert.Equal(t, 4, stats.TotalRecords)
	assert.Equal(t, 1, stats.ForwardFilledCount)
	assert.Equal(t, 2, stats.FundsProcessed)

	e, ok := store.Get(1)
	require.True(t, ok)
	assert.Equal(t, 1.0, e.Series.At(d("2020-01-02"), series.BaseID).Or(0))
}

func TestBatches(t *testing.T) {
	codes := []int64{1, 2, 3, 4, 5, 6, 7}

	var got [][]int64
	for b := range Batches(codes, 3) {
		got = append(got, b.Codes)
		assert.True(t, b.Contains(b.First()))
		assert.True(t, b.Contains(b.Last()))
	}
	assert.Equal(t, [][]int64{{1, 2, 3}, {4, 5, 6}, {7}}, got)

	count := 0
	for b := range Batches(codes, 0) {
		count++
		assert.Len(t, b.Codes, 7)
		assert.False(t, b.Contains(8))
	}
	assert.Equal(t, 1, count)

	for range Batches(nil, 10) {
		t.Fatal("no batch expected for empty input")
	}
}

func TestScanCodes(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.txt")
	second := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(first, []byte(sampleFeed), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("300;C;1.0;;;01-Jan-2020\n100027;Fund A;1;;;02-Jan-2020\n"), 0o644))

	codes, stats, err := ScanCodes(context.Background(), NewFeedParser(nil), []string{first, second})
	require.NoError(t, err)
	assert.Equal(t, []int64{300, 100027, 200001}, codes)
	assert.Equal(t, 5, stats.Observations)
}
