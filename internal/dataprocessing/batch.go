package dataprocessing

import (
	"context"
	"iter"
	"slices"

	"navcli/pkg/contracts/domain"
)

// Batch is a bounded set of fund codes processed together.
type Batch struct {
	Index int
	Codes []int64
}

// Contains reports whether code belongs to the batch. Codes must be sorted.
func (b Batch) Contains(code int64) bool {
	_, found := slices.BinarySearch(b.Codes, code)
	return found
}

// First returns the lowest code of the batch.
func (b Batch) First() int64 { return b.Codes[0] }

// Last returns the highest code of the batch.
func (b Batch) Last() int64 { return b.Codes[len(b.Codes)-1] }

// Batches splits sorted codes into consecutive batches of at most maxFunds
// codes. A non-positive maxFunds yields a single batch.
func Batches(codes []int64, maxFunds int) iter.Seq[Batch] {
	return func(yield func(Batch) bool) {
		if len(codes) == 0 {
			return
		}
		if maxFunds <= 0 {
			maxFunds = len(codes)
		}
		for i, chunk := range enumerate(slices.Chunk(codes, maxFunds)) {
			if !yield(Batch{Index: i, Codes: chunk}) {
				return
			}
		}
	}
}

func enumerate[T any](seq iter.Seq[T]) iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		i := 0
		for v := range seq {
			if !yield(i, v) {
				return
			}
			i++
		}
	}
}

// ScanCodes reads the feed once and returns the sorted set of fund codes
// without keeping any observations.
func ScanCodes(ctx context.Context, p *FeedParser, paths []string) ([]int64, ParseStatistics, error) {
	seen := make(map[int64]struct{})
	stats, err := p.ParseFiles(ctx, paths, func(obs domain.Observation) error {
		seen[obs.Code] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, stats, err
	}
	codes := make([]int64, 0, len(seen))
	for code := range seen {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes, stats, nil
}
