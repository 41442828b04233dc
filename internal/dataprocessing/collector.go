package dataprocessing

import (
	"slices"

	"navcli/internal/date"
	"navcli/pkg/contracts/domain"
)

type fundObservations struct {
	name   string
	values map[date.Date]float64
}

// Collector groups observations by fund. The most recently seen name wins
// and the first value read for a (fund, date) pair is kept.
type Collector struct {
	funds      map[int64]*fundObservations
	duplicates int
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{funds: make(map[int64]*fundObservations)}
}

// Add records one observation. It never fails and matches the emit
// signature of FeedParser.Parse.
func (c *Collector) Add(obs domain.Observation) error {
	f, ok := c.funds[obs.Code]
	if !ok {
		f = &fundObservations{values: make(map[date.Date]float64)}
		c.funds[obs.Code] = f
	}
	f.name = obs.Name
	if _, seen := f.values[obs.Date]; seen {
		c.duplicates++
		return nil
	}
	f.values[obs.Date] = obs.NAV
	return nil
}

// Len returns the number of funds seen.
func (c *Collector) Len() int { return len(c.funds) }

// Duplicates returns how many repeated (fund, date) observations were ignored.
func (c *Collector) Duplicates() int { return c.duplicates }

// Codes returns the fund codes in ascending order.
func (c *Collector) Codes() []int64 {
	codes := make([]int64, 0, len(c.funds))
	for code := range c.funds {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}

// Fund returns the name and the observations of code.
func (c *Collector) Fund(code int64) (string, map[date.Date]float64, bool) {
	f, ok := c.funds[code]
	if !ok {
		return "", nil, false
	}
	return f.name, f.values, true
}

// Funds returns the code to name lookup table ordered by code.
func (c *Collector) Funds() []domain.Fund {
	out := make([]domain.Fund, 0, len(c.funds))
	for _, code := range c.Codes() {
		out = append(out, domain.Fund{Code: code, Name: c.funds[code].name})
	}
	return out
}
