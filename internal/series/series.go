package series

import (
	"errors"
	"fmt"
	"iter"

	"navcli/internal/date"
)

var (
	// ErrMetricOverwrite is returned when a metric is written twice for the same day.
	ErrMetricOverwrite = errors.New("metric already set")
	// ErrNotContiguous is returned when a day is appended out of sequence.
	ErrNotContiguous = errors.New("series days must be contiguous")
	// ErrOutOfRange is returned for dates outside the series.
	ErrOutOfRange = errors.New("date outside series")
)

// DayRecord holds the metric values of one day, indexed by ID.
type DayRecord struct {
	values []Value
}

// Get returns the value stored for id.
func (r DayRecord) Get(id ID) Value {
	if int(id) < 0 || int(id) >= len(r.values) {
		return Absent
	}
	return r.values[id]
}

func (r *DayRecord) set(id ID, v float64) error {
	if int(id) < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidKind, id)
	}
	if int(id) >= len(r.values) {
		grown := make([]Value, int(id)+1)
		copy(grown, r.values)
		r.values = grown
	}
	if r.values[id].ok {
		return fmt.Errorf("%w: kind %d", ErrMetricOverwrite, id)
	}
	r.values[id] = Some(v)
	return nil
}

// Series is a dense daily series: day i is Start().Add(i).
type Series struct {
	start date.Date
	days  []DayRecord
}

// New returns an empty series whose first day will be start.
func New(start date.Date) *Series {
	return &Series{start: start}
}

// Append adds the next calendar day with its base value.
func (s *Series) Append(d date.Date, base float64) error {
	if want := s.start.Add(len(s.days)); d != want {
		return fmt.Errorf("%w: got %s, want %s", ErrNotContiguous, d, want)
	}
	var rec DayRecord
	if err := rec.set(BaseID, base); err != nil {
		return err
	}
	s.days = append(s.days, rec)
	return nil
}

// Grow reserves capacity for n more days.
func (s *Series) Grow(n int) {
	if n <= 0 {
		return
	}
	grown := make([]DayRecord, len(s.days), len(s.days)+n)
	copy(grown, s.days)
	s.days = grown
}

// Len returns the number of days.
func (s *Series) Len() int { return len(s.days) }

// Start returns the first day.
func (s *Series) Start() date.Date { return s.start }

// End returns the last day, or the day before Start for an empty series.
func (s *Series) End() date.Date { return s.start.Add(len(s.days) - 1) }

// Range returns the covered days.
func (s *Series) Range() date.Range { return date.Range{From: s.start, To: s.End()} }

// Date returns the date of day index i.
func (s *Series) Date(i int) date.Date { return s.start.Add(i) }

// Index returns the day index of d.
func (s *Series) Index(d date.Date) (int, bool) {
	i := d.Sub(s.start)
	if i < 0 || i >= len(s.days) {
		return 0, false
	}
	return i, true
}

// ValueAt returns the value of id on day index i. Indexes outside the
// series are absent.
func (s *Series) ValueAt(i int, id ID) Value {
	if i < 0 || i >= len(s.days) {
		return Absent
	}
	return s.days[i].Get(id)
}

// At returns the value of id on d.
func (s *Series) At(d date.Date, id ID) Value {
	i, ok := s.Index(d)
	if !ok {
		return Absent
	}
	return s.days[i].Get(id)
}

// SetAt writes id on day index i. Each metric can be written once per day.
func (s *Series) SetAt(i int, id ID, v float64) error {
	if i < 0 || i >= len(s.days) {
		return fmt.Errorf("%w: index %d", ErrOutOfRange, i)
	}
	if err := s.days[i].set(id, v); err != nil {
		return fmt.Errorf("%s: %w", s.Date(i), err)
	}
	return nil
}

// Set writes id on d.
func (s *Series) Set(d date.Date, id ID, v float64) error {
	i, ok := s.Index(d)
	if !ok {
		return fmt.Errorf("%w: %s", ErrOutOfRange, d)
	}
	return s.SetAt(i, id, v)
}

// Record returns the record of day index i.
func (s *Series) Record(i int) DayRecord { return s.days[i] }

// All iterates the days in ascending date order.
func (s *Series) All() iter.Seq2[date.Date, DayRecord] {
	return func(yield func(date.Date, DayRecord) bool) {
		for i, rec := range s.days {
			if !yield(s.start.Add(i), rec) {
				return
			}
		}
	}
}
