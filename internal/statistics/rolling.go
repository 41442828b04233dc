package statistics

import (
	"math"

	"navcli/internal/series"
)

// rollingWindow carries the incremental state of one (source, window) pair
// across consecutive days.
type rollingWindow struct {
	window int

	total       float64
	prevVarSum  float64
	prevAverage float64
	// initialized is set once a window has been satisfied on the previous
	// day. The first satisfied window after it is cleared is computed directly.
	initialized bool
}

func newRollingWindow(window int) *rollingWindow {
	return &rollingWindow{window: window}
}

// advance moves the window to day index i and reports the window average and
// variance sum when the whole window [i-window+1, i] is defined.
func (w *rollingWindow) advance(s *series.Series, i int, src series.ID) (average, varSum float64, ok bool) {
	x, defined := s.ValueAt(i, src).Get()
	if !defined {
		w.initialized = false
		return 0, 0, false
	}
	w.total += x

	first := i - (w.window - 1)
	out, defined := s.ValueAt(first, src).Get()
	if !defined {
		w.initialized = false
		return 0, 0, false
	}

	average = w.total / float64(w.window)
	w.total -= out

	if prev, defined := s.ValueAt(first-1, src).Get(); w.initialized && defined {
		varSum = w.prevVarSum + (x-prev)*(x-average+prev-w.prevAverage)
	} else {
		varSum = varianceSum(s, first, i, src, average)
		w.initialized = true
	}

	w.prevVarSum = varSum
	w.prevAverage = average
	return average, varSum, true
}

// varianceSum returns the sum of squared deviations from mean over day
// indexes [from, to] inclusive.
func varianceSum(s *series.Series, from, to int, src series.ID, mean float64) float64 {
	sum := 0.0
	for j := from; j <= to; j++ {
		d := s.ValueAt(j, src).Or(mean) - mean
		sum += d * d
	}
	return sum
}

// rolling writes AVG(window) and VAR_SUM(window) of src for every day with a
// satisfied window. It returns the number of days written.
func rolling(s *series.Series, src, avgID, varID series.ID, window int) (int, error) {
	w := newRollingWindow(window)
	written := 0
	for i := 0; i < s.Len(); i++ {
		average, varSum, ok := w.advance(s, i, src)
		if !ok {
			continue
		}
		if err := s.SetAt(i, avgID, average); err != nil {
			return written, err
		}
		if err := s.SetAt(i, varID, varSum); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// StdDev converts a variance sum over window values into a population
// standard deviation. Small negative sums left by floating point drift are
// reported as zero.
func StdDev(varSum float64, window int) float64 {
	if varSum <= 0 {
		return 0
	}
	return math.Sqrt(varSum / float64(window))
}

// WindowValues returns the source values of the window ending at day index i.
// ok is false when any of them is undefined.
func WindowValues(s *series.Series, src series.ID, i, window int) ([]float64, bool) {
	first := i - (window - 1)
	if first < 0 || i >= s.Len() {
		return nil, false
	}
	values := make([]float64, 0, window)
	for j := first; j <= i; j++ {
		v, ok := s.ValueAt(j, src).Get()
		if !ok {
			return nil, false
		}
		values = append(values, v)
	}
	return values, true
}
