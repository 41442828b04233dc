package statistics

import (
	"fmt"
	"math"

	"navcli/internal/series"
)

// DaysPerYear is the fixed year length used to annualize returns. Leap
// years are deliberately ignored.
const DaysPerYear = 365.0

// CAGR returns the compound annual growth rate in percent between past and
// present values that are days apart.
func CAGR(present, past float64, days int) float64 {
	return (math.Pow(present/past, DaysPerYear/float64(days)) - 1) * 100
}

// trailingReturn writes CAGR(days) of src into dst for every day where src is
// defined both on the day and days earlier. It returns the number of values written.
func trailingReturn(s *series.Series, src, dst series.ID, days int) (int, error) {
	written := 0
	for i := days; i < s.Len(); i++ {
		present, ok := s.ValueAt(i, src).Get()
		if !ok {
			continue
		}
		past, ok := s.ValueAt(i-days, src).Get()
		if !ok {
			continue
		}
		if present <= 0 || past <= 0 {
			return written, fmt.Errorf("%w: non-positive source value between %s and %s",
				ErrPrecondition, s.Date(i-days), s.Date(i))
		}
		if err := s.SetAt(i, dst, CAGR(present, past, days)); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
