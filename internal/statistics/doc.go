// Package statistics computes trailing-window metrics over dense daily NAV
// series: CAGR over several horizons, rolling averages and rolling variance
// sums, including rolling statistics layered over CAGR series.
//
// Metrics are described by a Plan, a dependency graph of series.Kind values
// evaluated in topological order. Each node walks the series in ascending
// date order, so a metric's source is always complete before it is read.
//
// Variance sums are kept as the sum of squared deviations from the window
// mean and updated in O(1) per day. They become standard deviations only at
// the report boundary, see Field.Display.
package statistics
