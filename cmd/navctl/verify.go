package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/google/subcommands"
	"gonum.org/v1/gonum/stat"

	"navcli/internal/app"
	"navcli/internal/config"
	"navcli/internal/dataprocessing"
	"navcli/internal/files"
	"navcli/internal/series"
	"navcli/internal/statistics"
)

type verifyCmd struct {
	code      int64
	tolerance float64
}

func (*verifyCmd) Name() string { return "verify" }
func (*verifyCmd) Synopsis() string {
	return "recompute one fund and check every metric against a direct computation"
}
func (*verifyCmd) Usage() string {
	return `navctl verify -code <scheme code> [-tol <relative tolerance>]

  Reads the fund from the input files, runs the pipeline computation and
  compares each trailing return, rolling average and variance sum with a
  value computed from scratch over its window. Exits non-zero on mismatch.
`
}

func (c *verifyCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.code, "code", 0, "AMFI scheme code")
	f.Float64Var(&c.tolerance, "tol", 1e-6, "relative tolerance")
}

func (c *verifyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.code <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -code is required.")
		return subcommands.ExitUsageError
	}
	cfg, paths, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	report, err := verifyFund(ctx, cfg, paths, c.code, c.tolerance)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	report.print(os.Stdout)
	if len(report.Mismatches) > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// mismatch is one value that disagrees with its direct computation.
type mismatch struct {
	Field string
	Date  string
	Got   series.Value
	Want  series.Value
}

type verifyReport struct {
	Code       int64
	Name       string
	Days       int
	Checked    int
	MaxError   float64
	Mismatches []mismatch
}

func (r *verifyReport) print(out io.Writer) {
	fmt.Fprintf(out, "%d %s: %d days, %d values checked, max relative error %.3g\n",
		r.Code, r.Name, r.Days, r.Checked, r.MaxError)
	for i, m := range r.Mismatches {
		if i == 20 {
			fmt.Fprintf(out, "... %d more\n", len(r.Mismatches)-i)
			break
		}
		fmt.Fprintf(out, "MISMATCH %s %s: got %s want %s\n", m.Field, m.Date, formatValue(m.Got), formatValue(m.Want))
	}
	if len(r.Mismatches) == 0 {
		fmt.Fprintln(out, "OK")
	}
}

// verifyFund loads one fund from the input files, computes it and checks
// the result.
func verifyFund(ctx context.Context, cfg *config.Config, paths *config.Paths, code int64, tol float64) (*verifyReport, error) {
	logger := quietLogger()

	found, err := files.NewDiscovery(paths.BaseDir, files.ParseExtensions(config.NAVFileExtensions)...).FindNAVFiles(paths.InputDir)
	if err != nil {
		return nil, err
	}
	collector := dataprocessing.NewCollector()
	parser := dataprocessing.NewFeedParser(logger).WithFilter(func(c int64) bool { return c == code })
	if _, err := parser.ParseFiles(ctx, files.Paths(found), collector.Add); err != nil {
		return nil, err
	}
	if collector.Len() == 0 {
		return nil, fmt.Errorf("fund %d not found in %s", code, paths.InputDir)
	}

	store, _, err := dataprocessing.NewForwardFillProcessor(logger).BuildStore(ctx, collector)
	if err != nil {
		return nil, err
	}
	plan, err := statistics.NewPlan(app.PlanConfigFrom(cfg.Metrics))
	if err != nil {
		return nil, err
	}
	entity, _ := store.Get(code)
	if _, err := statistics.NewCalculator(plan, logger).Compute(entity); err != nil {
		return nil, err
	}
	return checkEntity(plan, entity, tol), nil
}

// checkEntity compares every computed metric of e with a direct
// computation over its window.
func checkEntity(plan *statistics.Plan, e *series.Entity, tol float64) *verifyReport {
	s := e.Series
	report := &verifyReport{Code: e.Code, Name: e.Name, Days: s.Len()}
	reg := plan.Registry()

	for _, f := range plan.Fields() {
		k, _ := reg.Kind(f.ID)
		if k.Tag == series.Base {
			continue
		}
		for i := 0; i < s.Len(); i++ {
			want := expected(s, k, i)
			got := s.ValueAt(i, f.ID)
			report.Checked++

			g, gok := got.Get()
			w, wok := want.Get()
			if gok != wok {
				report.Mismatches = append(report.Mismatches, mismatch{reg.Name(f.ID), s.Date(i).String(), got, want})
				continue
			}
			if !gok {
				continue
			}
			rel := math.Abs(g-w) / math.Max(1, math.Abs(w))
			report.MaxError = math.Max(report.MaxError, rel)
			if rel > tol {
				report.Mismatches = append(report.Mismatches, mismatch{reg.Name(f.ID), s.Date(i).String(), got, want})
			}
		}
	}
	return report
}

// expected computes the value of kind k on day i from its source values.
func expected(s *series.Series, k series.Kind, i int) series.Value {
	switch k.Tag {
	case series.CAGR:
		if i < k.Window {
			return series.Absent
		}
		present, ok := s.ValueAt(i, k.Source).Get()
		if !ok {
			return series.Absent
		}
		past, ok := s.ValueAt(i-k.Window, k.Source).Get()
		if !ok {
			return series.Absent
		}
		years := float64(k.Window) / statistics.DaysPerYear
		return series.Some((math.Exp(math.Log(present/past)/years) - 1) * 100)

	case series.Avg, series.VarSum:
		values, ok := statistics.WindowValues(s, k.Source, i, k.Window)
		if !ok {
			return series.Absent
		}
		if k.Tag == series.Avg {
			return series.Some(stat.Mean(values, nil))
		}
		if len(values) < 2 {
			return series.Some(0)
		}
		// gonum reports the unbiased variance, so scale back to a plain sum
		// of squared deviations.
		_, variance := stat.MeanVariance(values, nil)
		return series.Some(variance * float64(len(values)-1))
	}
	return series.Absent
}

func formatValue(v series.Value) string {
	x, ok := v.Get()
	if !ok {
		return "absent"
	}
	return fmt.Sprintf("%.10g", x)
}
