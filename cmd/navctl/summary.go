package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"navcli/internal/exporter"
	"navcli/pkg/contracts/domain"
)

type summaryCmd struct {
	code  int64
	raw   bool
	width int
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "show the latest statistics of one fund" }
func (*summaryCmd) Usage() string {
	return `navctl summary -code <scheme code> [-raw] [-width <columns>]

  Renders the reported span and the latest value of every metric of a fund
  as a markdown table. -raw prints the markdown without terminal styling.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.code, "code", 0, "AMFI scheme code")
	f.BoolVar(&c.raw, "raw", false, "print plain markdown")
	f.IntVar(&c.width, "width", 100, "word wrap width of the rendered output")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.code <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -code is required.")
		return subcommands.ExitUsageError
	}
	_, paths, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	summary, err := newDataService(paths).GetFundSummary(ctx, c.code)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	md := summaryMarkdown(summary)
	if c.raw {
		fmt.Print(md)
		return subcommands.ExitSuccess
	}
	if err := renderMarkdown(os.Stdout, md, c.width); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// summaryMarkdown lists NAV first, then the metrics in name order.
func summaryMarkdown(s *domain.FundSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", s.Name)
	fmt.Fprintf(&b, "Scheme code **%d**, %d days from %s to %s.\n\n", s.Code, s.Days, s.FirstDate, s.LastDate)

	names := make([]string, 0, len(s.Latest))
	for name := range s.Latest {
		if name != exporter.NAVColumn {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	if _, ok := s.Latest[exporter.NAVColumn]; ok {
		names = slices.Insert(names, 0, exporter.NAVColumn)
	}

	b.WriteString("| Metric | Latest |\n|---|---:|\n")
	for _, name := range names {
		value := "n/a"
		if v := s.Latest[name]; v != nil {
			value = strconv.FormatFloat(*v, 'f', 4, 64)
		}
		fmt.Fprintf(&b, "| %s | %s |\n", name, value)
	}
	return b.String()
}

func renderMarkdown(out io.Writer, md string, width int) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	rendered, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	_, err = io.WriteString(out, rendered)
	return err
}
