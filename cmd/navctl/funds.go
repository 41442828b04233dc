package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"

	"navcli/internal/services"
)

type fundsCmd struct {
	query string
}

func (*fundsCmd) Name() string     { return "funds" }
func (*fundsCmd) Synopsis() string { return "list the funds of the last pipeline run" }
func (*fundsCmd) Usage() string {
	return `navctl funds [-q <text>]

  Lists scheme codes and names from fund_names.csv. With -q only funds whose
  name contains the text, or whose code starts with it, are shown.
`
}

func (c *fundsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.query, "q", "", "filter by name substring or code prefix")
}

func (c *fundsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	_, paths, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := listFunds(ctx, newDataService(paths), c.query, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func listFunds(ctx context.Context, ds *services.DataService, query string, out io.Writer) error {
	funds, err := ds.ListFunds(ctx, query)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME")
	for _, f := range funds {
		fmt.Fprintf(w, "%d\t%s\n", f.Code, f.Name)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d funds\n", len(funds))
	return nil
}
