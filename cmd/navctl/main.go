package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"path"

	"github.com/google/subcommands"

	"navcli/internal/config"
	"navcli/internal/files"
	"navcli/internal/services"
)

var configPath = flag.String("config", "", "YAML config file (defaults to config.yaml or configs/config.yaml)")

// commands lists every navctl subcommand.
var commands = []subcommands.Command{
	&fundsCmd{},
	&summaryCmd{},
	&verifyCmd{},
}

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	for _, c := range commands {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// loadConfig reads the configuration named by -config, or the default one.
func loadConfig() (*config.Config, *config.Paths, error) {
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, err
	}
	paths, err := cfg.GetPaths()
	if err != nil {
		return nil, nil, err
	}
	return cfg, paths, nil
}

// quietLogger keeps service chatter off the terminal.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newDataService(paths *config.Paths) *services.DataService {
	return services.NewDataService(files.NewManager(paths), nil, quietLogger())
}
