package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"navcli/internal/app"
	"navcli/internal/config"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults to config.yaml or configs/config.yaml)")
	flag.Parse()

	var cfg *config.Config
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			slog.Error("Failed to load configuration", slog.String("path", *configPath), slog.String("error", err.Error()))
			os.Exit(1)
		}
		cfg = loaded
	}

	application, err := app.NewApplication(context.Background(), cfg, nil)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
