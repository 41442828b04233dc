//go:build ignore

// build.go - navcli build system
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: all, web, processor, navctl, test, config, clean

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"
)

const module = "navcli"

// BuildContext holds configuration for the build process
type BuildContext struct {
	Verbose bool
	Race    bool
}

var (
	rootDir string
	distDir string

	// Executable names (key = source dir under cmd/, value = output name)
	executables = map[string]string{
		"web":       "navcli-web",
		"processor": "navcli-processor",
		"navctl":    "navctl",
	}

	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

const defaultConfig = `# navcli configuration. Every key can be overridden with NAV_* variables,
# e.g. NAV_SERVER_PORT=9090 or NAV_METRICS_LAYERS=1095:365,1825:365.
server:
  port: 8080
paths:
  input_dir: data/nav
  reports_dir: data/reports
  logs_dir: logs
metrics:
  cagr_windows: [365, 1095, 1825]
  rolling_windows: [365, 1095, 1825]
  layers:
    - {window: 1095, over: 365}
    - {window: 1825, over: 365}
processing:
  batch_size: 2000
  workers: 4
sinks:
  xlsx: false
  postgres_dsn: ""
  clickhouse_dsn: ""
  migrate: true
telemetry:
  service_name: navcli
  trace_exporter: none
  metrics_enabled: true
`

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	race := flag.Bool("race", false, "Run tests with the race detector")
	flag.Parse()

	cwd, err := os.Getwd()
	if err != nil {
		printError(fmt.Sprintf("Failed to get current directory: %v", err))
		os.Exit(1)
	}
	rootDir = cwd
	distDir = filepath.Join(rootDir, "dist")

	printHeader()
	startTime := time.Now()
	ctx := &BuildContext{Verbose: *verbose, Race: *race}

	switch *target {
	case "all":
		err = buildAll(ctx)
	case "web", "processor", "navctl":
		err = buildExecutable(*target, ctx)
	case "test":
		err = runTests(ctx)
	case "config":
		err = writeConfig(ctx)
	case "clean":
		err = os.RemoveAll(distDir)
	default:
		showHelp()
		os.Exit(1)
	}
	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(startTime).Round(time.Millisecond)))
}

func printHeader() {
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println(colorCyan + "        navcli - Build System              " + colorReset)
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println()
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}

func showHelp() {
	fmt.Println("Usage: go run build.go -target=<target> [-v] [-race]")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  all        test, build every executable and write dist/config.yaml")
	fmt.Println("  web        build the HTTP server")
	fmt.Println("  processor  build the batch processor")
	fmt.Println("  navctl     build the query and verification CLI")
	fmt.Println("  test       run the test suite")
	fmt.Println("  config     write the default config.yaml into dist/")
	fmt.Println("  clean      remove dist/")
}

func buildAll(ctx *BuildContext) error {
	printInfo("Building all components...")
	if err := runTests(ctx); err != nil {
		return err
	}
	for name := range executables {
		if err := buildExecutable(name, ctx); err != nil {
			return err
		}
	}
	return writeConfig(ctx)
}

func buildExecutable(name string, ctx *BuildContext) error {
	out := executables[name]
	if runtime.GOOS == "windows" {
		out += ".exe"
	}
	printInfo(fmt.Sprintf("Building %s -> dist/%s", name, out))

	if err := os.MkdirAll(distDir, 0o755); err != nil {
		return fmt.Errorf("create dist directory: %w", err)
	}
	args := []string{"build", "-trimpath", "-ldflags", "-s -w", "-o", filepath.Join(distDir, out)}
	if ctx.Verbose {
		args = append(args, "-v")
	}
	args = append(args, "./cmd/"+name)
	if err := run(ctx, "go", args...); err != nil {
		return fmt.Errorf("build %s: %w", name, err)
	}
	return nil
}

func runTests(ctx *BuildContext) error {
	printInfo("Running tests for " + module + "...")
	args := []string{"test", "-short"}
	if ctx.Race {
		args = append(args, "-race")
	}
	if ctx.Verbose {
		args = append(args, "-v")
	}
	args = append(args, "./...")
	return run(ctx, "go", args...)
}

func writeConfig(ctx *BuildContext) error {
	if err := os.MkdirAll(distDir, 0o755); err != nil {
		return fmt.Errorf("create dist directory: %w", err)
	}
	path := filepath.Join(distDir, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		printInfo("Keeping existing " + path)
		return nil
	}
	printInfo("Writing " + path)
	return os.WriteFile(path, []byte(defaultConfig), 0o644)
}

func run(ctx *BuildContext, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Dir = rootDir
	cmd.Stderr = os.Stderr
	if ctx.Verbose {
		cmd.Stdout = os.Stdout
	}
	return cmd.Run()
}
