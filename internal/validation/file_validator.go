package validation

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var (
	// ErrNotDirectory is returned when a configured directory is a file.
	ErrNotDirectory = errors.New("not a directory")
	// ErrNoNAVFiles is returned when the input directory holds no feed files.
	ErrNoNAVFiles = errors.New("no NAV files")
)

// FileValidator checks the directories a pipeline run reads and writes
// before any work starts.
type FileValidator struct {
	extensions []string
	logger     *slog.Logger
}

// NewFileValidator creates a validator accepting input files with the given
// extensions, e.g. ".txt".
func NewFileValidator(logger *slog.Logger, extensions ...string) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	exts := make([]string, 0, len(extensions))
	for _, e := range extensions {
		exts = append(exts, strings.ToLower(e))
	}
	return &FileValidator{extensions: exts, logger: logger}
}

// ValidateInputDirectory checks that dir exists and holds at least one NAV
// file. It returns the number of NAV files found.
func (v *FileValidator) ValidateInputDirectory(dir string) (int, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		v.logger.Error("input directory does not exist", slog.String("directory", dir))
		return 0, fmt.Errorf("input directory %s: %w", dir, err)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		v.logger.Error("input path is not a directory", slog.String("path", dir))
		return 0, fmt.Errorf("%s: %w", dir, ErrNotDirectory)
	}

	n, err := v.CountNAVFiles(dir)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		v.logger.Warn("no NAV files found",
			slog.String("directory", dir),
			slog.Any("extensions", v.extensions))
		return 0, fmt.Errorf("%s: %w", dir, ErrNoNAVFiles)
	}

	v.logger.Info("input directory validated",
		slog.String("directory", dir),
		slog.Int("files_found", n))
	return n, nil
}

// CountNAVFiles counts the regular files in dir with an accepted extension.
func (v *FileValidator) CountNAVFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() && slices.Contains(v.extensions, strings.ToLower(filepath.Ext(e.Name()))) {
			n++
		}
	}
	return n, nil
}

// ValidateOutputDirectory creates dir if needed and checks it is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		v.logger.Error("failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		v.logger.Error("output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	v.logger.Debug("output directory validated", slog.String("directory", dir))
	return nil
}
