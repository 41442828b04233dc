package files

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"navcli/internal/config"
)

// Manager provides file management operations
type Manager struct {
	paths *config.Paths
}

// NewManager creates a new file manager instance
func NewManager(paths *config.Paths) *Manager {
	return &Manager{paths: paths}
}

// Paths returns the resolved application paths.
func (m *Manager) Paths() *config.Paths {
	return m.paths
}

// FileExists checks if a file exists at the given path
func (m *Manager) FileExists(path string) bool {
	_, err := os.Stat(m.resolvePath(path))
	return err == nil
}

// WriteAtomic streams a file through fill into a temporary sibling and renames
// it over path, so readers never observe a half written report.
func (m *Manager) WriteAtomic(path string, fill func(w io.Writer) error) (err error) {
	fullPath := m.resolvePath(path)
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = fill(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", fullPath, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", fullPath, err)
	}
	if err = os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("failed to move report into place: %w", err)
	}

	slog.Debug("Wrote file", slog.String("path", fullPath))
	return nil
}

// OpenFundReport opens the CSV report of one fund.
func (m *Manager) OpenFundReport(code int64) (*os.File, error) {
	return os.Open(m.paths.FundCSVPath(code))
}

// RemoveFundReport deletes a stale fund report. Missing files are not an error.
func (m *Manager) RemoveFundReport(code int64) error {
	err := os.Remove(m.paths.FundCSVPath(code))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (m *Manager) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.paths.BaseDir, path)
}
