package files

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath   string
	extensions []string
}

// NewDiscovery creates a discovery rooted at basePath that accepts the given
// file extensions (case-insensitive, with leading dot).
func NewDiscovery(basePath string, extensions ...string) *Discovery {
	exts := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	return &Discovery{basePath: basePath, extensions: exts}
}

// ParseExtensions splits a comma separated extension list such as ".txt,.csv".
func ParseExtensions(list string) []string {
	return strings.Split(list, ",")
}

func (d *Discovery) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(d.basePath, dir)
}

// FindNAVFiles lists the NAV history files in dir, sorted by name. The feed
// is ordered by file name so repeated runs see observations in the same order.
func (d *Discovery) FindNAVFiles(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !d.accepts(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	slices.SortFunc(files, func(a, b FileInfo) int { return strings.Compare(a.Name, b.Name) })
	return files, nil
}

func (d *Discovery) accepts(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return slices.Contains(d.extensions, ext)
}

// FindFundReports maps fund codes to their <code>.csv report in dir.
// Files whose stem is not a fund code (fund_names.csv) are ignored.
func (d *Discovery) FindFundReports(dir string) (map[int64]FileInfo, error) {
	matches, err := d.FindFilesByPattern(dir, "*.csv")
	if err != nil {
		return nil, err
	}

	reports := make(map[int64]FileInfo, len(matches))
	for _, file := range matches {
		code, err := strconv.ParseInt(strings.TrimSuffix(file.Name, ".csv"), 10, 64)
		if err != nil || code <= 0 {
			continue
		}
		reports[code] = file
	}
	return reports, nil
}

// FindFilesByPattern finds files matching a glob pattern
func (d *Discovery) FindFilesByPattern(dir string, pattern string) ([]FileInfo, error) {
	searchPattern := filepath.Join(d.resolve(dir), pattern)

	matches, err := filepath.Glob(searchPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}

	var files []FileInfo
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, FileInfo{
			Path:    match,
			Name:    filepath.Base(match),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	return files, nil
}

// Paths returns the paths of files in order.
func Paths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if file.ModTime.After(latest.ModTime) {
			latest = file
		}
	}

	return latest, true
}
