// Package shared groups helpers used across navcli packages. The testutil
// subpackage captures slog output so tests can assert on what was logged.
package shared
