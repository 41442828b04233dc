package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInputDirectory(t *testing.T) {
	v := NewFileValidator(nil, ".txt", ".CSV")

	tests := []struct {
		name    string
		files   []string
		want    int
		wantErr error
	}{
		{name: "nav files", files: []string{"a.txt", "b.csv", "notes.md"}, want: 2},
		{name: "case insensitive", files: []string{"NAVALL.TXT"}, want: 1},
		{name: "empty", files: nil, wantErr: ErrNoNAVFiles},
		{name: "wrong extensions", files: []string{"report.xlsx"}, wantErr: ErrNoNAVFiles},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("x"), 0o644))
			}
			require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0o755))

			n, err := v.ValidateInputDirectory(dir)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestValidateInputDirectoryMissingOrFile(t *testing.T) {
	v := NewFileValidator(nil, ".txt")
	dir := t.TempDir()

	_, err := v.ValidateInputDirectory(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	file := filepath.Join(dir, "navall.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = v.ValidateInputDirectory(file)
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestValidateOutputDirectory(t *testing.T) {
	v := NewFileValidator(nil)
	dir := filepath.Join(t.TempDir(), "reports", "csv")

	require.NoError(t, v.ValidateOutputDirectory(dir))
	assert.DirExists(t, dir)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "write probe is removed")

	file := filepath.Join(t.TempDir(), "taken")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.Error(t, v.ValidateOutputDirectory(file))
}
