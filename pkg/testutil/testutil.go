package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// CreateFile writes content to dir/name, creating parent directories, and
// returns the full path. name uses "/" separators.
func CreateFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755), "create parents of %s", path)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644), "write %s", path)
	return path
}

// CreateFiles creates every relPath -> content entry under dir
func CreateFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		CreateFile(t, dir, name, content)
	}
}

// FileExists reports whether path is an existing regular file or symlink
func FileExists(t *testing.T, path string) bool {
	t.Helper()
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ReadFile returns the content of path, failing the test when unreadable
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err, "read %s", path)
	return string(data)
}

// AssertFileContent fails unless path holds exactly expected
func AssertFileContent(t *testing.T, path, expected string) {
	t.Helper()
	require.True(t, FileExists(t, path), "%s does not exist", path)
	assert.Equal(t, expected, ReadFile(t, path), "content of %s", path)
}

// AssertNoFile fails when anything exists at path
func AssertNoFile(t *testing.T, path string) {
	t.Helper()
	_, err := os.Lstat(path)
	assert.True(t, os.IsNotExist(err), "%s exists but should not", path)
}

// Tree returns every regular file under dir as "/" separated relative path
// -> content. Directories named .git are skipped.
func Tree(t *testing.T, dir string) map[string]string {
	t.Helper()

	out := map[string]string{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir() && d.Name() == ".git":
			return filepath.SkipDir
		case d.IsDir():
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = ReadFile(t, path)
		return nil
	})
	require.NoError(t, err, "walk %s", dir)
	return out
}
