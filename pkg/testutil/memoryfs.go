package testutil

import (
	"path"
	"testing"

	"github.com/arthur-debert/deltapack/pkg/filesystem"
	"github.com/arthur-debert/deltapack/pkg/types"
	"github.com/spf13/afero"
)

// NewMemoryFS returns an in-memory types.FS holding the given files, keyed by
// absolute "/" separated path
func NewMemoryFS(t *testing.T, files map[string]string) types.FS {
	t.Helper()

	mem := afero.NewMemMapFs()
	for name, content := range files {
		if err := mem.MkdirAll(path.Dir(name), 0755); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", name, err)
		}
		if err := afero.WriteFile(mem, name, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	return filesystem.NewAferoFS(mem)
}
