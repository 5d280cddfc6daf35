package filesystem

import (
	"io/fs"

	"github.com/arthur-debert/deltapack/pkg/types"
	"github.com/spf13/afero"
)

// FS is the types.FS implementation shared by the OS and in-memory
// filesystems. Both are afero backends, so replay code runs unchanged
// against either.
type FS struct {
	backend afero.Fs
}

var _ types.FS = (*FS)(nil)

// NewOS returns the real filesystem
func NewOS() types.FS {
	return &FS{backend: afero.NewOsFs()}
}

// NewMemory returns an empty in-memory filesystem
func NewMemory() types.FS {
	return &FS{backend: afero.NewMemMapFs()}
}

// NewAferoFS wraps any afero backend
func NewAferoFS(backend afero.Fs) types.FS {
	return &FS{backend: backend}
}

func (f *FS) Stat(name string) (fs.FileInfo, error) {
	return f.backend.Stat(name)
}

// Lstat does not follow symlinks where the backend supports it; memory
// backends fall back to Stat.
func (f *FS) Lstat(name string) (fs.FileInfo, error) {
	if l, ok := f.backend.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(name)
		return info, err
	}
	return f.backend.Stat(name)
}

// ReadFile fails on directories on every backend
func (f *FS) ReadFile(name string) ([]byte, error) {
	info, err := f.backend.Stat(name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrInvalid}
	}
	return afero.ReadFile(f.backend, name)
}

func (f *FS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return afero.WriteFile(f.backend, name, data, perm)
}

func (f *FS) Rename(oldpath, newpath string) error {
	return f.backend.Rename(oldpath, newpath)
}

func (f *FS) MkdirAll(path string, perm fs.FileMode) error {
	return f.backend.MkdirAll(path, perm)
}

// ReadDir lists a directory sorted by name
func (f *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	infos, err := afero.ReadDir(f.backend, name)
	if err != nil {
		return nil, err
	}
	entries := make([]fs.DirEntry, len(infos))
	for i, info := range infos {
		entries[i] = fs.FileInfoToDirEntry(info)
	}
	return entries, nil
}

func (f *FS) Remove(name string) error {
	return f.backend.Remove(name)
}

func (f *FS) RemoveAll(path string) error {
	return f.backend.RemoveAll(path)
}
