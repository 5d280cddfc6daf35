package types

import (
	"io/fs"
)

// FS is the filesystem interface used by the replay engine and the mirror
type FS interface {
	// File operations
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error
	Rename(oldpath, newpath string) error

	// Directory operations
	MkdirAll(path string, perm fs.FileMode) error
	ReadDir(name string) ([]fs.DirEntry, error)

	// Removal
	Remove(name string) error
	RemoveAll(path string) error

	// For in-memory filesystems Lstat falls back to Stat
	Lstat(name string) (fs.FileInfo, error)
}

// CaseSensitivity reports whether path comparisons under a directory must
// respect case
type CaseSensitivity interface {
	IsPathComparisonCaseSensitive(path string) bool
}
