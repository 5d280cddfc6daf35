package filesystem

import (
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/arthur-debert/deltapack/pkg/errors"
)

// WriteFileAtomic writes content to path through a temp file in the same
// directory followed by a rename, so readers never see a partial file
func WriteFileAtomic(path string, content []byte, perm os.FileMode) error {
	return WriteAtomic(path, perm, func(w io.Writer) error {
		_, err := w.Write(content)
		return err
	})
}

// WriteAtomic streams the output of write to path atomically. The temp file
// is removed when write or any later step fails.
func WriteAtomic(path string, perm os.FileMode, write func(io.Writer) error) error {
	parent := filepath.Dir(path)
	base := filepath.Base(path)

	tempFile, err := os.CreateTemp(parent, "."+base+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to create temp file for %s", path)
	}
	tempPath := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempPath)
		}
	}()

	if err := write(tempFile); err != nil {
		_ = tempFile.Close()
		return err
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to sync %s", tempPath)
	}
	if err := tempFile.Chmod(perm); err != nil {
		_ = tempFile.Close()
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to chmod %s", tempPath)
	}
	if err := tempFile.Close(); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to close %s", tempPath)
	}

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS != "windows" {
			return errors.Wrapf(err, errors.ErrFileWrite, "failed to move %s into place", path)
		}
		// Windows refuses to rename over an existing file
		if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
			return errors.Wrapf(removeErr, errors.ErrFileWrite, "failed to replace %s", path)
		}
		if renameErr := os.Rename(tempPath, path); renameErr != nil {
			return errors.Wrapf(renameErr, errors.ErrFileWrite, "failed to move %s into place", path)
		}
	}
	cleanup = false

	if dir, err := os.Open(parent); err == nil {
		_ = dir.Sync()
		_ = dir.Close()
	}
	return nil
}
