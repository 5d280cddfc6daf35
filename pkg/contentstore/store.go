// Package contentstore writes and extracts the zip archive that carries the
// file contents of a package. Entry names are destination-relative paths
// with "/" separators.
//
// Archives are deterministic: entries are sorted by name and stamped with a
// fixed modification time, so the same inputs always yield the same bytes.
package contentstore

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/arthur-debert/deltapack/pkg/filesystem"
	"github.com/arthur-debert/deltapack/pkg/logging"
	"github.com/arthur-debert/deltapack/pkg/paths"
	"github.com/arthur-debert/deltapack/pkg/types"
)

// ModTime is stamped on every archive entry
var ModTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Entry is one file selected for the archive
type Entry struct {
	Name   string
	Source string
	Size   int64
}

// Store collects entries for one archive. The first entry added under a
// name is kept.
type Store struct {
	fs      types.FS
	entries map[string]Entry
}

// New creates an empty store reading sources through fs
func New(fs types.FS) *Store {
	return &Store{fs: fs, entries: make(map[string]Entry)}
}

// Stat describes the source file a new entry would be created from
func (s *Store) Stat(name, source string) (Entry, error) {
	info, err := s.fs.Stat(source)
	if err != nil {
		return Entry{}, errors.Wrapf(err, errors.ErrFileNotFound, "failed to stat %s", source)
	}
	return Entry{Name: paths.CleanRel(name), Source: source, Size: info.Size()}, nil
}

// Lookup returns the entry stored under name
func (s *Store) Lookup(name string) (Entry, bool) {
	e, ok := s.entries[paths.CleanRel(name)]
	return e, ok
}

// Add stores e unless its name is already taken. It reports whether e was
// stored.
func (s *Store) Add(e Entry) bool {
	e.Name = paths.CleanRel(e.Name)
	if _, ok := s.entries[e.Name]; ok {
		return false
	}
	s.entries[e.Name] = e
	return true
}

// Len returns the number of entries
func (s *Store) Len() int {
	return len(s.entries)
}

// Entries returns the entries sorted by name
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// WriteTo writes the archive to archivePath. On failure nothing is left at
// archivePath.
func (s *Store) WriteTo(archivePath string) error {
	logger := logging.GetLogger("contentstore")
	entries := s.Entries()

	err := filesystem.WriteAtomic(archivePath, 0644, func(w io.Writer) error {
		zw := zip.NewWriter(w)
		for _, e := range entries {
			data, err := s.fs.ReadFile(e.Source)
			if err != nil {
				_ = zw.Close()
				return errors.Wrapf(err, errors.ErrArchive, "failed to read %s", e.Source).
					WithDetail("entry", e.Name)
			}

			header := &zip.FileHeader{
				Name:     e.Name,
				Method:   zip.Deflate,
				Modified: ModTime,
			}
			header.SetMode(0644)

			fw, err := zw.CreateHeader(header)
			if err != nil {
				_ = zw.Close()
				return errors.Wrapf(err, errors.ErrArchive, "failed to add %s", e.Name)
			}
			if _, err := fw.Write(data); err != nil {
				_ = zw.Close()
				return errors.Wrapf(err, errors.ErrArchive, "failed to write %s", e.Name)
			}
		}
		if err := zw.Close(); err != nil {
			return errors.Wrap(err, errors.ErrArchive, "failed to finish archive")
		}
		return nil
	})
	if err != nil {
		_ = os.Remove(archivePath)
		return err
	}

	logger.Debug().
		Str("archive", archivePath).
		Int("entries", len(entries)).
		Msg("Wrote content store")
	return nil
}

// Extract unpacks every entry of the archive at archivePath into destDir and
// returns the number of files written. Entries escaping destDir are rejected.
func Extract(archivePath, destDir string) (int, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return 0, errors.Wrapf(err, errors.ErrArchive, "failed to open %s", archivePath)
	}
	defer func() {
		_ = reader.Close()
	}()

	count := 0
	for _, f := range reader.File {
		target, err := entryTarget(destDir, f.Name)
		if err != nil {
			return count, err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return count, errors.Wrapf(err, errors.ErrDirCreate, "failed to create %s", target)
			}
			continue
		}

		if err := extractFile(f, target); err != nil {
			return count, err
		}
		count++
	}

	logger := logging.GetLogger("contentstore")
	logger.Debug().
		Str("archive", archivePath).
		Str("dest", destDir).
		Int("files", count).
		Msg("Extracted content store")
	return count, nil
}

// Empty reports whether the archive at archivePath has no entries
func Empty(archivePath string) (bool, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return false, errors.Wrapf(err, errors.ErrArchive, "failed to open %s", archivePath)
	}
	defer func() {
		_ = reader.Close()
	}()
	return len(reader.File) == 0, nil
}

func entryTarget(destDir, name string) (string, error) {
	slashed := paths.ToSlash(name)
	for _, part := range strings.Split(slashed, "/") {
		if part == ".." {
			return "", errors.Newf(errors.ErrArchive, "archive entry %q escapes the destination", name)
		}
	}
	rel := paths.CleanRel(slashed)
	if rel == "." {
		return "", errors.Newf(errors.ErrArchive, "archive entry %q has no name", name)
	}
	return filepath.Join(destDir, filepath.FromSlash(rel)), nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "failed to create %s", filepath.Dir(target))
	}

	rc, err := f.Open()
	if err != nil {
		return errors.Wrapf(err, errors.ErrArchive, "failed to open entry %s", f.Name)
	}
	defer func() {
		_ = rc.Close()
	}()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to create %s", target)
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to write %s", target)
	}
	if err := out.Close(); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to close %s", target)
	}
	return nil
}
