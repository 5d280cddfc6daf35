// Package mirror makes a destination directory mirror a source directory.
//
// Exclude patterns protect paths on both sides: an excluded path is neither
// copied nor deleted. Patterns starting with "!" restrict the mirror to the
// paths matching at least one of them.
package mirror

import (
	"bytes"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/arthur-debert/deltapack/pkg/filesystem"
	"github.com/arthur-debert/deltapack/pkg/logging"
	"github.com/arthur-debert/deltapack/pkg/paths"
	"github.com/arthur-debert/deltapack/pkg/types"
)

// Plan lists the relative paths a mirror run touches
type Plan struct {
	Add    []string
	Update []string
	Delete []string
}

// Excluded reports whether rel is protected by the exclude patterns.
// Negated patterns form one include list: when any are present, rel is
// protected unless it matches at least one of them. A plain pattern match
// always protects rel.
func Excluded(excludes []string, rel string) bool {
	negated, included := false, false
	for _, p := range excludes {
		if strings.HasPrefix(p, "!") {
			negated = true
			if paths.MatchGlob(p[1:], rel) {
				included = true
			}
			continue
		}
		if paths.MatchGlob(p, rel) {
			return true
		}
	}
	return negated && !included
}

// Mirror makes dst hold the files of src. A missing src behaves like an
// empty directory.
func Mirror(fsys types.FS, src, dst string, excludes []string) (Plan, error) {
	plan, err := Build(fsys, src, dst, excludes)
	if err != nil {
		return Plan{}, err
	}
	if err := Apply(fsys, src, dst, plan); err != nil {
		return plan, err
	}

	logger := logging.GetLogger("mirror")
	logger.Debug().
		Str("src", src).
		Str("dst", dst).
		Int("add", len(plan.Add)).
		Int("update", len(plan.Update)).
		Int("delete", len(plan.Delete)).
		Msg("Mirrored directory")
	return plan, nil
}

// Build computes the mirror plan without touching dst
func Build(fsys types.FS, src, dst string, excludes []string) (Plan, error) {
	srcFiles, err := listFiles(fsys, src)
	if err != nil {
		return Plan{}, err
	}
	dstFiles, err := listFiles(fsys, dst)
	if err != nil {
		return Plan{}, err
	}

	var plan Plan
	for _, rel := range sortedKeys(srcFiles) {
		if Excluded(excludes, rel) {
			continue
		}
		if _, ok := dstFiles[rel]; !ok {
			plan.Add = append(plan.Add, rel)
			continue
		}
		same, err := sameContent(fsys, filepath.Join(src, filepath.FromSlash(rel)), filepath.Join(dst, filepath.FromSlash(rel)))
		if err != nil {
			return Plan{}, err
		}
		if !same {
			plan.Update = append(plan.Update, rel)
		}
	}
	for _, rel := range sortedKeys(dstFiles) {
		if _, ok := srcFiles[rel]; ok || Excluded(excludes, rel) {
			continue
		}
		plan.Delete = append(plan.Delete, rel)
	}
	return plan, nil
}

// Apply executes plan, copying from src into dst. Deletions run first so
// a file may replace a directory of the same name.
func Apply(fsys types.FS, src, dst string, plan Plan) error {
	dirs := map[string]bool{}
	for _, rel := range plan.Delete {
		to := filepath.Join(dst, filepath.FromSlash(rel))
		if err := fsys.Remove(to); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, errors.ErrFileAccess, "failed to remove %s", to)
		}
		for dir := path.Dir(rel); dir != "."; dir = path.Dir(dir) {
			dirs[dir] = true
		}
	}
	pruneEmptyDirs(fsys, src, dst, dirs)

	for _, rel := range append(append([]string(nil), plan.Add...), plan.Update...) {
		from := filepath.Join(src, filepath.FromSlash(rel))
		to := filepath.Join(dst, filepath.FromSlash(rel))
		if err := CopyFile(fsys, from, to); err != nil {
			return err
		}
	}
	return nil
}

// pruneEmptyDirs removes directories of dst emptied by deletions that have
// no counterpart in src, deepest first
func pruneEmptyDirs(fsys types.FS, src, dst string, dirs map[string]bool) {
	ordered := sortedKeys(dirs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return strings.Count(ordered[i], "/") > strings.Count(ordered[j], "/")
	})
	for _, rel := range ordered {
		dir := filepath.Join(dst, filepath.FromSlash(rel))
		entries, err := fsys.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			continue
		}
		if _, err := fsys.Stat(filepath.Join(src, filepath.FromSlash(rel))); err == nil {
			continue
		}
		_ = fsys.Remove(dir)
	}
}

// CopyFile copies one file, creating parent directories and replacing a
// directory that is in the way
func CopyFile(fsys types.FS, from, to string) error {
	data, err := fsys.ReadFile(from)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileNotFound, "failed to read %s", from)
	}
	mode := fs.FileMode(0644)
	if info, err := fsys.Stat(from); err == nil {
		mode = info.Mode().Perm()
	}

	if info, err := fsys.Stat(to); err == nil && info.IsDir() {
		if err := fsys.RemoveAll(to); err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "failed to remove directory %s", to)
		}
	}
	if err := fsys.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "failed to create %s", filepath.Dir(to))
	}
	if err := fsys.WriteFile(to, data, mode); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to write %s", to)
	}
	return nil
}

// listFiles returns the files under root as a set. A missing root yields no
// files.
func listFiles(fsys types.FS, root string) (map[string]bool, error) {
	out := map[string]bool{}
	info, err := fsys.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "failed to stat %s", root)
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.ErrFileAccess, "%s is not a directory", root)
	}

	files, err := filesystem.ListFiles(fsys, root)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		out[f] = true
	}
	return out, nil
}

func sameContent(fsys types.FS, a, b string) (bool, error) {
	left, err := fsys.ReadFile(a)
	if err != nil {
		return false, errors.Wrapf(err, errors.ErrFileAccess, "failed to read %s", a)
	}
	right, err := fsys.ReadFile(b)
	if err != nil {
		// A directory or unreadable entry at b gets replaced
		return false, nil
	}
	return bytes.Equal(left, right), nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
