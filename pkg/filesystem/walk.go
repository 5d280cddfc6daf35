package filesystem

import (
	"path"
	"path/filepath"
	"sort"

	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/arthur-debert/deltapack/pkg/types"
)

// ListFiles returns every non-directory entry under root as a sorted "/"
// separated path relative to root
func ListFiles(fsys types.FS, root string) ([]string, error) {
	var out []string
	if err := walk(fsys, root, "", &out); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func walk(fsys types.FS, root, rel string, out *[]string) error {
	dir := filepath.Join(root, filepath.FromSlash(rel))
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to read directory %s", dir)
	}
	for _, e := range entries {
		child := path.Join(rel, e.Name())
		if e.IsDir() {
			if err := walk(fsys, root, child, out); err != nil {
				return err
			}
			continue
		}
		*out = append(*out, child)
	}
	return nil
}
