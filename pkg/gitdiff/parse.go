// Package gitdiff lists the paths changed between two revisions of a working
// tree and narrows them down to what a packaging rule asks for.
package gitdiff

import (
	"strconv"
	"strings"

	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/arthur-debert/deltapack/pkg/paths"
)

// Status is the name-status letter git reports for a path
type Status byte

const (
	StatusAdded       Status = 'A'
	StatusDeleted     Status = 'D'
	StatusModified    Status = 'M'
	StatusTypeChanged Status = 'T'
	StatusUnmerged    Status = 'U'
	StatusUnknown     Status = 'X'
	StatusBroken      Status = 'B'
	StatusRenamed     Status = 'R'
	StatusCopied      Status = 'C'
)

// String returns the status letter
func (s Status) String() string { return string(rune(s)) }

// Item is one line of a name-status diff
type Item struct {
	Status Status
	Path   string
	// ToPath is set for renames and copies
	ToPath string
	// Accuracy is the similarity of a rename or copy, from 0 to 1
	Accuracy float64
}

// Parse reads `git diff --name-status` output. Paths are returned "/"
// separated and cleaned.
func Parse(output string) ([]Item, error) {
	var items []Item

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		status := strings.TrimSpace(fields[0])
		if status == "" || len(fields) < 2 {
			return nil, errors.Newf(errors.ErrGitDiff, "unexpected diff line %q", line)
		}

		item := Item{
			Status: Status(status[0]),
			Path:   paths.CleanRel(strings.TrimSpace(fields[1])),
		}

		if item.Status == StatusRenamed || item.Status == StatusCopied {
			item.Accuracy = 1
			if len(status) > 1 {
				score, err := strconv.Atoi(status[1:])
				if err != nil {
					return nil, errors.Wrapf(err, errors.ErrGitDiff, "invalid similarity in %q", line)
				}
				item.Accuracy = float64(score) / 100
			}
			if len(fields) > 2 {
				item.ToPath = paths.CleanRel(strings.TrimSpace(fields[2]))
			}
		}

		items = append(items, item)
	}

	return items, nil
}
