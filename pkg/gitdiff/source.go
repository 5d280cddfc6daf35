package gitdiff

import (
	"context"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/arthur-debert/deltapack/pkg/executor"
	"github.com/arthur-debert/deltapack/pkg/logging"
	"github.com/arthur-debert/deltapack/pkg/paths"
	"github.com/arthur-debert/deltapack/pkg/types"
	"github.com/rs/zerolog"
)

type triple struct {
	base, target, root string
}

// Source fetches diffs with the git CLI and caches the last one. Asking for
// a different (base, target, root) triple replaces the cache.
type Source struct {
	binary string
	runner executor.Runner
	probe  types.CaseSensitivity
	logger zerolog.Logger

	mu     sync.Mutex
	key    triple
	items  []Item
	cached bool
}

// NewSource creates a diff source running binary (usually "git")
func NewSource(binary string, runner executor.Runner, probe types.CaseSensitivity) *Source {
	if binary == "" {
		binary = "git"
	}
	return &Source{
		binary: binary,
		runner: runner,
		probe:  probe,
		logger: logging.GetLogger("gitdiff"),
	}
}

// Diff returns the name-status diff of base...target relative to root
func (s *Source) Diff(ctx context.Context, base, target, root string) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := triple{base: base, target: target, root: root}
	if s.cached && s.key == key {
		return s.items, nil
	}

	args := []string{"-c", "core.quotepath=off", "diff", "--relative", "--name-status", base + "..." + target}
	res, err := s.runner.Run(ctx, executor.Process{Path: s.binary, Args: args, Dir: root})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrGitDiff, "failed to run git diff")
	}
	if res.Stderr != "" {
		return nil, errors.New(errors.ErrGitDiff, strings.TrimSpace(res.Stderr)).
			WithDetail("exitCode", res.ExitCode)
	}
	if res.ExitCode != 0 {
		return nil, errors.Newf(errors.ErrGitDiff, "git diff exited with code %d", res.ExitCode).
			WithDetail("exitCode", res.ExitCode)
	}

	items, err := Parse(res.Stdout)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("base", base).
		Str("target", target).
		Str("root", root).
		Int("changes", len(items)).
		Msg("Fetched git diff")

	s.key, s.items, s.cached = key, items, true
	return items, nil
}

// Filter narrows a diff down
type Filter struct {
	// Pattern keeps paths matching it through either location. Empty keeps all.
	Pattern string
	// Exclude drops paths matching any entry through either location
	Exclude []string
	// Base restricts pattern matching to paths under this directory
	Base string
	// StripBase reports Path and ToPath relative to Base
	StripBase bool
}

// Change is a diff item after filtering
type Change struct {
	Status     Status
	FullPath   string
	FullToPath string
	// Path and ToPath are relative to the filter base when stripping; empty
	// when that location lies outside the base
	Path     string
	ToPath   string
	Accuracy float64
}

// Changes fetches the diff and applies f
func (s *Source) Changes(ctx context.Context, base, target, root string, f Filter) ([]Change, error) {
	items, err := s.Diff(ctx, base, target, root)
	if err != nil {
		return nil, err
	}
	return s.apply(items, root, f), nil
}

func (s *Source) apply(items []Item, root string, f Filter) []Change {
	prefix := basePrefix(f.Base)

	var out []Change
	for _, item := range items {
		c := Change{
			Status:     item.Status,
			FullPath:   item.Path,
			FullToPath: item.ToPath,
			Path:       item.Path,
			ToPath:     item.ToPath,
			Accuracy:   item.Accuracy,
		}

		if f.Pattern != "" {
			if !s.matchesUnder(item.Path, prefix, f.Pattern, root) &&
				!(item.ToPath != "" && s.matchesUnder(item.ToPath, prefix, f.Pattern, root)) {
				continue
			}

			if f.StripBase {
				c.Path = s.strip(item.Path, prefix, root)
				if item.ToPath != "" {
					c.ToPath = s.strip(item.ToPath, prefix, root)
				}
			}
		}

		if len(f.Exclude) > 0 {
			if (c.Path != "" && paths.MatchAny(f.Exclude, c.Path)) ||
				(c.ToPath != "" && paths.MatchAny(f.Exclude, c.ToPath)) {
				continue
			}
		}

		out = append(out, c)
	}
	return out
}

// basePrefix turns a source folder into a "dir/" prefix, or "" for the root
func basePrefix(base string) string {
	cleaned := paths.CleanRel(base)
	if cleaned == "." {
		return ""
	}
	return cleaned + "/"
}

func (s *Source) caseSensitive(root, rel string) bool {
	if s.probe == nil {
		return true
	}
	return s.probe.IsPathComparisonCaseSensitive(filepath.Join(root, filepath.FromSlash(rel)))
}

func (s *Source) matchesUnder(p, prefix, pattern, root string) bool {
	if prefix != "" {
		if !paths.HasPrefix(p, prefix, s.caseSensitive(root, p)) {
			return false
		}
		p = p[len(prefix):]
	}
	return paths.MatchGlob(pattern, p)
}

func (s *Source) strip(p, prefix, root string) string {
	if prefix == "" {
		return p
	}
	if !paths.HasPrefix(p, prefix, s.caseSensitive(root, p)) {
		return ""
	}
	return path.Clean(p[len(prefix):])
}
