package paths

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/bmatcuk/doublestar/v4"
)

// EnvHome is the standard home directory variable
const EnvHome = "HOME"

// NormalizePath normalizes a path by expanding home, making it absolute,
// and cleaning it
func NormalizePath(p string) (string, error) {
	if p == "" {
		return "", errors.New(errors.ErrInvalidInput, "empty path")
	}

	abs, err := filepath.Abs(ExpandHome(p))
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFileAccess, "failed to get absolute path")
	}

	return filepath.Clean(abs), nil
}

// ExpandHome expands a leading ~ to the home directory
func ExpandHome(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv(EnvHome)
		if homeDir == "" {
			return p
		}
	}

	if len(p) == 1 {
		return homeDir
	}
	if p[1] == '/' || p[1] == filepath.Separator {
		return filepath.Join(homeDir, p[2:])
	}

	// ~user is left alone
	return p
}

// ToSlash converts OS separators and backslashes to "/"
func ToSlash(p string) string {
	return strings.ReplaceAll(filepath.ToSlash(p), `\`, "/")
}

// CleanRel returns a clean, "/" separated relative path. Empty input, "./"
// and "/" all become ".".
func CleanRel(p string) string {
	cleaned := path.Clean("/" + ToSlash(p))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" {
		return "."
	}
	return cleaned
}

// JoinRel joins relative path elements into a clean manifest path
func JoinRel(elem ...string) string {
	return CleanRel(path.Join(elem...))
}

// Anchor prefixes "/" to a slash separated path when it does not start with one
func Anchor(p string) string {
	p = ToSlash(p)
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}

// MatchGlob reports whether the anchored candidate matches the anchored
// pattern, ignoring case. Malformed patterns match nothing.
func MatchGlob(pattern, candidate string) bool {
	ok, err := doublestar.Match(strings.ToLower(Anchor(pattern)), strings.ToLower(Anchor(candidate)))
	return err == nil && ok
}

// MatchAny reports whether the candidate matches at least one pattern
func MatchAny(patterns []string, candidate string) bool {
	for _, p := range patterns {
		if MatchGlob(p, candidate) {
			return true
		}
	}
	return false
}

// ValidatePattern checks a glob pattern for syntax errors
func ValidatePattern(pattern string) error {
	if !doublestar.ValidatePattern(Anchor(pattern)) {
		return errors.Newf(errors.ErrConfigInvalid, "invalid glob pattern %q", pattern)
	}
	return nil
}

// HasPrefix reports whether p starts with prefix, folding case when the
// comparison is not case sensitive
func HasPrefix(p, prefix string, caseSensitive bool) bool {
	if caseSensitive {
		return strings.HasPrefix(p, prefix)
	}
	return strings.HasPrefix(strings.ToLower(p), strings.ToLower(prefix))
}
