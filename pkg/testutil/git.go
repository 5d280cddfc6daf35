package testutil

import (
	"os/exec"
	"strings"
	"testing"
)

// RequireGit skips the test when the git binary is not available
func RequireGit(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}
}

// Git runs a git command in dir and returns its trimmed output
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v: %s", args, err, out)
	}
	return strings.TrimSpace(string(out))
}

// InitRepo creates a repository in a new temp dir with an identity configured
// and returns its path
func InitRepo(t *testing.T) string {
	t.Helper()
	RequireGit(t)

	dir := t.TempDir()
	Git(t, dir, "init", "-q")
	Git(t, dir, "config", "user.email", "test@test.com")
	Git(t, dir, "config", "user.name", "Test")
	Git(t, dir, "config", "commit.gpgsign", "false")
	Git(t, dir, "config", "core.autocrlf", "false")
	return dir
}

// Commit stages everything in dir, commits and returns the commit hash.
// Empty commits are allowed so an empty tree can serve as a base.
func Commit(t *testing.T, dir, msg string) string {
	t.Helper()

	Git(t, dir, "add", "-A")
	Git(t, dir, "commit", "-q", "--allow-empty", "-m", msg)
	return Git(t, dir, "rev-parse", "HEAD")
}

// Tag creates a lightweight tag on HEAD
func Tag(t *testing.T, dir, name string) {
	t.Helper()
	Git(t, dir, "tag", name)
}
