// pkg/gitdiff/gitdiff_test.go
// TEST TYPE: Unit and Integration Tests
// DEPENDENCIES: fake executor.Runner, git CLI for the fixture tests
// PURPOSE: Verify diff parsing, caching, pattern/exclude filtering and base stripping

package gitdiff_test

import (
	"context"
	"testing"

	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/arthur-debert/deltapack/pkg/executor"
	"github.com/arthur-debert/deltapack/pkg/gitdiff"
	"github.com/arthur-debert/deltapack/pkg/paths"
	"github.com/arthur-debert/deltapack/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cannedRunner struct {
	result executor.Result
	calls  []executor.Process
}

func (c *cannedRunner) Run(_ context.Context, p executor.Process) (executor.Result, error) {
	c.calls = append(c.calls, p)
	return c.result, nil
}

type fixedProbe bool

func (f fixedProbe) IsPathComparisonCaseSensitive(string) bool { return bool(f) }

func TestParse(t *testing.T) {
	out := "A\tfoo/b.txt\nM\tsrc\\a.cs\nR087\told/name.txt\tnew/name.txt\nC\tx.txt\ty.txt\nD\tgone.txt\n\n"

	items, err := gitdiff.Parse(out)
	require.NoError(t, err)

	assert.Equal(t, []gitdiff.Item{
		{Status: gitdiff.StatusAdded, Path: "foo/b.txt"},
		{Status: gitdiff.StatusModified, Path: "src/a.cs"},
		{Status: gitdiff.StatusRenamed, Path: "old/name.txt", ToPath: "new/name.txt", Accuracy: 0.87},
		{Status: gitdiff.StatusCopied, Path: "x.txt", ToPath: "y.txt", Accuracy: 1},
		{Status: gitdiff.StatusDeleted, Path: "gone.txt"},
	}, items)
}

func TestParseInvalid(t *testing.T) {
	_, err := gitdiff.Parse("Rxx\ta\tb\n")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrGitDiff))

	_, err = gitdiff.Parse("M\n")
	require.Error(t, err)
}

func TestDiffCaching(t *testing.T) {
	runner := &cannedRunner{result: executor.Result{Stdout: "A\ta.txt\n"}}
	src := gitdiff.NewSource("", runner, fixedProbe(true))
	ctx := context.Background()

	_, err := src.Diff(ctx, "base", "HEAD", "/repo")
	require.NoError(t, err)
	_, err = src.Diff(ctx, "base", "HEAD", "/repo")
	require.NoError(t, err)
	assert.Len(t, runner.calls, 1)

	assert.Equal(t, "git", runner.calls[0].Path)
	assert.Equal(t, "/repo", runner.calls[0].Dir)
	assert.Contains(t, runner.calls[0].Args, "base...HEAD")
	assert.Contains(t, runner.calls[0].Args, "--relative")
	assert.Contains(t, runner.calls[0].Args, "--name-status")

	// any element of the triple invalidates
	_, err = src.Diff(ctx, "base", "other", "/repo")
	require.NoError(t, err)
	_, err = src.Diff(ctx, "base", "other", "/elsewhere")
	require.NoError(t, err)
	assert.Len(t, runner.calls, 3)
}

func TestDiffDiagnosticsAreFatal(t *testing.T) {
	runner := &cannedRunner{result: executor.Result{Stdout: "A\ta.txt\n", Stderr: "fatal: bad revision 'latest'\n"}}
	src := gitdiff.NewSource("git", runner, nil)

	_, err := src.Diff(context.Background(), "latest", "HEAD", "/repo")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrGitDiff))
	assert.Contains(t, err.Error(), "bad revision")
}

func changesFor(t *testing.T, output string, probe fixedProbe, f gitdiff.Filter) []gitdiff.Change {
	t.Helper()
	src := gitdiff.NewSource("git", &cannedRunner{result: executor.Result{Stdout: output}}, probe)
	changes, err := src.Changes(context.Background(), "a", "b", "/repo", f)
	require.NoError(t, err)
	return changes
}

func fullPaths(changes []gitdiff.Change) []string {
	var out []string
	for _, c := range changes {
		out = append(out, c.FullPath)
	}
	return out
}

func TestChangesPattern(t *testing.T) {
	output := "A\tsrc/a.cs\nA\tsrc/b.txt\nR100\tsrc/old.txt\tsrc/new.cs\nM\tdocs/readme.md\n"

	t.Run("no pattern keeps everything", func(t *testing.T) {
		got := changesFor(t, output, true, gitdiff.Filter{})
		assert.Len(t, got, 4)
	})

	t.Run("either location matches", func(t *testing.T) {
		got := changesFor(t, output, true, gitdiff.Filter{Pattern: "**/*.cs"})
		assert.Equal(t, []string{"src/a.cs", "src/old.txt"}, fullPaths(got))
	})

	t.Run("case insensitive pattern", func(t *testing.T) {
		got := changesFor(t, output, true, gitdiff.Filter{Pattern: "/DOCS/*.MD"})
		assert.Equal(t, []string{"docs/readme.md"}, fullPaths(got))
	})
}

func TestChangesExclude(t *testing.T) {
	output := "A\tsrc/a.cs\nR100\tsrc/keep.cs\tobj/moved.cs\nM\tobj/x.cs\n"

	got := changesFor(t, output, true, gitdiff.Filter{Pattern: "**/*", Exclude: []string{"obj/**"}})
	assert.Equal(t, []string{"src/a.cs"}, fullPaths(got))
}

func TestChangesStripBase(t *testing.T) {
	output := "A\tweb/app/a.js\nR100\tweb/old.js\tlib/new.js\nM\tWeb/b.js\nM\tother/c.js\n"

	t.Run("case sensitive", func(t *testing.T) {
		got := changesFor(t, output, true, gitdiff.Filter{Pattern: "**/*.js", Base: "./web", StripBase: true})
		require.Len(t, got, 2)

		assert.Equal(t, "app/a.js", got[0].Path)
		assert.Equal(t, "web/app/a.js", got[0].FullPath)

		assert.Equal(t, "old.js", got[1].Path)
		assert.Equal(t, "", got[1].ToPath)
		assert.Equal(t, "lib/new.js", got[1].FullToPath)
	})

	t.Run("case insensitive", func(t *testing.T) {
		got := changesFor(t, output, false, gitdiff.Filter{Pattern: "**/*.js", Base: "web/", StripBase: true})
		assert.Equal(t, []string{"web/app/a.js", "web/old.js", "Web/b.js"}, fullPaths(got))
		assert.Equal(t, "b.js", got[2].Path)
	})

	t.Run("excludes see stripped paths", func(t *testing.T) {
		got := changesFor(t, output, true, gitdiff.Filter{Pattern: "**/*.js", Base: "web", StripBase: true, Exclude: []string{"app/**"}})
		assert.Equal(t, []string{"web/old.js"}, fullPaths(got))
	})
}

func TestChangesAgainstRepository(t *testing.T) {
	repo := testutil.InitRepo(t)
	testutil.CreateFile(t, repo, "foo/a.txt", "a")
	base := testutil.Commit(t, repo, "base")

	testutil.CreateFile(t, repo, "foo/b.txt", "b")
	testutil.Commit(t, repo, "target")

	src := gitdiff.NewSource("git", executor.NewExecRunner(), paths.NewCaseProbe())
	changes, err := src.Changes(context.Background(), base, "HEAD", repo, gitdiff.Filter{Pattern: "**/*"})
	require.NoError(t, err)

	require.Len(t, changes, 1)
	assert.Equal(t, gitdiff.StatusAdded, changes[0].Status)
	assert.Equal(t, "foo/b.txt", changes[0].Path)
}

func TestUnknownRevision(t *testing.T) {
	repo := testutil.InitRepo(t)
	testutil.Commit(t, repo, "only")

	src := gitdiff.NewSource("git", executor.NewExecRunner(), paths.NewCaseProbe())
	_, err := src.Diff(context.Background(), "no-such-tag", "HEAD", repo)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrGitDiff))
}
