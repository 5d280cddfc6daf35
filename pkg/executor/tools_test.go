// pkg/executor/tools_test.go
// TEST TYPE: Unit Tests
// DEPENDENCIES: fake Runner
// PURPOSE: Verify tool argument building, discovery and output classification

package executor

import (
	"context"
	"os/exec"
	"testing"

	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/arthur-debert/deltapack/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	results []Result
	calls   []Process
}

func (f *fakeRunner) Run(_ context.Context, p Process) (Result, error) {
	f.calls = append(f.calls, p)
	if len(f.results) == 0 {
		return Result{}, nil
	}
	res := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return res, nil
}

func newTestToolbox(runner Runner, tools Tools, existing ...string) *Toolbox {
	tb := NewToolbox(runner, tools)
	tb.getenv = func(name string) string {
		switch name {
		case "ProgramFiles":
			return `C:\Program Files`
		case "ProgramFiles(x86)":
			return `C:\Program Files (x86)`
		}
		return ""
	}
	set := map[string]bool{}
	for _, e := range existing {
		set[e] = true
	}
	tb.exists = func(p string) bool { return set[p] }
	tb.lookPath = func(string) (string, error) { return "", exec.ErrNotFound }
	return tb
}

func TestMSBuildArgs(t *testing.T) {
	args := MSBuildArgs(&types.MSBuildOptions{
		Solution: "app.sln",
		Target:   types.StringList{"Clean", "Build"},
		Props:    map[string]string{"Platform": "x64", "Configuration": "Release"},
	})
	assert.Equal(t, []string{"app.sln", "/t:Clean;Build", "/p:Configuration=Release", "/p:Platform=x64"}, args)

	assert.Equal(t, []string{"app.sln"}, MSBuildArgs(&types.MSBuildOptions{Solution: "app.sln"}))
}

func TestDevenvArgs(t *testing.T) {
	args := DevenvArgs(&types.DevenvOptions{
		Solution:             "app.sln",
		Action:               "Rebuild",
		Configuration:        "Release",
		Project:              "Web App",
		ProjectConfiguration: "Release|x64",
	})
	assert.Equal(t, []string{"app.sln", "/Rebuild", "Release", "/Project", `"Web App"`, "/ProjectConfig", "Release|x64"}, args)
}

func TestDotnetArgs(t *testing.T) {
	args := DotnetArgs(&types.DotnetOptions{
		Command: "publish",
		Args:    types.StringList{"-c", "Release"},
		Props:   map[string]string{"Version": "1.2.3"},
	})
	assert.Equal(t, []string{"publish", "-c", "Release", "/p:Version=1.2.3"}, args)
}

func TestClassifyMSBuild(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want string
	}{
		{name: "success", res: Result{Stdout: "Build succeeded."}, want: ""},
		{name: "stderr", res: Result{Stderr: "boom"}, want: "boom"},
		{name: "build failed", res: Result{Stdout: "log\nBuild FAILED.\n\n  x.cs(1): error CS1\n"}, want: "x.cs(1): error CS1"},
		{name: "msbuild error", res: Result{Stdout: "MSBUILD : error MSB1009: Project file does not exist.\n"}, want: "error MSB1009: Project file does not exist."},
		{name: "exit code", res: Result{ExitCode: 3}, want: "exited with code 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyMSBuild(tt.res))
		})
	}
}

func TestClassifyDotnet(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want string
	}{
		{name: "success", res: Result{Stdout: "Build succeeded.\r\n"}, want: ""},
		{name: "stderr", res: Result{Stderr: "bad", ExitCode: 1}, want: "bad"},
		{name: "compiler error with zero exit", res: Result{Stdout: "a.cs(1,2): error CS0103: missing\r\nmore\r\n"}, want: "CS0103: missing"},
		{name: "failed text", res: Result{Stdout: "Test run Failed: 2 tests", ExitCode: 1}, want: ": 2 tests"},
		{name: "stdout fallback", res: Result{Stdout: "something", ExitCode: 1}, want: "something"},
		{name: "exit code", res: Result{ExitCode: 2}, want: "exited with code 2"},
		{name: "failed text with zero exit is fine", res: Result{Stdout: "0 Failed"}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyDotnet(tt.res))
		})
	}
}

func TestClassifyDevenv(t *testing.T) {
	assert.Equal(t, "", classifyDevenv(Result{Stdout: "ok"}))
	assert.Equal(t, "err", classifyDevenv(Result{Stderr: "err"}))
	assert.Equal(t, "exited with code 1", classifyDevenv(Result{ExitCode: 1}))
}

func TestLocate(t *testing.T) {
	msbuild2019 := `C:\Program Files\Microsoft Visual Studio\2019\Community\MSBuild\Current\Bin\MSBuild.exe`

	t.Run("configured path wins", func(t *testing.T) {
		tb := newTestToolbox(&fakeRunner{}, Tools{MSBuild: "/opt/msbuild"}, msbuild2019)
		got, err := tb.locate("msbuild", tb.tools.MSBuild, msbuildCandidates(tb.programFiles()))
		require.NoError(t, err)
		assert.Equal(t, "/opt/msbuild", got)
	})

	t.Run("install candidate", func(t *testing.T) {
		tb := newTestToolbox(&fakeRunner{}, Tools{}, msbuild2019)
		got, err := tb.locate("msbuild", "", msbuildCandidates(tb.programFiles()))
		require.NoError(t, err)
		assert.Equal(t, msbuild2019, got)
	})

	t.Run("path fallback", func(t *testing.T) {
		tb := newTestToolbox(&fakeRunner{}, Tools{})
		tb.lookPath = func(name string) (string, error) { return "/usr/bin/" + name, nil }
		got, err := tb.locate("dotnet", "", dotnetCandidates(tb.programFiles()))
		require.NoError(t, err)
		assert.Equal(t, "/usr/bin/dotnet", got)
	})

	t.Run("missing", func(t *testing.T) {
		tb := newTestToolbox(&fakeRunner{}, Tools{})
		_, err := tb.locate("devenv", "", devenvCandidates(tb.programFiles()))
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrToolMissing))
	})
}

func TestCandidatesOrder(t *testing.T) {
	c := msbuildCandidates([]string{`C:\PF`})
	require.Len(t, c, 12)
	assert.Equal(t, `C:\PF\Microsoft Visual Studio\2022\Community\MSBuild\Current\Bin\MSBuild.exe`, c[0])
	assert.Equal(t, `C:\PF\Microsoft Visual Studio\2017\Community\MSBuild\14.0\Bin\MSBuild.exe`, c[11])

	assert.Equal(t, []string{`C:\PF\dotnet\dotnet.exe`}, dotnetCandidates([]string{`C:\PF`}))
}

func TestRunCmd(t *testing.T) {
	t.Setenv("DELTAPACK_TEST_TOOL", "/tools")

	t.Run("expands path and uses root", func(t *testing.T) {
		runner := &fakeRunner{}
		tb := newTestToolbox(runner, Tools{})

		err := tb.RunCmd(context.Background(), &types.CmdOptions{
			Path: "%DELTAPACK_TEST_TOOL%/build.sh",
			Args: types.StringList{"a", "b"},
		}, "/repo")
		require.NoError(t, err)

		require.Len(t, runner.calls, 1)
		assert.Equal(t, "/tools/build.sh", runner.calls[0].Path)
		assert.Equal(t, "/repo", runner.calls[0].Dir)
		assert.True(t, runner.calls[0].Shell)
	})

	t.Run("unexpected exit code uses stderr", func(t *testing.T) {
		runner := &fakeRunner{results: []Result{{ExitCode: 1, Stderr: "nope"}}}
		tb := newTestToolbox(runner, Tools{})

		err := tb.RunCmd(context.Background(), &types.CmdOptions{Path: "x", Cwd: "/elsewhere"}, "/repo")
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrToolExecute))
		assert.Contains(t, err.Error(), "nope")
		assert.Equal(t, "/elsewhere", runner.calls[0].Dir)
	})

	t.Run("stderr alone is not a failure", func(t *testing.T) {
		runner := &fakeRunner{results: []Result{{Stderr: "warning"}}}
		tb := newTestToolbox(runner, Tools{})
		require.NoError(t, tb.RunCmd(context.Background(), &types.CmdOptions{Path: "x"}, "/repo"))
	})

	t.Run("any exit code accepted", func(t *testing.T) {
		runner := &fakeRunner{results: []Result{{ExitCode: 7}}}
		tb := newTestToolbox(runner, Tools{})
		err := tb.RunCmd(context.Background(), &types.CmdOptions{
			Path:           "x",
			ExpectExitCode: types.ExitCodeExpectation{Any: true},
		}, "/repo")
		require.NoError(t, err)
	})

	t.Run("generic message without stderr", func(t *testing.T) {
		runner := &fakeRunner{results: []Result{{ExitCode: 4}}}
		tb := newTestToolbox(runner, Tools{})
		err := tb.RunCmd(context.Background(), &types.CmdOptions{Path: "x"}, "/repo")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exited with code 4")
		assert.Equal(t, 4, errors.GetErrorDetails(err)["exitCode"])
	})
}

func TestRunCommand(t *testing.T) {
	t.Run("stderr fails even with zero exit", func(t *testing.T) {
		runner := &fakeRunner{results: []Result{{Stderr: "warn"}}}
		tb := newTestToolbox(runner, Tools{})
		err := tb.RunCommand(context.Background(), types.CommandSpec{Path: "x"}, "/out")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "warn")
	})

	t.Run("relative cwd resolves against base", func(t *testing.T) {
		runner := &fakeRunner{}
		tb := newTestToolbox(runner, Tools{})
		require.NoError(t, tb.RunCommand(context.Background(), types.CommandSpec{Path: "x", Cwd: "sub"}, "/out"))
		assert.Equal(t, "/out/sub", runner.calls[0].Dir)
	})

	t.Run("non-zero exit fails", func(t *testing.T) {
		runner := &fakeRunner{results: []Result{{ExitCode: 1}}}
		tb := newTestToolbox(runner, Tools{})
		err := tb.RunCommand(context.Background(), types.CommandSpec{Path: "x"}, "/out")
		require.Error(t, err)
	})
}

func TestRunMSBuildFailureCarriesDiagnostics(t *testing.T) {
	runner := &fakeRunner{results: []Result{{Stdout: "Build FAILED.\nerror here", ExitCode: 1}}}
	tb := newTestToolbox(runner, Tools{MSBuild: "msbuild"})

	err := tb.RunMSBuild(context.Background(), &types.MSBuildOptions{Solution: "a.sln"}, "/repo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error here")
	assert.Equal(t, "msbuild", errors.GetErrorDetails(err)["tool"])
	assert.Equal(t, []string{"a.sln"}, runner.calls[0].Args)
	assert.Equal(t, "/repo", runner.calls[0].Dir)
}
