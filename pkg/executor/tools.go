package executor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/arthur-debert/deltapack/pkg/logging"
	"github.com/arthur-debert/deltapack/pkg/types"
	"github.com/rs/zerolog"
)

// Tools holds explicit tool locations. Empty entries are detected.
type Tools struct {
	MSBuild string `koanf:"msbuild" toml:"msbuild"`
	Devenv  string `koanf:"devenv" toml:"devenv"`
	Dotnet  string `koanf:"dotnet" toml:"dotnet"`
}

// Toolbox runs actions and replay commands through a Runner
type Toolbox struct {
	runner   Runner
	tools    Tools
	logger   zerolog.Logger
	getenv   func(string) string
	exists   func(string) bool
	lookPath func(string) (string, error)
}

// NewToolbox creates a toolbox using runner and the configured tool paths
func NewToolbox(runner Runner, tools Tools) *Toolbox {
	return &Toolbox{
		runner:   runner,
		tools:    tools,
		logger:   logging.GetLogger("executor.tools"),
		getenv:   os.Getenv,
		exists:   fileExists,
		lookPath: exec.LookPath,
	}
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// RunCmd runs a cmd action through the shell. The working directory is the
// action's cwd or else root. The exit code must match the expectation.
func (t *Toolbox) RunCmd(ctx context.Context, opts *types.CmdOptions, root string) error {
	dir := opts.Cwd
	if dir == "" {
		dir = root
	}

	path := ExpandEnv(opts.Path)
	res, err := t.runner.Run(ctx, Process{
		Path:    path,
		Args:    opts.Args,
		Dir:     dir,
		Shell:   true,
		Verbose: opts.Verbose,
	})
	if err != nil {
		return err
	}

	if !opts.ExpectExitCode.Accepts(res.ExitCode) {
		return toolFailure("cmd", res, firstNonEmpty(res.Stderr, exitedWith(res.ExitCode)))
	}
	return nil
}

// RunCommand runs a replay-time command. Any diagnostic output fails the
// command even when it exits with zero. Relative cwd values resolve against
// base.
func (t *Toolbox) RunCommand(ctx context.Context, spec types.CommandSpec, base string) error {
	dir := base
	if spec.Cwd != "" {
		dir = spec.Cwd
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(base, dir)
		}
	}

	res, err := t.runner.Run(ctx, Process{
		Path:  ExpandEnv(spec.Path),
		Args:  spec.Args,
		Dir:   dir,
		Shell: true,
	})
	if err != nil {
		return err
	}

	if res.Stderr != "" {
		return toolFailure("cmd", res, res.Stderr)
	}
	if res.ExitCode != 0 {
		return toolFailure("cmd", res, exitedWith(res.ExitCode))
	}
	return nil
}

// RunMSBuild builds a solution with msbuild
func (t *Toolbox) RunMSBuild(ctx context.Context, opts *types.MSBuildOptions, root string) error {
	tool, err := t.locate("msbuild", t.tools.MSBuild, msbuildCandidates(t.programFiles()))
	if err != nil {
		return err
	}

	res, err := t.runner.Run(ctx, Process{
		Path:    tool,
		Args:    MSBuildArgs(opts),
		Dir:     root,
		Verbose: opts.Verbose,
	})
	if err != nil {
		return err
	}

	if msg := classifyMSBuild(res); msg != "" {
		return toolFailure("msbuild", res, msg)
	}
	return nil
}

// RunDevenv runs a Visual Studio devenv action on a solution
func (t *Toolbox) RunDevenv(ctx context.Context, opts *types.DevenvOptions, root string) error {
	tool, err := t.locate("devenv", t.tools.Devenv, devenvCandidates(t.programFiles()))
	if err != nil {
		return err
	}

	res, err := t.runner.Run(ctx, Process{
		Path:    tool,
		Args:    DevenvArgs(opts),
		Dir:     root,
		Verbose: opts.Verbose,
	})
	if err != nil {
		return err
	}

	if msg := classifyDevenv(res); msg != "" {
		return toolFailure("devenv", res, msg)
	}
	return nil
}

// RunDotnet runs a dotnet CLI command
func (t *Toolbox) RunDotnet(ctx context.Context, opts *types.DotnetOptions, root string) error {
	tool, err := t.locate("dotnet", t.tools.Dotnet, dotnetCandidates(t.programFiles()))
	if err != nil {
		return err
	}

	res, err := t.runner.Run(ctx, Process{
		Path:    tool,
		Args:    DotnetArgs(opts),
		Dir:     root,
		Verbose: opts.Verbose,
	})
	if err != nil {
		return err
	}

	if msg := classifyDotnet(res); msg != "" {
		return toolFailure("dotnet", res, msg)
	}
	return nil
}

// MSBuildArgs builds the msbuild command line: solution, /t:targets, /p:props
func MSBuildArgs(opts *types.MSBuildOptions) []string {
	args := []string{opts.Solution}
	if len(opts.Target) > 0 {
		args = append(args, "/t:"+strings.Join(opts.Target, ";"))
	}
	for _, p := range types.SortedProps(opts.Props) {
		args = append(args, "/p:"+p)
	}
	return args
}

// DevenvArgs builds the devenv command line
func DevenvArgs(opts *types.DevenvOptions) []string {
	args := []string{opts.Solution, "/" + opts.Action}
	if opts.Configuration != "" {
		args = append(args, opts.Configuration)
	}
	if opts.Project != "" {
		args = append(args, "/Project", fmt.Sprintf("%q", opts.Project))
	}
	if opts.ProjectConfiguration != "" {
		args = append(args, "/ProjectConfig", opts.ProjectConfiguration)
	}
	return args
}

// DotnetArgs builds the dotnet command line: command, args, /p:props
func DotnetArgs(opts *types.DotnetOptions) []string {
	args := []string{opts.Command}
	args = append(args, opts.Args...)
	for _, p := range types.SortedProps(opts.Props) {
		args = append(args, "/p:"+p)
	}
	return args
}

func toolFailure(tool string, res Result, msg string) error {
	return errors.New(errors.ErrToolExecute, msg).
		WithDetail("tool", tool).
		WithDetail("exitCode", res.ExitCode)
}

func exitedWith(code int) string {
	return fmt.Sprintf("exited with code %d", code)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
