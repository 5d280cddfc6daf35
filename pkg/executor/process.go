package executor

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strings"

	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/arthur-debert/deltapack/pkg/logging"
	"github.com/rs/zerolog"
)

// Process describes one external process invocation
type Process struct {
	Path string
	Args []string
	Dir  string
	// Shell runs Path and Args as one command line through the platform shell
	Shell bool
	// Verbose streams the output to the process streams while capturing it
	Verbose bool
}

// Result is the outcome of a process that ran to completion
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner starts processes. An error means the process could not run at
// all; a non-zero exit is reported through Result.
type Runner interface {
	Run(ctx context.Context, p Process) (Result, error)
}

// ExecRunner implements Runner with os/exec
type ExecRunner struct {
	logger zerolog.Logger
	stdout io.Writer
	stderr io.Writer
}

// NewExecRunner creates a runner streaming verbose output to os.Stdout and
// os.Stderr
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		logger: logging.GetLogger("executor.process"),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// WithStreams returns a copy of the runner streaming verbose output to the
// given writers
func (r *ExecRunner) WithStreams(stdout, stderr io.Writer) *ExecRunner {
	c := *r
	c.stdout, c.stderr = stdout, stderr
	return &c
}

// Run executes p and waits for it to exit
func (r *ExecRunner) Run(ctx context.Context, p Process) (Result, error) {
	name, args := p.Path, p.Args
	if p.Shell {
		name, args = shellCommand(p.Path, p.Args)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = p.Dir
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if p.Verbose {
		cmd.Stdout = io.MultiWriter(&stdout, r.stdout)
		cmd.Stderr = io.MultiWriter(&stderr, r.stderr)
	}

	r.logger.Debug().
		Str("command", name).
		Strs("args", args).
		Str("workingDir", p.Dir).
		Msg("Running process")

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
			r.logger.Debug().
				Str("command", name).
				Int("exitCode", res.ExitCode).
				Str("stderr", res.Stderr).
				Msg("Process exited with non-zero code")
			return res, nil
		}

		msg := "failed to start " + p.Path
		if res.Stderr != "" {
			msg += "\n" + res.Stderr
		}
		return res, errors.Wrap(err, errors.ErrToolExecute, msg).
			WithDetail("command", p.Path)
	}

	return res, nil
}

func shellCommand(path string, args []string) (string, []string) {
	line := strings.Join(append([]string{path}, args...), " ")
	if runtime.GOOS == "windows" {
		return "cmd.exe", []string{"/d", "/s", "/c", line}
	}
	return "/bin/sh", []string{"-c", line}
}

var envToken = regexp.MustCompile(`%([^%]+)%`)

// ExpandEnv replaces %NAME% tokens with environment values. Tokens naming
// unset variables are left as they are.
func ExpandEnv(s string) string {
	return envToken.ReplaceAllStringFunc(s, func(tok string) string {
		name := tok[1 : len(tok)-1]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return tok
	})
}
