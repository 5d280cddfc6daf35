// Package unpacker replays an unpack manifest against an output folder.
//
// The content store is extracted into a scratch directory first, then every
// step runs in manifest order. Each step, each XML action and each command
// runs up to its retry count. Failed intermediate attempts are only logged
// at debug level; the last failure either aborts the replay or, with
// ignoreErrors, is reported as a warning and skipped.
package unpacker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arthur-debert/deltapack/pkg/contentstore"
	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/arthur-debert/deltapack/pkg/events"
	"github.com/arthur-debert/deltapack/pkg/logging"
	"github.com/arthur-debert/deltapack/pkg/manifest"
	"github.com/arthur-debert/deltapack/pkg/paths"
	"github.com/arthur-debert/deltapack/pkg/types"
	"github.com/rs/zerolog"
)

// CommandRunner runs one replay command with the output folder as base
type CommandRunner interface {
	RunCommand(ctx context.Context, spec types.CommandSpec, base string) error
}

// Request describes one replay
type Request struct {
	Manifest    manifest.Manifest
	ArchivePath string
	Out         string
}

// Engine replays manifests
type Engine struct {
	fs         types.FS
	commands   CommandRunner
	observer   events.Observer
	scratchDir string
	logger     zerolog.Logger
}

// New creates a replay engine. Scratch directories are created under
// scratchDir, or the system temp dir when empty.
func New(fsys types.FS, commands CommandRunner, observer events.Observer, scratchDir string) *Engine {
	if observer == nil {
		observer = events.Discard
	}
	return &Engine{
		fs:         fsys,
		commands:   commands,
		observer:   observer,
		scratchDir: scratchDir,
		logger:     logging.GetLogger("unpacker"),
	}
}

// Unpack extracts the content store and replays every step
func (e *Engine) Unpack(ctx context.Context, req Request) error {
	done := logging.LogOperationStart(e.logger, "unpack")
	defer done()

	scratch, err := os.MkdirTemp(e.scratchDir, "deltapack-unpack-*")
	if err != nil {
		return errors.Wrap(err, errors.ErrDirCreate, "failed to create scratch directory")
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			e.logger.Warn().Err(err).Str("scratch", scratch).Msg("Failed to remove scratch directory")
		}
	}()

	if err := e.extract(req.ArchivePath, scratch); err != nil {
		return err
	}

	if err := os.MkdirAll(req.Out, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "failed to create output folder %s", req.Out)
	}

	for i, step := range req.Manifest {
		if err := ctx.Err(); err != nil {
			return err
		}
		desc := fmt.Sprintf("step %d (%s)", i, step.Type())
		err := e.attempt(desc, step.StepPolicy(), func() error {
			return e.replay(ctx, step, scratch, req.Out)
		})
		if err != nil {
			return err
		}
	}

	e.logger.Info().
		Str("out", req.Out).
		Int("steps", len(req.Manifest)).
		Msg("Manifest replayed")
	return nil
}

func (e *Engine) extract(archivePath, scratch string) error {
	empty, err := contentstore.Empty(archivePath)
	if err != nil {
		return err
	}
	if empty {
		e.logger.Debug().Str("archive", archivePath).Msg("Content store is empty")
		return nil
	}
	_, err = contentstore.Extract(archivePath, scratch)
	return err
}

// attempt runs fn up to the policy's attempt count
func (e *Engine) attempt(desc string, policy types.Policy, fn func() error) error {
	attempts := policy.Attempts()

	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts {
			e.logger.Debug().Err(err).Str("step", desc).Int("attempt", i).Int("of", attempts).Msg("Attempt failed, retrying")
		}
	}

	if policy.IgnoreErrors {
		msg := fmt.Sprintf("Ignoring failed %s after %d attempt(s): %v", desc, attempts, err)
		e.logger.Warn().Err(err).Str("step", desc).Int("attempts", attempts).Msg("Step failed, ignoring")
		e.observer.Notify(events.Event{Kind: events.Warning, Message: msg})
		return nil
	}

	e.logger.Error().Err(err).Str("step", desc).Int("attempts", attempts).Msg("Step failed")
	return errors.Wrapf(err, errors.ErrReplayStep, "%s failed", desc).
		WithDetail("attempts", attempts)
}

func (e *Engine) replay(ctx context.Context, step manifest.Step, scratch, out string) error {
	switch s := step.(type) {
	case *manifest.Copy:
		return e.copy(s, scratch, out)
	case *manifest.Delete:
		return e.delete(s, out)
	case *manifest.Sync:
		return e.sync(s, scratch, out)
	case *manifest.Xml:
		return e.xml(s, out)
	case *manifest.Cmd:
		return e.cmd(ctx, s, out)
	default:
		return errors.Newf(errors.ErrReplayStep, "Unsupported unpack rule type %q", step.Type())
	}
}

func under(dir, rel string) string {
	return filepath.Join(dir, filepath.FromSlash(paths.CleanRel(rel)))
}
