package unpack

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/arthur-debert/deltapack/pkg/events"
	"github.com/arthur-debert/deltapack/pkg/executor"
	"github.com/arthur-debert/deltapack/pkg/filesystem"
	"github.com/arthur-debert/deltapack/pkg/logging"
	"github.com/arthur-debert/deltapack/pkg/manifest"
	"github.com/arthur-debert/deltapack/pkg/types"
	"github.com/arthur-debert/deltapack/pkg/unpacker"
)

// UnpackOptions defines the options for the Unpack command.
type UnpackOptions struct {
	// Manifest is the <name>.json written by pack. The .json suffix may be
	// left out.
	Manifest string
	// Out is the folder the manifest is replayed against
	Out string
	// ScratchDir is the parent of the extraction directory; empty means the
	// system temp dir
	ScratchDir string
	Tools      executor.Tools

	Runner   executor.Runner
	Observer events.Observer
}

// UnpackResult describes a finished replay
type UnpackResult struct {
	ManifestPath string
	ArchivePath  string
	Steps        int
}

// Unpack replays a manifest and its content store into Out
func Unpack(ctx context.Context, opts UnpackOptions) (*UnpackResult, error) {
	logger := logging.GetLogger("commands.unpack")
	logger.Debug().Str("command", "Unpack").Str("manifest", opts.Manifest).Msg("Executing command")

	fsys := filesystem.NewOS()

	manifestPath, err := ResolveManifest(fsys, opts.Manifest)
	if err != nil {
		return nil, err
	}

	data, err := fsys.ReadFile(manifestPath)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to read manifest %s", manifestPath)
	}
	m, err := manifest.Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, errors.GetErrorCode(err), "invalid manifest %s", manifestPath)
	}

	out, err := filepath.Abs(opts.Out)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "invalid output folder %s", opts.Out)
	}
	if err := fsys.MkdirAll(out, 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrDirCreate, "failed to create output folder %s", out)
	}

	runner := opts.Runner
	if runner == nil {
		runner = executor.NewExecRunner()
	}

	result := &UnpackResult{
		ManifestPath: manifestPath,
		ArchivePath:  ArchivePath(manifestPath),
		Steps:        len(m),
	}

	engine := unpacker.New(fsys, executor.NewToolbox(runner, opts.Tools), opts.Observer, opts.ScratchDir)
	if err := engine.Unpack(ctx, unpacker.Request{Manifest: m, ArchivePath: result.ArchivePath, Out: out}); err != nil {
		return nil, err
	}

	logger.Info().Str("command", "Unpack").Int("steps", result.Steps).Msg("Command finished")
	return result, nil
}

// ResolveManifest returns path, or path + ".json" when only that exists
func ResolveManifest(fsys types.FS, path string) (string, error) {
	if _, err := fsys.Stat(path); err == nil {
		return path, nil
	}
	if _, err := fsys.Stat(path + ".json"); err == nil {
		return path + ".json", nil
	}
	return "", errors.Newf(errors.ErrFileNotFound, "manifest %s not found", path).WithDetail("path", path)
}

// ArchivePath returns the content store next to a manifest: the manifest
// path with its extension replaced by .zip
func ArchivePath(manifestPath string) string {
	base := filepath.Base(manifestPath)
	return filepath.Join(filepath.Dir(manifestPath), strings.TrimSuffix(base, filepath.Ext(base))+".zip")
}
