package pack

import (
	"context"
	"path/filepath"

	"github.com/arthur-debert/deltapack/pkg/actions"
	"github.com/arthur-debert/deltapack/pkg/conditions"
	"github.com/arthur-debert/deltapack/pkg/definitions"
	"github.com/arthur-debert/deltapack/pkg/dependencies"
	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/arthur-debert/deltapack/pkg/events"
	"github.com/arthur-debert/deltapack/pkg/executor"
	"github.com/arthur-debert/deltapack/pkg/filesystem"
	"github.com/arthur-debert/deltapack/pkg/gitdiff"
	"github.com/arthur-debert/deltapack/pkg/logging"
	"github.com/arthur-debert/deltapack/pkg/packer"
	"github.com/arthur-debert/deltapack/pkg/paths"
	"github.com/arthur-debert/deltapack/pkg/types"
	"github.com/rs/zerolog"
)

// Progress receives engine events plus the start of every package
type Progress interface {
	events.Observer
	Package(name string)
}

// PackOptions defines the options for the Pack command.
type PackOptions struct {
	// Config is the configuration document listing package definitions
	Config string
	// Root is the folder package rules read from
	Root string
	// Out receives <name>.zip and <name>.json per packed definition
	Out string
	// GitFrom and GitTo are the revisions git_diff rules compare
	GitFrom   string
	GitTo     string
	GitBinary string
	// Only restricts the run to these definitions. Empty packs every
	// auto-packed definition.
	Only []string
	// Clean empties Out before packing
	Clean bool
	Tools executor.Tools

	// Runner starts external processes; defaults to executor.NewExecRunner
	Runner   executor.Runner
	Progress Progress
}

// PackResult lists the packages written, in run order
type PackResult struct {
	Packages []PackageResult
}

// PackageResult describes one packed definition
type PackageResult struct {
	Name string
	packer.Result
}

type run struct {
	opts     PackOptions
	fs       types.FS
	resolver *dependencies.Resolver
	source   *gitdiff.Source
	tools    *executor.Toolbox
	progress Progress
	logger   zerolog.Logger

	// executed spans the whole run; running holds the current chain
	executed map[string]bool
	running  map[string]bool
	result   *PackResult
}

// Pack loads the configuration document and packs its definitions
func Pack(ctx context.Context, opts PackOptions) (*PackResult, error) {
	logger := logging.GetLogger("commands.pack")
	logger.Debug().Str("command", "Pack").Str("config", opts.Config).Msg("Executing command")

	fsys := filesystem.NewOS()
	defs, err := definitions.Load(fsys, opts.Config)
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "invalid root folder %s", opts.Root)
	}
	out, err := filepath.Abs(opts.Out)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "invalid output folder %s", opts.Out)
	}
	opts.Root, opts.Out = root, out

	selected, err := selectDefinitions(defs, opts.Only)
	if err != nil {
		return nil, err
	}

	if opts.Clean {
		if err := emptyDir(fsys, out); err != nil {
			return nil, err
		}
	}
	if err := fsys.MkdirAll(out, 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrDirCreate, "failed to create output folder %s", out)
	}

	runner := opts.Runner
	if runner == nil {
		runner = executor.NewExecRunner()
	}
	progress := opts.Progress
	if progress == nil {
		progress = silent{}
	}

	r := &run{
		opts:     opts,
		fs:       fsys,
		resolver: dependencies.New(defs, progress),
		source:   gitdiff.NewSource(opts.GitBinary, runner, paths.NewCaseProbe()),
		tools:    executor.NewToolbox(runner, opts.Tools),
		progress: progress,
		logger:   logger,
		executed: map[string]bool{},
		running:  map[string]bool{},
		result:   &PackResult{},
	}

	for _, name := range selected {
		if r.executed[name] {
			logger.Debug().Str("package", name).Msg("Already executed in this run")
			continue
		}
		def, _ := r.resolver.Lookup(name)
		if err := r.pack(ctx, def); err != nil {
			return r.result, err
		}
	}

	logger.Info().Str("command", "Pack").Int("packages", len(r.result.Packages)).Msg("Command finished")
	return r.result, nil
}

// pack runs one definition after the execute-once packages it imports
func (r *run) pack(ctx context.Context, def *types.PackageDefinition) error {
	r.executed[def.Name] = true
	r.running[def.Name] = true
	defer delete(r.running, def.Name)

	logger := logging.ForPackage(r.logger, def.Name)
	done := logging.LogOperationStart(logger, "pack")
	defer done()

	resolved, err := r.resolver.Resolve(def)
	if err != nil {
		return err
	}

	for _, name := range resolved.ExecuteOnce {
		if r.running[name] {
			msg := "Package " + name + " executes itself through its imports. Skipping."
			logger.Warn().Str("import", name).Msg("Recursive execution")
			r.progress.Notify(events.Event{Kind: events.Warning, Package: def.Name, Message: msg})
			continue
		}
		if r.executed[name] {
			continue
		}
		dep, _ := r.resolver.Lookup(name)
		if err := r.pack(ctx, dep); err != nil {
			return err
		}
	}

	r.progress.Package(def.Name)

	cond := conditions.New(conditions.RepoDiff{
		Source: r.source,
		Base:   r.opts.GitFrom,
		Target: r.opts.GitTo,
		Root:   r.opts.Root,
	})

	env, err := cond.Resolve(ctx, resolved.Variables)
	if err != nil {
		return errors.Wrapf(err, errors.GetErrorCode(err), "package %s", def.Name)
	}

	if err := actions.New(r.tools, cond, r.progress).Run(ctx, def.Name, resolved.Actions, env, r.opts.Root); err != nil {
		return err
	}

	res, err := packer.New(r.fs, r.source, cond, r.progress).Pack(ctx, packer.Request{
		Name:      def.Name,
		Root:      r.opts.Root,
		Out:       r.opts.Out,
		GitBase:   r.opts.GitFrom,
		GitTarget: r.opts.GitTo,
		Rules:     resolved.Rules,
		Env:       env,
	})
	if err != nil {
		return err
	}

	logger.Info().Int("steps", len(res.Manifest)).Msg("Package written")
	r.result.Packages = append(r.result.Packages, PackageResult{Name: def.Name, Result: res})
	return nil
}

// selectDefinitions returns the names to pack in document order
func selectDefinitions(defs []types.PackageDefinition, only []string) ([]string, error) {
	wanted := make(map[string]bool, len(only))
	for _, name := range only {
		if _, ok := definitions.Find(defs, name); !ok {
			return nil, errors.Newf(errors.ErrInvalidInput, "unknown package %s", name).WithDetail("package", name)
		}
		wanted[name] = true
	}

	var names []string
	for _, def := range defs {
		if len(wanted) > 0 {
			if wanted[def.Name] {
				names = append(names, def.Name)
			}
			continue
		}
		if def.AutoPacked() {
			names = append(names, def.Name)
		}
	}
	return names, nil
}

// emptyDir removes everything inside dir, keeping dir itself
func emptyDir(fsys types.FS, dir string) error {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		if _, statErr := fsys.Stat(dir); statErr != nil {
			return nil
		}
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to read output folder %s", dir)
	}
	for _, e := range entries {
		if err := fsys.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return errors.Wrapf(err, errors.ErrFileWrite, "failed to empty output folder %s", dir)
		}
	}
	return nil
}

type silent struct{}

func (silent) Notify(events.Event) {}
func (silent) Package(string)      {}
