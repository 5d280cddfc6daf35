// Package packer interprets the packaging rules of one package. It selects
// files into a content store and records the steps that replay them on the
// destination as an unpack manifest.
//
// Rules run strictly in order. The first file stored under a destination
// path wins; later additions are reported as duplicates. Sync and Xml steps
// targeting the same destination are merged into one manifest entry.
package packer

import (
	"context"
	"os"
	"path/filepath"

	"github.com/arthur-debert/deltapack/pkg/contentstore"
	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/arthur-debert/deltapack/pkg/events"
	"github.com/arthur-debert/deltapack/pkg/filesystem"
	"github.com/arthur-debert/deltapack/pkg/gitdiff"
	"github.com/arthur-debert/deltapack/pkg/logging"
	"github.com/arthur-debert/deltapack/pkg/manifest"
	"github.com/arthur-debert/deltapack/pkg/types"
	"github.com/rs/zerolog"
)

// DiffSource lists the filtered changes between two revisions
type DiffSource interface {
	Changes(ctx context.Context, base, target, root string, f gitdiff.Filter) ([]gitdiff.Change, error)
}

// ConditionEvaluator decides whether a conditional rule applies
type ConditionEvaluator interface {
	Evaluate(ctx context.Context, c types.Condition, env types.Environment) (bool, error)
}

// Request describes one packaging run
type Request struct {
	Name      string
	Root      string
	Out       string
	GitBase   string
	GitTarget string
	Rules     []types.PackageRule
	Env       types.Environment
}

// Result describes the written artifacts
type Result struct {
	ArchivePath  string
	ManifestPath string
	Manifest     manifest.Manifest
	Files        int
}

// Engine runs packaging rules
type Engine struct {
	fs       types.FS
	diff     DiffSource
	cond     ConditionEvaluator
	observer events.Observer
	logger   zerolog.Logger
}

// New creates an engine reading the source tree through fsys
func New(fsys types.FS, diff DiffSource, cond ConditionEvaluator, observer events.Observer) *Engine {
	if observer == nil {
		observer = events.Discard
	}
	return &Engine{
		fs:       fsys,
		diff:     diff,
		cond:     cond,
		observer: observer,
		logger:   logging.GetLogger("packer"),
	}
}

// run is the state of one Pack call
type run struct {
	*Engine
	req      Request
	store    *contentstore.Store
	manifest manifest.Manifest
	syncs    map[string]*manifest.Sync
	xmls     map[string]*manifest.Xml
}

// Pack interprets req.Rules and writes <out>/<name>.zip and <out>/<name>.json
func (e *Engine) Pack(ctx context.Context, req Request) (Result, error) {
	done := logging.LogOperationStart(e.logger, "pack "+req.Name)
	defer done()

	e.observer.Notify(events.Event{Kind: events.PackStart, Package: req.Name})

	r := &run{
		Engine: e,
		req:    req,
		store:  contentstore.New(e.fs),
		syncs:  map[string]*manifest.Sync{},
		xmls:   map[string]*manifest.Xml{},
	}

	for i := range req.Rules {
		rule := &req.Rules[i]
		if rule.Condition.Present() {
			ok, err := e.cond.Evaluate(ctx, rule.Condition.Condition, req.Env)
			if err != nil {
				return Result{}, errors.Wrapf(err, errors.GetErrorCode(err), "failed to evaluate condition of rule %d", i)
			}
			if !ok {
				e.logger.Debug().Str("package", req.Name).Int("rule", i).Str("mode", string(rule.Mode)).Msg("Rule skipped")
				continue
			}
		}

		if err := r.apply(ctx, rule); err != nil {
			return Result{}, errors.Wrapf(err, errors.GetErrorCode(err), "package %s rule %d (%s)", req.Name, i, rule.Mode)
		}
	}

	if len(r.manifest) == 0 {
		e.observer.Notify(events.Event{Kind: events.PackSkip, Package: req.Name, Message: "nothing to pack"})
	}

	res, err := r.write()
	if err != nil {
		return Result{}, err
	}

	e.observer.Notify(events.Event{Kind: events.PackEnd, Package: req.Name})
	return res, nil
}

func (r *run) apply(ctx context.Context, rule *types.PackageRule) error {
	switch rule.Mode {
	case types.ModeGitDiff:
		return r.gitDiff(ctx, rule)
	case types.ModeSync, types.ModePartialSync:
		return r.sync(rule)
	case types.ModeXMLReplace, types.ModeXMLInsert:
		return r.xml(rule)
	case types.ModeCmd:
		r.manifest = append(r.manifest, &manifest.Cmd{
			Commands: append([]types.CommandSpec(nil), rule.Command...),
			Policy:   rule.Policy,
		})
		return nil
	default:
		return errors.Newf(errors.ErrUnsupportedMode, "Unsupported rule mode %q", rule.Mode)
	}
}

// addFile stores source under name unless the name is taken
func (r *run) addFile(name, source string, ignoreDuplicates bool) error {
	entry, err := r.store.Stat(name, source)
	if err != nil {
		return err
	}

	if existing, ok := r.store.Lookup(entry.Name); ok {
		if !ignoreDuplicates {
			r.logger.Debug().Str("name", entry.Name).Str("source", source).Msg("Duplicate file")
			r.observer.Notify(events.Event{
				Kind:    events.DuplicateFile,
				Package: r.req.Name,
				Duplicate: &events.Duplicate{
					Name:      entry.Name,
					Source:    existing.Source,
					Size:      existing.Size,
					NewSource: source,
					NewSize:   entry.Size,
				},
			})
		}
		return nil
	}

	r.store.Add(entry)
	return nil
}

func (r *run) warn(msg string) {
	r.logger.Warn().Str("package", r.req.Name).Msg(msg)
	r.observer.Notify(events.Event{Kind: events.Warning, Package: r.req.Name, Message: msg})
}

func (r *run) sourcePath(rel string) string {
	return filepath.Join(r.req.Root, filepath.FromSlash(rel))
}

func (r *run) write() (Result, error) {
	if err := os.MkdirAll(r.req.Out, 0755); err != nil {
		return Result{}, errors.Wrapf(err, errors.ErrDirCreate, "failed to create output folder %s", r.req.Out)
	}

	res := Result{
		ArchivePath:  filepath.Join(r.req.Out, r.req.Name+".zip"),
		ManifestPath: filepath.Join(r.req.Out, r.req.Name+".json"),
		Manifest:     r.manifest,
		Files:        r.store.Len(),
	}

	if err := r.store.WriteTo(res.ArchivePath); err != nil {
		return Result{}, err
	}

	data, err := manifest.Encode(r.manifest)
	if err != nil {
		return Result{}, err
	}
	if err := filesystem.WriteFileAtomic(res.ManifestPath, data, 0644); err != nil {
		_ = os.Remove(res.ArchivePath)
		return Result{}, err
	}

	r.logger.Info().
		Str("package", r.req.Name).
		Int("files", res.Files).
		Int("steps", len(res.Manifest)).
		Str("manifest", res.ManifestPath).
		Msg("Package written")
	return res, nil
}
