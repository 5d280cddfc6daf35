package packer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/arthur-debert/deltapack/pkg/filesystem"
	"github.com/arthur-debert/deltapack/pkg/gitdiff"
	"github.com/arthur-debert/deltapack/pkg/manifest"
	"github.com/arthur-debert/deltapack/pkg/paths"
	"github.com/arthur-debert/deltapack/pkg/types"
	"github.com/arthur-debert/deltapack/pkg/xmlpath"
)

func (r *run) gitDiff(ctx context.Context, rule *types.PackageRule) error {
	if r.diff == nil {
		return errors.New(errors.ErrInternal, "git_diff rule without a diff source")
	}

	changes, err := r.diff.Changes(ctx, r.req.GitBase, r.req.GitTarget, r.req.Root, gitdiff.Filter{
		Pattern:   rule.Pattern,
		Exclude:   rule.PackExclude(),
		Base:      rule.Source,
		StripBase: true,
	})
	if err != nil {
		return err
	}

	for _, c := range changes {
		switch c.Status {
		case gitdiff.StatusAdded, gitdiff.StatusModified, gitdiff.StatusTypeChanged:
			if c.Path == "" {
				continue
			}
			if err := r.copyChange(rule, c.Path, c.FullPath); err != nil {
				return err
			}
		case gitdiff.StatusCopied:
			if c.ToPath == "" {
				continue
			}
			if err := r.copyChange(rule, c.ToPath, c.FullToPath); err != nil {
				return err
			}
		case gitdiff.StatusRenamed:
			if c.ToPath != "" {
				if err := r.copyChange(rule, c.ToPath, c.FullToPath); err != nil {
					return err
				}
			}
			if c.Path != "" {
				r.deleteChange(rule, c.Path)
			}
		case gitdiff.StatusDeleted:
			if c.Path != "" {
				r.deleteChange(rule, c.Path)
			}
		default:
			r.warn(fmt.Sprintf("File %s has status %s in git. This means we don't know what to do with it", c.FullPath, c.Status))
		}
	}
	return nil
}

func (r *run) copyChange(rule *types.PackageRule, rel, full string) error {
	dest := paths.JoinRel(rule.Dest, rel)
	if err := r.addFile(dest, r.sourcePath(full), rule.IgnoreDuplicates); err != nil {
		return err
	}
	r.manifest = append(r.manifest, &manifest.Copy{Path: dest, Policy: rule.Policy})
	return nil
}

func (r *run) deleteChange(rule *types.PackageRule, rel string) {
	r.manifest = append(r.manifest, &manifest.Delete{
		Path:         paths.JoinRel(rule.Dest, rel),
		SkipNotFound: rule.DeleteSkipsNotFound(),
		Policy:       rule.Policy,
	})
}

func (r *run) sync(rule *types.PackageRule) error {
	globRoot := r.sourcePath(rule.Source)
	files, err := filesystem.ListFiles(r.fs, globRoot)
	if err != nil {
		return err
	}

	exclude := rule.PackExclude()
	for _, rel := range files {
		if !paths.MatchGlob(rule.Pattern, rel) || paths.MatchAny(exclude, rel) {
			continue
		}
		source := filepath.Join(globRoot, filepath.FromSlash(rel))
		if err := r.addFile(paths.JoinRel(rule.Dest, rel), source, rule.IgnoreDuplicates); err != nil {
			return err
		}
	}

	dest := paths.CleanRel(rule.Dest)
	step, ok := r.syncs[dest]
	if !ok {
		step = &manifest.Sync{Path: dest, Exclude: []string{}, Policy: rule.Policy}
		r.syncs[dest] = step
		r.manifest = append(r.manifest, step)
	}
	if rule.Mode == types.ModePartialSync {
		step.Exclude = append(step.Exclude, "!"+rule.Pattern)
	}
	if rule.Exclude != nil {
		step.Exclude = append(step.Exclude, *rule.Exclude...)
	}
	return nil
}

func (r *run) xml(rule *types.PackageRule) error {
	file := r.sourcePath(rule.Source)
	data, err := r.fs.ReadFile(file)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileNotFound, "failed to read %s", file)
	}
	doc, err := xmlpath.ReadDocument(data)
	if err != nil {
		return errors.Wrapf(err, errors.ErrXMLParse, "failed to parse %s", file)
	}
	nodes, err := xmlpath.Get(doc, rule.SourceXMLPath)
	if err != nil {
		return err
	}

	dest := paths.CleanRel(rule.Dest)
	step, ok := r.xmls[dest]
	if !ok {
		step = &manifest.Xml{Path: dest, Actions: []manifest.XMLAction{}}
		r.xmls[dest] = step
		r.manifest = append(r.manifest, step)
	}

	if nodes == nil {
		r.warn(fmt.Sprintf("Xml at %s has no node at %s. It will be deleted in destination when unpacking.", file, rule.SourceXMLPath))
	}

	mode := manifest.XMLReplace
	if rule.Mode == types.ModeXMLInsert {
		mode = manifest.XMLInsert
	}
	if nodes == nil && mode == manifest.XMLInsert {
		return nil
	}

	action := manifest.XMLAction{Mode: mode, Path: rule.DestXMLPath, Policy: rule.Policy}
	if nodes != nil {
		text, err := xmlpath.Serialize(nodes)
		if err != nil {
			return err
		}
		action.XML = &text
	}
	step.Actions = append(step.Actions, action)
	return nil
}
