package unpacker

import (
	"context"
	"fmt"
	"os"

	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/arthur-debert/deltapack/pkg/manifest"
	"github.com/arthur-debert/deltapack/pkg/mirror"
	"github.com/arthur-debert/deltapack/pkg/xmlpath"
	"github.com/beevik/etree"
)

func (e *Engine) copy(s *manifest.Copy, scratch, out string) error {
	return mirror.CopyFile(e.fs, under(scratch, s.Path), under(out, s.Path))
}

func (e *Engine) delete(s *manifest.Delete, out string) error {
	target := under(out, s.Path)
	if _, err := e.fs.Lstat(target); err != nil {
		if os.IsNotExist(err) {
			if s.SkipNotFound {
				return nil
			}
			return errors.Wrapf(err, errors.ErrFileNotFound, "cannot delete %s", s.Path)
		}
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to stat %s", target)
	}
	if err := e.fs.RemoveAll(target); err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to delete %s", target)
	}
	return nil
}

func (e *Engine) sync(s *manifest.Sync, scratch, out string) error {
	_, err := mirror.Mirror(e.fs, under(scratch, s.Path), under(out, s.Path), s.Exclude)
	return err
}

// xml loads the destination document once, applies each action under its
// own policy and writes the document once
func (e *Engine) xml(s *manifest.Xml, out string) error {
	file := under(out, s.Path)
	data, err := e.fs.ReadFile(file)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileNotFound, "failed to read %s", file)
	}
	doc, err := xmlpath.ReadDocument(data)
	if err != nil {
		return errors.Wrapf(err, errors.ErrXMLParse, "failed to parse %s", file)
	}

	for i := range s.Actions {
		action := s.Actions[i]
		desc := fmt.Sprintf("xml action %d (%s %s) on %s", i, action.Mode, action.Path, s.Path)
		if err := e.attempt(desc, action.Policy, func() error {
			return applyXML(doc, action)
		}); err != nil {
			return err
		}
	}

	patched, err := xmlpath.WriteDocument(doc)
	if err != nil {
		return err
	}
	info, err := e.fs.Stat(file)
	mode := os.FileMode(0644)
	if err == nil {
		mode = info.Mode().Perm()
	}
	if err := e.fs.WriteFile(file, patched, mode); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to write %s", file)
	}
	return nil
}

func applyXML(doc *etree.Document, action manifest.XMLAction) error {
	if action.XML == nil {
		if action.Mode == manifest.XMLInsert {
			return nil
		}
		return xmlpath.Delete(doc, action.Path)
	}

	fragment, err := xmlpath.ParseFragment(*action.XML)
	if err != nil {
		return err
	}
	switch action.Mode {
	case manifest.XMLReplace:
		return xmlpath.Replace(doc, action.Path, fragment)
	case manifest.XMLInsert:
		return xmlpath.Insert(doc, action.Path, fragment)
	default:
		return errors.Newf(errors.ErrUnsupportedMode, "Unsupported xml action mode %q", action.Mode)
	}
}

// cmd runs each command in order under its own policy. It is itself
// retried under the step policy, which restarts from the first command.
func (e *Engine) cmd(ctx context.Context, s *manifest.Cmd, out string) error {
	if e.commands == nil {
		return errors.New(errors.ErrInternal, "cmd step without a command runner")
	}
	for i, spec := range s.Commands {
		spec := spec
		desc := fmt.Sprintf("command %d (%s)", i, spec.Path)
		if err := e.attempt(desc, spec.Policy, func() error {
			return e.commands.RunCommand(ctx, spec, out)
		}); err != nil {
			return err
		}
	}
	return nil
}
