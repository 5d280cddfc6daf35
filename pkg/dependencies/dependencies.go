// Package dependencies flattens a package definition and its imports into
// the variables, actions and rules one package run executes.
package dependencies

import (
	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/arthur-debert/deltapack/pkg/events"
	"github.com/arthur-debert/deltapack/pkg/logging"
	"github.com/arthur-debert/deltapack/pkg/types"
	"github.com/rs/zerolog"
)

// Resolved is a definition merged with everything it imports
type Resolved struct {
	// ExecuteOnce lists imported execute-once packages, deferred rather than
	// merged, in discovery order
	ExecuteOnce []string
	Variables   types.Variables
	Actions     []types.ActionDef
	Rules       []types.PackageRule
}

// Resolver looks imports up in the full definition list
type Resolver struct {
	defs     map[string]*types.PackageDefinition
	observer events.Observer
	logger   zerolog.Logger
}

// New creates a resolver over defs. Warnings about missing imports go to
// observer.
func New(defs []types.PackageDefinition, observer events.Observer) *Resolver {
	if observer == nil {
		observer = events.Discard
	}
	byName := make(map[string]*types.PackageDefinition, len(defs))
	for i := range defs {
		byName[defs[i].Name] = &defs[i]
	}
	return &Resolver{
		defs:     byName,
		observer: observer,
		logger:   logging.GetLogger("dependencies"),
	}
}

// Lookup returns the definition with the given name
func (r *Resolver) Lookup(name string) (*types.PackageDefinition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Resolve merges def with its imports. Imported actions and rules come
// first, in import order; the definition's own variables win.
func (r *Resolver) Resolve(def *types.PackageDefinition) (Resolved, error) {
	return r.resolve(def, map[string]bool{})
}

func (r *Resolver) resolve(def *types.PackageDefinition, resolving map[string]bool) (Resolved, error) {
	if resolving[def.Name] {
		return Resolved{}, errors.Newf(errors.ErrCircularDependency, "Circular dependency detected in package %s", def.Name).
			WithDetail("package", def.Name)
	}
	resolving[def.Name] = true
	defer delete(resolving, def.Name)

	var merged Resolved

	for _, name := range def.Import {
		imported, ok := r.defs[name]
		if !ok {
			msg := "Package " + def.Name + " imports " + name + " which is not defined. Skipping."
			r.logger.Warn().Str("package", def.Name).Str("import", name).Msg("Missing import")
			r.observer.Notify(events.Event{Kind: events.Warning, Package: def.Name, Message: msg})
			continue
		}

		if imported.ExecuteOnce {
			merged.ExecuteOnce = appendUnique(merged.ExecuteOnce, name)
			continue
		}

		sub, err := r.resolve(imported, resolving)
		if err != nil {
			return Resolved{}, err
		}

		merged.ExecuteOnce = appendUnique(merged.ExecuteOnce, sub.ExecuteOnce...)
		merged.Variables = merged.Variables.Overlay(sub.Variables)
		merged.Actions = append(merged.Actions, sub.Actions...)
		merged.Rules = append(merged.Rules, sub.Rules...)
	}

	merged.Variables = merged.Variables.Overlay(def.Variables)
	merged.Actions = append(merged.Actions, def.Actions...)
	merged.Rules = append(merged.Rules, def.Package...)

	r.logger.Debug().
		Str("package", def.Name).
		Int("actions", len(merged.Actions)).
		Int("rules", len(merged.Rules)).
		Strs("executeOnce", merged.ExecuteOnce).
		Msg("Resolved package dependencies")

	return merged, nil
}

func appendUnique(list []string, names ...string) []string {
	for _, name := range names {
		found := false
		for _, existing := range list {
			if existing == name {
				found = true
				break
			}
		}
		if !found {
			list = append(list, name)
		}
	}
	return list
}
