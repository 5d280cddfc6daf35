// Package conditions evaluates rule and action conditions and resolves
// package variables into a flat environment.
package conditions

import (
	"context"

	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/arthur-debert/deltapack/pkg/gitdiff"
	"github.com/arthur-debert/deltapack/pkg/logging"
	"github.com/arthur-debert/deltapack/pkg/types"
	"github.com/rs/zerolog"
)

// DiffProbe answers git diff presence checks
type DiffProbe interface {
	HasChanges(ctx context.Context, pattern string, exclude []string) (bool, error)
}

// Evaluator evaluates conditions against an environment
type Evaluator struct {
	diff   DiffProbe
	logger zerolog.Logger
}

// New creates an evaluator. diff may be nil when no condition checks the
// git diff; such a check then fails with an error.
func New(diff DiffProbe) *Evaluator {
	return &Evaluator{
		diff:   diff,
		logger: logging.GetLogger("conditions"),
	}
}

// Evaluate returns the truth of c. A nil condition is true. And and Or
// evaluate their items left to right and stop at the first deciding item.
func (e *Evaluator) Evaluate(ctx context.Context, c types.Condition, env types.Environment) (bool, error) {
	switch cond := c.(type) {
	case nil:
		return true, nil

	case types.Literal:
		return cond.Value, nil

	case types.NameRef:
		return cond.Negate != env.Lookup(cond.Name).Truthy(), nil

	case types.And:
		result := true
		for _, item := range cond.Items {
			ok, err := e.Evaluate(ctx, item, env)
			if err != nil {
				return false, err
			}
			if !ok {
				result = false
				break
			}
		}
		return cond.Negate != result, nil

	case types.Or:
		result := false
		for _, item := range cond.Items {
			ok, err := e.Evaluate(ctx, item, env)
			if err != nil {
				return false, err
			}
			if ok {
				result = true
				break
			}
		}
		return cond.Negate != result, nil

	case types.GitDiffPresence:
		if e.diff == nil {
			return false, errors.New(errors.ErrInternal, "git_diff condition evaluated without a diff source")
		}
		found, err := e.diff.HasChanges(ctx, cond.Pattern, cond.Exclude)
		if err != nil {
			return false, err
		}
		e.logger.Debug().
			Str("pattern", cond.Pattern).
			Bool("changed", found).
			Msg("Evaluated git_diff condition")
		return found, nil
	}

	return false, errors.Newf(errors.ErrConfigInvalid, "unsupported condition %T", c)
}

// Resolve turns definitions into an environment, in order. A condition sees
// the variables defined before it.
func (e *Evaluator) Resolve(ctx context.Context, vars types.Variables) (types.Environment, error) {
	env := make(types.Environment, len(vars))
	for _, v := range vars {
		if v.Def.Condition == nil {
			env[v.Name] = v.Def.Value
			continue
		}

		ok, err := e.Evaluate(ctx, v.Def.Condition, env)
		if err != nil {
			return nil, errors.Wrapf(err, errors.GetErrorCode(err), "failed to resolve variable %s", v.Name)
		}
		env[v.Name] = types.BoolValue(ok)
	}
	return env, nil
}

// Changes is the part of gitdiff.Source a RepoDiff needs
type Changes interface {
	Changes(ctx context.Context, base, target, root string, f gitdiff.Filter) ([]gitdiff.Change, error)
}

// RepoDiff checks presence against one (base, target, root) triple
type RepoDiff struct {
	Source Changes
	Base   string
	Target string
	Root   string
}

// HasChanges reports whether any changed path matches pattern and no exclude
func (r RepoDiff) HasChanges(ctx context.Context, pattern string, exclude []string) (bool, error) {
	changes, err := r.Source.Changes(ctx, r.Base, r.Target, r.Root, gitdiff.Filter{Pattern: pattern, Exclude: exclude})
	if err != nil {
		return false, err
	}
	return len(changes) > 0, nil
}
