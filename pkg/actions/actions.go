// Package actions runs the pre-pack actions of a package in order.
package actions

import (
	"context"

	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/arthur-debert/deltapack/pkg/events"
	"github.com/arthur-debert/deltapack/pkg/logging"
	"github.com/arthur-debert/deltapack/pkg/types"
	"github.com/rs/zerolog"
)

// ToolRunner is the part of executor.Toolbox the executor dispatches to
type ToolRunner interface {
	RunCmd(ctx context.Context, opts *types.CmdOptions, root string) error
	RunMSBuild(ctx context.Context, opts *types.MSBuildOptions, root string) error
	RunDevenv(ctx context.Context, opts *types.DevenvOptions, root string) error
	RunDotnet(ctx context.Context, opts *types.DotnetOptions, root string) error
}

// ConditionEvaluator decides whether a conditional action runs
type ConditionEvaluator interface {
	Evaluate(ctx context.Context, c types.Condition, env types.Environment) (bool, error)
}

// Executor runs actions against one package root
type Executor struct {
	tools    ToolRunner
	cond     ConditionEvaluator
	observer events.Observer
	logger   zerolog.Logger
}

// New creates an executor
func New(tools ToolRunner, cond ConditionEvaluator, observer events.Observer) *Executor {
	if observer == nil {
		observer = events.Discard
	}
	return &Executor{
		tools:    tools,
		cond:     cond,
		observer: observer,
		logger:   logging.GetLogger("actions"),
	}
}

// Run executes the actions of pkg in order. The first failing action stops
// the run.
func (e *Executor) Run(ctx context.Context, pkg string, actions []types.ActionDef, env types.Environment, root string) error {
	for i := range actions {
		action := &actions[i]
		e.observer.Notify(events.Event{Kind: events.Action, Package: pkg, Action: action})

		if action.Condition != nil {
			ok, err := e.cond.Evaluate(ctx, action.Condition, env)
			if err != nil {
				return errors.Wrapf(err, errors.GetErrorCode(err), "failed to evaluate condition of action %d", i)
			}
			if !ok {
				e.logger.Debug().Str("package", pkg).Int("action", i).Msg("Action skipped")
				e.observer.Notify(events.Event{Kind: events.ActionSkip, Package: pkg, Action: action})
				continue
			}
		}

		e.observer.Notify(events.Event{Kind: events.ActionStart, Package: pkg, Action: action})
		done := logging.LogOperationStart(e.logger, "action "+string(action.Type))
		err := e.dispatch(ctx, action, root)
		done()
		if err != nil {
			e.logger.Error().Err(err).Str("package", pkg).Str("type", string(action.Type)).Msg("Action failed")
			return err
		}
	}
	return nil
}

func (e *Executor) dispatch(ctx context.Context, action *types.ActionDef, root string) error {
	switch opts := action.Options.(type) {
	case *types.CmdOptions:
		return e.tools.RunCmd(ctx, opts, root)
	case *types.MSBuildOptions:
		return e.tools.RunMSBuild(ctx, opts, root)
	case *types.DevenvOptions:
		return e.tools.RunDevenv(ctx, opts, root)
	case *types.DotnetOptions:
		return e.tools.RunDotnet(ctx, opts, root)
	default:
		return errors.Newf(errors.ErrUnsupportedAction, "Unsupported action type %s", action.Type)
	}
}
