package validate

import (
	"github.com/arthur-debert/deltapack/pkg/definitions"
	"github.com/arthur-debert/deltapack/pkg/dependencies"
	"github.com/arthur-debert/deltapack/pkg/events"
	"github.com/arthur-debert/deltapack/pkg/filesystem"
	"github.com/arthur-debert/deltapack/pkg/logging"
)

// ValidateOptions defines the options for the Validate command.
type ValidateOptions struct {
	Config string
	// Observer receives warnings such as missing imports
	Observer events.Observer
}

// ValidateResult summarizes a valid configuration document
type ValidateResult struct {
	Definitions int
	Warnings    []string
}

// Validate loads the configuration document and resolves the imports of
// every definition without running anything
func Validate(opts ValidateOptions) (*ValidateResult, error) {
	log := logging.GetLogger("commands.validate")
	log.Debug().Str("command", "Validate").Str("config", opts.Config).Msg("Executing command")

	defs, err := definitions.Load(filesystem.NewOS(), opts.Config)
	if err != nil {
		return nil, err
	}

	result := &ValidateResult{Definitions: len(defs)}
	collect := events.ObserverFunc(func(e events.Event) {
		if e.Kind == events.Warning {
			result.Warnings = append(result.Warnings, e.Message)
		}
		if opts.Observer != nil {
			opts.Observer.Notify(e)
		}
	})

	resolver := dependencies.New(defs, collect)
	for i := range defs {
		if _, err := resolver.Resolve(&defs[i]); err != nil {
			return nil, err
		}
	}

	log.Info().Str("command", "Validate").Int("definitions", result.Definitions).Int("warnings", len(result.Warnings)).Msg("Command finished")
	return result, nil
}
