package list

import (
	"github.com/arthur-debert/deltapack/pkg/definitions"
	"github.com/arthur-debert/deltapack/pkg/filesystem"
	"github.com/arthur-debert/deltapack/pkg/logging"
)

// ListOptions defines the options for the List command.
type ListOptions struct {
	Config string
}

// DefinitionInfo summarizes one package definition
type DefinitionInfo struct {
	Name        string
	Imports     []string
	AutoPack    bool
	ExecuteOnce bool
	Actions     int
	Rules       int
}

// ListResult holds the definitions in document order
type ListResult struct {
	Definitions []DefinitionInfo
}

// List reports the definitions of a configuration document
func List(opts ListOptions) (*ListResult, error) {
	log := logging.GetLogger("commands.list")
	log.Debug().Str("command", "List").Msg("Executing command")

	defs, err := definitions.Load(filesystem.NewOS(), opts.Config)
	if err != nil {
		return nil, err
	}

	result := &ListResult{Definitions: make([]DefinitionInfo, len(defs))}
	for i, d := range defs {
		result.Definitions[i] = DefinitionInfo{
			Name:        d.Name,
			Imports:     d.Import,
			AutoPack:    d.AutoPacked(),
			ExecuteOnce: d.ExecuteOnce,
			Actions:     len(d.Actions),
			Rules:       len(d.Package),
		}
	}

	log.Info().Str("command", "List").Int("definitionCount", len(result.Definitions)).Msg("Command finished")
	return result, nil
}
