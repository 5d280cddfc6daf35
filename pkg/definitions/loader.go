package definitions

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/arthur-debert/deltapack/pkg/logging"
	"github.com/arthur-debert/deltapack/pkg/types"
	"github.com/kaptinlin/jsonschema"
	"github.com/tailscale/hujson"
)

//go:embed schema.json
var schemaDocument []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiledSchema, schemaErr = compiler.Compile(schemaDocument)
		if schemaErr != nil {
			schemaErr = errors.Wrap(schemaErr, errors.ErrInternal, "failed to compile configuration schema")
		}
	})
	return compiledSchema, schemaErr
}

// Load reads the configuration document at path. Files ending in .yaml or
// .yml are decoded as YAML, everything else as JSON.
func Load(fsys types.FS, path string) ([]types.PackageDefinition, error) {
	logger := logging.GetLogger("definitions")

	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to read configuration %s", path).
			WithDetail("path", path)
	}

	if isYAML(path) {
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, errors.Wrapf(err, errors.GetErrorCode(err), "failed to parse configuration %s", path).
				WithDetail("path", path)
		}
	}

	defs, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, errors.GetErrorCode(err), "invalid configuration %s", path).
			WithDetail("path", path)
	}

	logger.Debug().Str("path", path).Int("definitions", len(defs)).Msg("Configuration loaded")
	return defs, nil
}

// Parse validates and decodes a JSON configuration document. Comments and
// trailing commas are accepted.
func Parse(data []byte) ([]types.PackageDefinition, error) {
	data, err := hujson.Standardize(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "configuration is not valid JSON")
	}

	if err := Validate(data); err != nil {
		return nil, err
	}

	var defs []types.PackageDefinition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, errors.Wrap(err, codeOf(err, errors.ErrConfigParse), "failed to decode configuration")
	}

	seen := make(map[string]int, len(defs))
	for i, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if first, ok := seen[def.Name]; ok {
			return nil, errors.Newf(errors.ErrConfigInvalid, "duplicate package definition %q (entries %d and %d)", def.Name, first, i).
				WithDetail("name", def.Name)
		}
		seen[def.Name] = i
	}

	return defs, nil
}

// Validate checks a JSON configuration document against the embedded schema
func Validate(data []byte) error {
	s, err := schema()
	if err != nil {
		return err
	}

	result := s.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}

	keys := make([]string, 0, len(result.Errors))
	for k := range result.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	problems := make([]string, 0, len(keys))
	for _, k := range keys {
		problems = append(problems, fmt.Sprintf("%s: %v", k, result.Errors[k]))
	}
	return errors.Newf(errors.ErrConfigInvalid, "configuration does not match the schema: %s", strings.Join(problems, "; ")).
		WithDetail("problems", problems)
}

// Find returns the definition with the given name
func Find(defs []types.PackageDefinition, name string) (types.PackageDefinition, bool) {
	for _, d := range defs {
		if d.Name == name {
			return d, true
		}
	}
	return types.PackageDefinition{}, false
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// codeOf keeps the code of structured errors surfaced through encoding/json
func codeOf(err error, fallback errors.ErrorCode) errors.ErrorCode {
	if code := errors.GetErrorCode(err); code != errors.ErrUnknown {
		return code
	}
	return fallback
}
