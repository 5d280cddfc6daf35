package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/arthur-debert/deltapack/pkg/executor"
	"github.com/arthur-debert/deltapack/pkg/logging"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable read as a setting
const EnvPrefix = "DELTAPACK_"

//go:embed embedded/defaults.toml
var defaultConfig []byte

// FileNames are the settings files looked up in the working directory, in
// order. The first one found is loaded.
var FileNames = []string{".deltapack.toml", "deltapack.toml", ".deltapack.yaml"}

// Config holds every deltapack setting
type Config struct {
	Root   string         `koanf:"root" toml:"root"`
	Out    string         `koanf:"out" toml:"out"`
	Pack   PackSettings   `koanf:"pack" toml:"pack"`
	Git    GitSettings    `koanf:"git" toml:"git"`
	Unpack UnpackSettings `koanf:"unpack" toml:"unpack"`
	Tools  executor.Tools `koanf:"tools" toml:"tools"`

	// Source is the settings file that was loaded, if any
	Source string `koanf:"-" toml:"-"`
}

// PackSettings configures the pack driver
type PackSettings struct {
	Clean bool     `koanf:"clean" toml:"clean"`
	Only  []string `koanf:"only" toml:"only"`
}

// GitSettings configures the git diff source
type GitSettings struct {
	From   string `koanf:"from" toml:"from"`
	To     string `koanf:"to" toml:"to"`
	Binary string `koanf:"binary" toml:"binary"`
}

// UnpackSettings configures the replay engine
type UnpackSettings struct {
	ScratchDir string `koanf:"scratch_dir" toml:"scratch_dir"`
}

type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, fmt.Errorf("not implemented")
}

// Load reads the settings for the working directory dir. Overrides are
// dotted keys ("git.from") applied last, typically from command line flags.
func Load(dir string, overrides map[string]interface{}) (*Config, error) {
	logger := logging.GetLogger("config")
	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load defaults")
	}

	// 2. Settings file, if any
	source := ""
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to load settings from %s", path).
				WithDetail("path", path)
		}
		source = path
		break
	}

	// 3. Environment
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment variables")
	}

	// 4. Overrides
	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to apply overrides")
		}
	}

	cfg, err := unmarshal(k)
	if err != nil {
		return nil, err
	}
	cfg.Source = source

	logger.Debug().
		Str("source", source).
		Str("root", cfg.Root).
		Str("out", cfg.Out).
		Str("gitFrom", cfg.Git.From).
		Str("gitTo", cfg.Git.To).
		Msg("Settings loaded")

	return cfg, nil
}

// Defaults returns the embedded default settings
func Defaults() *Config {
	k := koanf.New(".")
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		panic(fmt.Sprintf("embedded defaults are invalid: %v", err))
	}
	cfg, err := unmarshal(k)
	if err != nil {
		panic(fmt.Sprintf("embedded defaults are invalid: %v", err))
	}
	return cfg
}

// envKey maps DELTAPACK_GIT_FROM to git.from. Only the first underscore
// separates the section, so DELTAPACK_UNPACK_SCRATCH_DIR maps to
// unpack.scratch_dir.
func envKey(s string) string {
	return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
}

func parserFor(path string) koanf.Parser {
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		return yaml.Parser()
	}
	return toml.Parser()
}

func unmarshal(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToSliceHookFunc(","),
				trimSliceHookFunc(),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigInvalid, "failed to unmarshal settings")
	}
	return &cfg, nil
}

// trimSliceHookFunc trims the entries of string lists and drops empty ones,
// so "a, b," from the environment decodes as [a b]
func trimSliceHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != reflect.TypeOf([]string{}) {
			return data, nil
		}
		items, ok := data.([]string)
		if !ok {
			return data, nil
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out, nil
	}
}
