package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/arthur-debert/deltapack/pkg/errors"
)

// RuleMode selects how a package rule is interpreted
type RuleMode string

const (
	ModeGitDiff     RuleMode = "git_diff"
	ModeSync        RuleMode = "sync"
	ModePartialSync RuleMode = "partial_sync"
	ModeXMLReplace  RuleMode = "xml_replace"
	ModeXMLInsert   RuleMode = "xml_insert"
	ModeCmd         RuleMode = "cmd"
)

// ActionType selects the external tool runner of an action
type ActionType string

const (
	ActionCmd     ActionType = "cmd"
	ActionMSBuild ActionType = "msbuild"
	ActionDevenv  ActionType = "devenv"
	ActionDotnet  ActionType = "dotnet"
)

// StringList accepts either a single string or a list of strings
type StringList []string

// UnmarshalJSON implements json.Unmarshaler
func (l *StringList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return err
	}
	*l = list
	return nil
}

// Policy is the retry and error tolerance of a replay step
type Policy struct {
	Retry        int  `json:"retry,omitempty"`
	IgnoreErrors bool `json:"ignoreErrors,omitempty"`
}

// Attempts returns how many times a step runs before giving up
func (p Policy) Attempts() int {
	if p.Retry < 1 {
		return 1
	}
	return p.Retry
}

// CommandSpec describes one external command of a cmd rule or replay step
type CommandSpec struct {
	Path string     `json:"path"`
	Args StringList `json:"args,omitempty"`
	Cwd  string     `json:"cwd,omitempty"`
	Policy
}

// UnmarshalJSON accepts a command object or a bare path string
func (c *CommandSpec) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var path string
		if err := json.Unmarshal(trimmed, &path); err != nil {
			return err
		}
		*c = CommandSpec{Path: path}
		return nil
	}
	type plain CommandSpec
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*c = CommandSpec(p)
	return nil
}

// CommandList accepts a single command or a list of them
type CommandList []CommandSpec

// UnmarshalJSON implements json.Unmarshaler
func (l *CommandList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '"') {
		var c CommandSpec
		if err := json.Unmarshal(trimmed, &c); err != nil {
			return err
		}
		*l = CommandList{c}
		return nil
	}
	var list []CommandSpec
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return err
	}
	*l = list
	return nil
}

// VariableDef is either a condition to evaluate or a literal value
type VariableDef struct {
	Condition Condition
	Value     Value
}

// Variable is one named definition, kept in document order
type Variable struct {
	Name string
	Def  VariableDef
}

// Variables is an ordered set of variable definitions. Order matters because
// a definition may reference variables defined before it.
type Variables []Variable

// UnmarshalJSON decodes a JSON object preserving key order
func (v *Variables) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(err, errors.ErrConfigParse, "invalid variables")
	}
	if tok == nil {
		*v = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New(errors.ErrConfigInvalid, "variables must be an object")
	}

	var out Variables
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return errors.Wrap(err, errors.ErrConfigParse, "invalid variables")
		}
		name, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return errors.Wrapf(err, errors.ErrConfigParse, "invalid variable %s", name)
		}

		def, err := parseVariableDef(raw)
		if err != nil {
			return errors.Wrapf(err, errors.ErrConfigInvalid, "invalid variable %s", name)
		}
		out = out.Set(name, def)
	}

	*v = out
	return nil
}

func parseVariableDef(raw json.RawMessage) (VariableDef, error) {
	if IsConditionShaped(raw) {
		cond, err := ParseCondition(raw)
		if err != nil {
			return VariableDef{}, err
		}
		return VariableDef{Condition: cond}, nil
	}

	var scalar interface{}
	if err := json.Unmarshal(raw, &scalar); err != nil {
		return VariableDef{}, err
	}
	switch s := scalar.(type) {
	case bool:
		return VariableDef{Value: BoolValue(s)}, nil
	case float64:
		return VariableDef{Value: NumberValue(s)}, nil
	case string:
		return VariableDef{Value: StringValue(s)}, nil
	default:
		return VariableDef{Value: Undefined()}, nil
	}
}

// Get returns the definition with the given name
func (v Variables) Get(name string) (VariableDef, bool) {
	for _, item := range v {
		if item.Name == name {
			return item.Def, true
		}
	}
	return VariableDef{}, false
}

// Set replaces an existing definition in place or appends a new one
func (v Variables) Set(name string, def VariableDef) Variables {
	for i := range v {
		if v[i].Name == name {
			out := append(Variables(nil), v...)
			out[i].Def = def
			return out
		}
	}
	return append(append(Variables(nil), v...), Variable{Name: name, Def: def})
}

// Overlay returns v with every definition of top applied over it. Keys keep
// their first position; values of top win.
func (v Variables) Overlay(top Variables) Variables {
	out := append(Variables(nil), v...)
	for _, item := range top {
		out = out.Set(item.Name, item.Def)
	}
	return out
}

// ActionDef is one pre-pack action
type ActionDef struct {
	Type        ActionType
	Condition   Condition
	Description string
	Options     ActionOptions
}

// ActionOptions is the type-specific option set of an action. The set of
// implementations is closed: CmdOptions, MSBuildOptions, DevenvOptions and
// DotnetOptions.
type ActionOptions interface {
	actionOptions()
}

// ExitCodeExpectation is the accepted exit code of a cmd action
type ExitCodeExpectation struct {
	Any  bool
	Code int
}

// Accepts reports whether the exit code satisfies the expectation
func (e ExitCodeExpectation) Accepts(code int) bool {
	return e.Any || e.Code == code
}

// CmdOptions configures a cmd action
type CmdOptions struct {
	Path           string              `json:"path"`
	Args           StringList          `json:"args,omitempty"`
	Cwd            string              `json:"cwd,omitempty"`
	Verbose        bool                `json:"verbose,omitempty"`
	ExpectExitCode ExitCodeExpectation `json:"-"`
}

// MSBuildOptions configures an msbuild action
type MSBuildOptions struct {
	Solution string            `json:"solution"`
	Target   StringList        `json:"target,omitempty"`
	Props    map[string]string `json:"-"`
	Verbose  bool              `json:"verbose,omitempty"`
}

// DevenvOptions configures a devenv action
type DevenvOptions struct {
	Solution             string `json:"solution"`
	Action               string `json:"action"`
	Configuration        string `json:"configuration,omitempty"`
	Project              string `json:"project,omitempty"`
	ProjectConfiguration string `json:"projectConfiguration,omitempty"`
	Verbose              bool   `json:"verbose,omitempty"`
}

// DotnetOptions configures a dotnet action
type DotnetOptions struct {
	Command string            `json:"command"`
	Args    StringList        `json:"args,omitempty"`
	Props   map[string]string `json:"-"`
	Verbose bool              `json:"verbose,omitempty"`
}

func (*CmdOptions) actionOptions()     {}
func (*MSBuildOptions) actionOptions() {}
func (*DevenvOptions) actionOptions()  {}
func (*DotnetOptions) actionOptions()  {}

// SortedProps renders props as key=value pairs in key order
func SortedProps(props map[string]string) []string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s=%s", k, props[k]))
	}
	return out
}

type actionJSON struct {
	Type        ActionType      `json:"type"`
	Condition   ConditionField  `json:"condition"`
	Description string          `json:"description"`
	Options     json.RawMessage `json:"options"`
}

// UnmarshalJSON decodes an action and its type-specific options
func (a *ActionDef) UnmarshalJSON(data []byte) error {
	var raw actionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, errors.ErrConfigParse, "invalid action")
	}

	a.Type = raw.Type
	a.Condition = raw.Condition.Condition
	a.Description = raw.Description

	options := raw.Options
	if len(bytes.TrimSpace(options)) == 0 {
		options = json.RawMessage("{}")
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(options, &generic); err != nil {
		return errors.Wrap(err, errors.ErrConfigParse, "action options must be an object")
	}

	switch raw.Type {
	case ActionCmd:
		opts := &CmdOptions{}
		if err := json.Unmarshal(options, opts); err != nil {
			return errors.Wrap(err, errors.ErrConfigParse, "invalid cmd options")
		}
		if opts.Path == "" {
			return errors.New(errors.ErrConfigInvalid, "cmd action requires options.path")
		}
		// Absent means 0, null accepts any exit code
		if v, ok := generic["expectExitCode"]; ok {
			switch code := v.(type) {
			case nil:
				opts.ExpectExitCode = ExitCodeExpectation{Any: true}
			case float64:
				opts.ExpectExitCode = ExitCodeExpectation{Code: int(code)}
			}
		}
		a.Options = opts
	case ActionMSBuild:
		opts := &MSBuildOptions{Props: propsFrom(generic["props"])}
		if err := json.Unmarshal(options, opts); err != nil {
			return errors.Wrap(err, errors.ErrConfigParse, "invalid msbuild options")
		}
		a.Options = opts
	case ActionDevenv:
		opts := &DevenvOptions{}
		if err := json.Unmarshal(options, opts); err != nil {
			return errors.Wrap(err, errors.ErrConfigParse, "invalid devenv options")
		}
		a.Options = opts
	case ActionDotnet:
		opts := &DotnetOptions{Props: propsFrom(generic["props"])}
		if err := json.Unmarshal(options, opts); err != nil {
			return errors.Wrap(err, errors.ErrConfigParse, "invalid dotnet options")
		}
		a.Options = opts
	default:
		return errors.Newf(errors.ErrUnsupportedAction, "Unsupported action type %s", raw.Type)
	}

	return nil
}

func propsFrom(v interface{}) map[string]string {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	props := make(map[string]string, len(m))
	for k, val := range m {
		props[k] = fmt.Sprint(val)
	}
	return props
}

// PackageRule is one packaging rule
type PackageRule struct {
	Mode             RuleMode       `json:"mode"`
	Condition        ConditionField `json:"condition"`
	Source           string         `json:"source"`
	Dest             string         `json:"dest"`
	Pattern          string         `json:"pattern"`
	Exclude          *StringList    `json:"exclude"`
	ExcludeInPackage *StringList    `json:"excludeInPackage"`
	IgnoreDuplicates bool           `json:"ignoreDuplicates"`
	SourceXMLPath    string         `json:"sourceXmlPath"`
	DestXMLPath      string         `json:"destXmlPath"`
	Command          CommandList    `json:"command"`
	SkipNotFound     *bool          `json:"skipNotFound"`
	Policy
}

// PackExclude returns the exclusion used while selecting files for the
// content store: excludeInPackage when given, exclude otherwise
func (r PackageRule) PackExclude() []string {
	if r.ExcludeInPackage != nil {
		return *r.ExcludeInPackage
	}
	if r.Exclude != nil {
		return *r.Exclude
	}
	return nil
}

// DeleteSkipsNotFound reports whether emitted deletes tolerate missing targets
func (r PackageRule) DeleteSkipsNotFound() bool {
	if r.SkipNotFound == nil {
		return true
	}
	return *r.SkipNotFound
}

// Validate checks the mode-specific required fields
func (r PackageRule) Validate() error {
	switch r.Mode {
	case ModeGitDiff, ModeSync, ModePartialSync:
		if r.Pattern == "" {
			return errors.Newf(errors.ErrConfigInvalid, "%s rule requires a pattern", r.Mode)
		}
	case ModeXMLReplace, ModeXMLInsert:
		if r.SourceXMLPath == "" || r.DestXMLPath == "" {
			return errors.Newf(errors.ErrConfigInvalid, "%s rule requires sourceXmlPath and destXmlPath", r.Mode)
		}
	case ModeCmd:
		if len(r.Command) == 0 {
			return errors.New(errors.ErrConfigInvalid, "cmd rule requires a command")
		}
		for _, c := range r.Command {
			if c.Path == "" {
				return errors.New(errors.ErrConfigInvalid, "cmd rule command requires a path")
			}
		}
	default:
		return errors.Newf(errors.ErrUnsupportedMode, "Unsupported rule mode %q", r.Mode)
	}
	return nil
}

// PackageDefinition is one named unit of variables, actions and rules
type PackageDefinition struct {
	Name        string        `json:"name"`
	Variables   Variables     `json:"variables"`
	Actions     []ActionDef   `json:"actions"`
	Package     []PackageRule `json:"package"`
	Import      []string      `json:"import"`
	ExecuteOnce bool          `json:"executeOnce"`
	AutoPack    *bool         `json:"autoPack"`
}

// AutoPacked reports whether the definition is packed on its own; defaults to true
func (d PackageDefinition) AutoPacked() bool {
	return d.AutoPack == nil || *d.AutoPack
}

// Validate checks the definition and all of its rules
func (d PackageDefinition) Validate() error {
	if d.Name == "" {
		return errors.New(errors.ErrConfigInvalid, "package definition requires a name")
	}
	for i, rule := range d.Package {
		if err := rule.Validate(); err != nil {
			return errors.Wrapf(err, errors.GetErrorCode(err), "package %s rule %d", d.Name, i)
		}
	}
	return nil
}
