// pkg/types/definition_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test decoding of package definitions, conditions and actions

package types_test

import (
	"encoding/json"
	"testing"

	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/arthur-debert/deltapack/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCondition(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want types.Condition
	}{
		{"true literal", `true`, types.Literal{Value: true}},
		{"zero literal", `0`, types.Literal{Value: false}},
		{"number literal", `2.5`, types.Literal{Value: true}},
		{"name", `"debug"`, types.NameRef{Name: "debug"}},
		{"single negation", `"!debug"`, types.NameRef{Name: "debug", Negate: true}},
		{"double negation", `"!!debug"`, types.NameRef{Name: "debug"}},
		{"triple negation", `"!!!debug"`, types.NameRef{Name: "debug", Negate: true}},
		{
			"and with negate",
			`{"and": [true, "x"], "negate": true}`,
			types.And{Items: []types.Condition{types.Literal{Value: true}, types.NameRef{Name: "x"}}, Negate: true},
		},
		{
			"or",
			`{"or": [false]}`,
			types.Or{Items: []types.Condition{types.Literal{Value: false}}},
		},
		{
			"git diff",
			`{"git_diff": {"pattern": "src/**", "exclude": "*.md"}}`,
			types.GitDiffPresence{Pattern: "src/**", Exclude: types.StringList{"*.md"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := types.ParseCondition(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseConditionRejectsUnknownShapes(t *testing.T) {
	for _, raw := range []string{`{"xor": [true]}`, `[true]`, `null`, `{"git_diff": {}}`} {
		_, err := types.ParseCondition(json.RawMessage(raw))
		assert.Error(t, err, raw)
		assert.True(t, errors.IsErrorCode(err, errors.ErrConfigInvalid), raw)
	}
}

func TestVariablesKeepDocumentOrder(t *testing.T) {
	var vars types.Variables
	err := json.Unmarshal([]byte(`{"z": 1, "a": {"or": ["z"]}, "m": "text", "n": null, "l": [1]}`), &vars)
	require.NoError(t, err)

	names := make([]string, 0, len(vars))
	for _, v := range vars {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{"z", "a", "m", "n", "l"}, names)

	z, _ := vars.Get("z")
	assert.Equal(t, types.NumberValue(1), z.Value)

	a, _ := vars.Get("a")
	assert.Equal(t, types.Or{Items: []types.Condition{types.NameRef{Name: "z"}}}, a.Condition)

	n, _ := vars.Get("n")
	assert.True(t, n.Value.IsUndefined())
	l, _ := vars.Get("l")
	assert.True(t, l.Value.IsUndefined())
}

func TestVariablesOverlay(t *testing.T) {
	base := types.Variables{}.
		Set("a", types.VariableDef{Value: types.BoolValue(false)}).
		Set("b", types.VariableDef{Value: types.StringValue("base")})
	top := types.Variables{}.
		Set("b", types.VariableDef{Value: types.StringValue("own")}).
		Set("c", types.VariableDef{Value: types.NumberValue(3)})

	merged := base.Overlay(top)

	require.Len(t, merged, 3)
	assert.Equal(t, "a", merged[0].Name)
	assert.Equal(t, "b", merged[1].Name)
	assert.Equal(t, types.StringValue("own"), merged[1].Def.Value)
	assert.Equal(t, "c", merged[2].Name)

	// base is untouched
	b, _ := base.Get("b")
	assert.Equal(t, types.StringValue("base"), b.Value)
}

func TestValueTruthy(t *testing.T) {
	assert.False(t, types.Undefined().Truthy())
	assert.False(t, types.BoolValue(false).Truthy())
	assert.False(t, types.NumberValue(0).Truthy())
	assert.False(t, types.StringValue("").Truthy())
	assert.True(t, types.NumberValue(-1).Truthy())
	assert.True(t, types.StringValue("0").Truthy())
	assert.Equal(t, "1.5", types.NumberValue(1.5).Text())
}

func TestActionDefDecoding(t *testing.T) {
	t.Run("cmd with default exit code", func(t *testing.T) {
		var a types.ActionDef
		require.NoError(t, json.Unmarshal([]byte(`{"type":"cmd","options":{"path":"%TOOLS%/gen.sh","args":"--all"}}`), &a))
		opts, ok := a.Options.(*types.CmdOptions)
		require.True(t, ok)
		assert.Equal(t, types.StringList{"--all"}, opts.Args)
		assert.True(t, opts.ExpectExitCode.Accepts(0))
		assert.False(t, opts.ExpectExitCode.Accepts(1))
	})

	t.Run("cmd with null exit code accepts any", func(t *testing.T) {
		var a types.ActionDef
		require.NoError(t, json.Unmarshal([]byte(`{"type":"cmd","options":{"path":"x","expectExitCode":null}}`), &a))
		assert.True(t, a.Options.(*types.CmdOptions).ExpectExitCode.Accepts(17))
	})

	t.Run("msbuild props", func(t *testing.T) {
		var a types.ActionDef
		raw := `{"type":"msbuild","condition":"release","options":{"solution":"app.sln","target":["Clean","Build"],"props":{"Configuration":"Release","WarningLevel":4}}}`
		require.NoError(t, json.Unmarshal([]byte(raw), &a))
		opts := a.Options.(*types.MSBuildOptions)
		assert.Equal(t, types.StringList{"Clean", "Build"}, opts.Target)
		assert.Equal(t, []string{"Configuration=Release", "WarningLevel=4"}, types.SortedProps(opts.Props))
		assert.Equal(t, types.NameRef{Name: "release"}, a.Condition)
	})

	t.Run("unsupported type", func(t *testing.T) {
		var a types.ActionDef
		err := json.Unmarshal([]byte(`{"type":"gradle","options":{}}`), &a)
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrUnsupportedAction))
	})
}

func TestPackageRuleValidate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		code errors.ErrorCode
	}{
		{"git diff ok", `{"mode":"git_diff","pattern":"**/*"}`, ""},
		{"sync needs pattern", `{"mode":"sync"}`, errors.ErrConfigInvalid},
		{"xml needs paths", `{"mode":"xml_replace","source":"a.xml","sourceXmlPath":"$.a"}`, errors.ErrConfigInvalid},
		{"cmd single object", `{"mode":"cmd","command":{"path":"restart.cmd"}}`, ""},
		{"cmd bare string", `{"mode":"cmd","command":"iisreset"}`, ""},
		{"cmd needs command", `{"mode":"cmd"}`, errors.ErrConfigInvalid},
		{"unknown mode", `{"mode":"rsync","pattern":"*"}`, errors.ErrUnsupportedMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rule types.PackageRule
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &rule))
			err := rule.Validate()
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.IsErrorCode(err, tt.code), "got %v", err)
		})
	}
}

func TestCommandListForms(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want types.CommandList
	}{
		{"bare string", `"iisreset"`, types.CommandList{{Path: "iisreset"}}},
		{"single object", `{"path":"restart.cmd","args":"-q","retry":2}`, types.CommandList{{Path: "restart.cmd", Args: types.StringList{"-q"}, Policy: types.Policy{Retry: 2}}}},
		{"mixed list", `["stop.cmd",{"path":"start.cmd","cwd":"bin"}]`, types.CommandList{{Path: "stop.cmd"}, {Path: "start.cmd", Cwd: "bin"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got types.CommandList
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPackageRuleExcludes(t *testing.T) {
	var rule types.PackageRule
	require.NoError(t, json.Unmarshal([]byte(`{"mode":"sync","pattern":"**","exclude":"*.log"}`), &rule))
	assert.Equal(t, []string{"*.log"}, rule.PackExclude())

	require.NoError(t, json.Unmarshal([]byte(`{"mode":"sync","pattern":"**","exclude":"*.log","excludeInPackage":[]}`), &rule))
	assert.Empty(t, rule.PackExclude())
	assert.True(t, rule.DeleteSkipsNotFound())
}

func TestPackageDefinitionDefaults(t *testing.T) {
	var def types.PackageDefinition
	require.NoError(t, json.Unmarshal([]byte(`{"name":"app"}`), &def))
	assert.True(t, def.AutoPacked())
	assert.False(t, def.ExecuteOnce)
	assert.NoError(t, def.Validate())

	require.NoError(t, json.Unmarshal([]byte(`{"name":"lib","autoPack":false,"executeOnce":true}`), &def))
	assert.False(t, def.AutoPacked())
}
