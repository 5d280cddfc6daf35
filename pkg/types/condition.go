package types

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/arthur-debert/deltapack/pkg/errors"
)

// Condition is a boolean rule condition. The set of implementations is closed:
// Literal, NameRef, And, Or and GitDiffPresence.
type Condition interface {
	conditionNode()
}

// Literal is a constant condition from a boolean or number
type Literal struct {
	Value bool
}

// NameRef tests the truthiness of a variable, negated once per leading "!"
type NameRef struct {
	Name   string
	Negate bool
}

// And is true when every item is true, flipped by Negate
type And struct {
	Items  []Condition
	Negate bool
}

// Or is true when any item is true, flipped by Negate
type Or struct {
	Items  []Condition
	Negate bool
}

// GitDiffPresence is true when the filtered git diff set is not empty
type GitDiffPresence struct {
	Pattern string
	Exclude StringList
}

func (Literal) conditionNode()         {}
func (NameRef) conditionNode()         {}
func (And) conditionNode()             {}
func (Or) conditionNode()              {}
func (GitDiffPresence) conditionNode() {}

// ParseNameRef splits leading "!" markers off a variable reference
func ParseNameRef(ref string) NameRef {
	negate := false
	for strings.HasPrefix(ref, "!") {
		negate = !negate
		ref = ref[1:]
	}
	return NameRef{Name: ref, Negate: negate}
}

// IsConditionShaped reports whether raw JSON is an object, the only shape
// a variable definition evaluates as a condition
func IsConditionShaped(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// ParseCondition decodes a condition from its JSON form. Shapes that are not
// a boolean, number, string or a recognized object are rejected.
func ParseCondition(raw json.RawMessage) (Condition, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New(errors.ErrConfigInvalid, "empty condition")
	}

	switch trimmed[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigParse, "invalid boolean condition")
		}
		return Literal{Value: b}, nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigParse, "invalid variable reference")
		}
		return ParseNameRef(s), nil
	case '{':
		return parseConditionObject(trimmed)
	case '[', 'n':
		return nil, errors.Newf(errors.ErrConfigInvalid, "unsupported condition shape: %s", string(trimmed))
	default:
		var n float64
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigParse, "invalid condition: %s", string(trimmed))
		}
		return Literal{Value: n != 0}, nil
	}
}

type conditionObject struct {
	And     []json.RawMessage `json:"and"`
	Or      []json.RawMessage `json:"or"`
	Negate  bool              `json:"negate"`
	GitDiff *struct {
		Pattern string     `json:"pattern"`
		Exclude StringList `json:"exclude"`
	} `json:"git_diff"`
}

func parseConditionObject(raw []byte) (Condition, error) {
	var obj conditionObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "invalid condition object")
	}

	// Precedence follows key checks: and, then or, then git_diff
	switch {
	case obj.And != nil:
		items, err := parseConditionList(obj.And)
		if err != nil {
			return nil, err
		}
		return And{Items: items, Negate: obj.Negate}, nil
	case obj.Or != nil:
		items, err := parseConditionList(obj.Or)
		if err != nil {
			return nil, err
		}
		return Or{Items: items, Negate: obj.Negate}, nil
	case obj.GitDiff != nil:
		if obj.GitDiff.Pattern == "" {
			return nil, errors.New(errors.ErrConfigInvalid, "git_diff condition requires a pattern")
		}
		return GitDiffPresence{Pattern: obj.GitDiff.Pattern, Exclude: obj.GitDiff.Exclude}, nil
	}

	return nil, errors.Newf(errors.ErrConfigInvalid, "unsupported condition object: %s", string(raw))
}

func parseConditionList(raws []json.RawMessage) ([]Condition, error) {
	items := make([]Condition, 0, len(raws))
	for _, raw := range raws {
		c, err := ParseCondition(raw)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, nil
}

// ConditionField holds an optional condition decoded from JSON
type ConditionField struct {
	Condition Condition
}

// Present reports whether a condition was given
func (c ConditionField) Present() bool { return c.Condition != nil }

// UnmarshalJSON implements json.Unmarshaler
func (c *ConditionField) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		c.Condition = nil
		return nil
	}
	cond, err := ParseCondition(data)
	if err != nil {
		return err
	}
	c.Condition = cond
	return nil
}
