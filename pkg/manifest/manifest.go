// Package manifest defines the unpack manifest: the ordered list of replay
// steps written next to a content store as <name>.json.
//
// Encoding is canonical (RFC 8785), so packing the same inputs twice yields
// byte-identical manifests. Decoding ignores unknown fields but rejects
// unknown step types and XML modes.
package manifest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/arthur-debert/deltapack/pkg/logging"
	"github.com/arthur-debert/deltapack/pkg/types"
	"github.com/gowebpki/jcs"
	"github.com/tailscale/hujson"
)

// Type names a replay step
type Type string

const (
	TypeCopy   Type = "copy"
	TypeDelete Type = "delete"
	TypeSync   Type = "sync"
	TypeXML    Type = "xml"
	TypeCmd    Type = "cmd"
)

// XMLMode selects how an XML action patches the destination document
type XMLMode string

const (
	XMLReplace XMLMode = "replace"
	XMLInsert  XMLMode = "insert"
)

// Step is one replay step. Implementations are *Copy, *Delete, *Sync, *Xml
// and *Cmd.
type Step interface {
	Type() Type
	StepPolicy() types.Policy
	step()
}

// Copy copies path from the content store into the output folder
type Copy struct {
	Path string `json:"path"`
	types.Policy
}

// Delete removes path from the output folder
type Delete struct {
	Path         string `json:"path"`
	SkipNotFound bool   `json:"skipNotFound"`
	types.Policy
}

// Sync mirrors the content store directory path into the output folder
type Sync struct {
	Path    string   `json:"path"`
	Exclude []string `json:"exclude"`
	types.Policy
}

// XMLAction patches one node of an XML document. A replace with a nil XML
// deletes the node.
type XMLAction struct {
	Mode XMLMode `json:"mode"`
	Path string  `json:"path"`
	XML  *string `json:"xml"`
	types.Policy
}

// Xml patches the XML file at path in the output folder
type Xml struct {
	Path    string      `json:"path"`
	Actions []XMLAction `json:"actions"`
	types.Policy
}

// Cmd runs commands against the output folder. The step policy wraps the
// whole command list and each command's policy wraps that command, so the
// attempts multiply: step retry 3 with command retry 3 runs a failing
// command up to 9 times.
type Cmd struct {
	Commands []types.CommandSpec `json:"commands"`
	types.Policy
}

func (*Copy) Type() Type   { return TypeCopy }
func (*Delete) Type() Type { return TypeDelete }
func (*Sync) Type() Type   { return TypeSync }
func (*Xml) Type() Type    { return TypeXML }
func (*Cmd) Type() Type    { return TypeCmd }

func (s *Copy) StepPolicy() types.Policy   { return s.Policy }
func (s *Delete) StepPolicy() types.Policy { return s.Policy }
func (s *Sync) StepPolicy() types.Policy   { return s.Policy }
func (s *Xml) StepPolicy() types.Policy    { return s.Policy }
func (s *Cmd) StepPolicy() types.Policy    { return s.Policy }

func (*Copy) step()   {}
func (*Delete) step() {}
func (*Sync) step()   {}
func (*Xml) step()    {}
func (*Cmd) step()    {}

// Manifest is the ordered list of replay steps
type Manifest []Step

// MarshalJSON emits each step as an object tagged with its type
func (m Manifest) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(m))
	for _, s := range m {
		raw, err := marshalStep(s)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return json.Marshal(out)
}

func marshalStep(s Step) ([]byte, error) {
	switch v := s.(type) {
	case *Copy:
		type plain Copy
		return json.Marshal(struct {
			Type Type `json:"type"`
			plain
		}{TypeCopy, plain(*v)})
	case *Delete:
		type plain Delete
		return json.Marshal(struct {
			Type Type `json:"type"`
			plain
		}{TypeDelete, plain(*v)})
	case *Sync:
		type plain Sync
		p := plain(*v)
		if p.Exclude == nil {
			p.Exclude = []string{}
		}
		return json.Marshal(struct {
			Type Type `json:"type"`
			plain
		}{TypeSync, p})
	case *Xml:
		type plain Xml
		p := plain(*v)
		if p.Actions == nil {
			p.Actions = []XMLAction{}
		}
		return json.Marshal(struct {
			Type Type `json:"type"`
			plain
		}{TypeXML, p})
	case *Cmd:
		type plain Cmd
		p := plain(*v)
		if p.Commands == nil {
			p.Commands = []types.CommandSpec{}
		}
		return json.Marshal(struct {
			Type Type `json:"type"`
			plain
		}{TypeCmd, p})
	default:
		return nil, errors.Newf(errors.ErrInternal, "unknown manifest step %T", s)
	}
}

// UnmarshalJSON decodes the ordered steps
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return errors.Wrap(err, errors.ErrConfigParse, "manifest must be a JSON array")
	}

	out := make(Manifest, 0, len(raws))
	for i, raw := range raws {
		s, err := decodeStep(raw)
		if err != nil {
			return errors.Wrapf(err, errors.GetErrorCode(err), "manifest step %d", i)
		}
		out = append(out, s)
	}
	*m = out
	return nil
}

func decodeStep(raw json.RawMessage) (Step, error) {
	var head struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "invalid manifest step")
	}

	switch head.Type {
	case TypeCopy:
		s := &Copy{}
		return s, unmarshalStep(raw, s)
	case TypeDelete:
		var wire struct {
			Path         string `json:"path"`
			SkipNotFound *bool  `json:"skipNotFound"`
			types.Policy
		}
		if err := unmarshalStep(raw, &wire); err != nil {
			return nil, err
		}
		// Absent means tolerate a missing target
		skip := wire.SkipNotFound == nil || *wire.SkipNotFound
		return &Delete{Path: wire.Path, SkipNotFound: skip, Policy: wire.Policy}, nil
	case TypeSync:
		s := &Sync{}
		return s, unmarshalStep(raw, s)
	case TypeXML:
		s := &Xml{}
		if err := unmarshalStep(raw, s); err != nil {
			return nil, err
		}
		for _, a := range s.Actions {
			if a.Mode != XMLReplace && a.Mode != XMLInsert {
				return nil, errors.Newf(errors.ErrUnsupportedMode, "Unsupported xml action mode %q", a.Mode)
			}
		}
		return s, nil
	case TypeCmd:
		s := &Cmd{}
		return s, unmarshalStep(raw, s)
	default:
		return nil, errors.Newf(errors.ErrReplayStep, "Unsupported unpack rule type %q", head.Type)
	}
}

func unmarshalStep(raw json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(err, errors.ErrConfigParse, "invalid manifest step")
	}
	return nil
}

// Encode returns the canonical JSON form of the manifest
func Encode(m Manifest) ([]byte, error) {
	if m == nil {
		m = Manifest{}
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to encode manifest")
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to canonicalize manifest")
	}

	logger := logging.GetLogger("manifest")
	logger.Debug().
		Int("steps", len(m)).
		Str("sha256", Digest(canonical)).
		Msg("Encoded manifest")

	return canonical, nil
}

// Decode parses a manifest document. Comments and trailing commas are
// accepted.
func Decode(data []byte) (Manifest, error) {
	data, err := hujson.Standardize(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "manifest is not valid JSON")
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Digest returns the sha256 hex digest of encoded manifest bytes
func Digest(encoded []byte) string {
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}
