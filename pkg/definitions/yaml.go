package definitions

import (
	"bytes"
	"encoding/json"

	"github.com/arthur-debert/deltapack/pkg/errors"
	"gopkg.in/yaml.v3"
)

// yamlToJSON converts a YAML document to JSON walking the node tree, so
// mapping keys keep their document order (variables depend on it).
func yamlToJSON(data []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "invalid YAML")
	}

	var buf bytes.Buffer
	if len(doc.Content) == 0 {
		buf.WriteString("null")
		return buf.Bytes(), nil
	}
	if err := writeNode(&buf, doc.Content[0]); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeNode(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeNode(buf, n.Content[0])
	case yaml.AliasNode:
		return writeNode(buf, n.Alias)
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(n.Content[i].Value)
			if err != nil {
				return errors.Wrap(err, errors.ErrConfigParse, "invalid YAML key")
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeNode(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	default:
		var v interface{}
		if err := n.Decode(&v); err != nil {
			return errors.Wrapf(err, errors.ErrConfigParse, "invalid YAML value at line %d", n.Line)
		}
		out, err := json.Marshal(v)
		if err != nil {
			return errors.Wrapf(err, errors.ErrConfigParse, "unsupported YAML value at line %d", n.Line)
		}
		buf.Write(out)
		return nil
	}
}
