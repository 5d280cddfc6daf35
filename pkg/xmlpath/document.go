package xmlpath

import (
	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/beevik/etree"
)

// IndentSpaces is the indentation used when writing patched documents
const IndentSpaces = 2

// ReadDocument parses a whole XML document
func ReadDocument(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, errors.Wrap(err, errors.ErrXMLParse, "failed to parse xml document")
	}
	return doc, nil
}

// WriteDocument re-indents doc and returns its bytes
func WriteDocument(doc *etree.Document) ([]byte, error) {
	doc.Indent(IndentSpaces)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrXMLParse, "failed to serialize xml document")
	}
	return out, nil
}
