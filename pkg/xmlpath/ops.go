package xmlpath

import (
	"strings"

	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/beevik/etree"
)

// ParseFragment parses XML text holding one or more top-level elements
func ParseFragment(text string) ([]*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(text); err != nil {
		return nil, errors.Wrap(err, errors.ErrXMLParse, "failed to parse xml fragment")
	}
	return doc.ChildElements(), nil
}

// Serialize writes elements as a fragment. The output is stable for a given
// input so packed manifests stay reproducible.
func Serialize(elements []*etree.Element) (string, error) {
	doc := etree.NewDocument()
	for _, el := range elements {
		doc.AddChild(el.Copy())
	}
	out, err := doc.WriteToString()
	if err != nil {
		return "", errors.Wrap(err, errors.ErrXMLParse, "failed to serialize xml fragment")
	}
	return out, nil
}

// Get returns the elements addressed by path, or nil when the path matches
// nothing. Each returned element carries its own tag, so serializing the
// result wraps the value under its key name. For "$" the document's
// top-level elements are returned.
func Get(doc *etree.Document, path string) ([]*etree.Element, error) {
	loc, err := Navigate(doc, path)
	if err != nil {
		return nil, err
	}
	if !loc.Found() {
		return nil, nil
	}
	return loc.Nodes, nil
}

// Replace sets the member at path to the value of fragment. The value is the
// fragment's first top-level key: every top-level element sharing that tag.
// The replacement takes the destination key's name. A nil or empty fragment
// deletes the member.
func Replace(doc *etree.Document, path string, fragment []*etree.Element) error {
	loc, err := Navigate(doc, path)
	if err != nil {
		return err
	}

	value := soleValue(fragment)
	if len(value) == 0 {
		removeAll(loc)
		return nil
	}

	if loc.Parent == nil {
		return errors.Newf(errors.ErrXMLPath, "cannot replace %s: parent node not found", path)
	}

	name := loc.Name
	if name == "" && len(loc.Nodes) > 0 {
		name = loc.Nodes[0].FullTag()
	}

	replacement := make([]*etree.Element, 0, len(value))
	for _, el := range value {
		c := el.Copy()
		if name != "" {
			setFullTag(c, name)
		}
		replacement = append(replacement, c)
	}

	at := -1
	if len(loc.Nodes) > 0 {
		at = loc.Nodes[0].Index()
	}
	removeAll(loc)

	if at < 0 {
		for _, el := range replacement {
			loc.Parent.AddChild(el)
		}
		return nil
	}
	for i, el := range replacement {
		loc.Parent.InsertChildAt(at+i, el)
	}
	return nil
}

// Delete removes the member at path. A missing member is not an error.
func Delete(doc *etree.Document, path string) error {
	loc, err := Navigate(doc, path)
	if err != nil {
		return err
	}
	removeAll(loc)
	return nil
}

// Insert adds the fragment's value as a child of the single element at path,
// keyed by the fragment's first top-level tag. When the target already has
// children with that tag the new ones follow them, turning a single value
// into a sequence; otherwise they are appended.
func Insert(doc *etree.Document, path string, fragment []*etree.Element) error {
	loc, err := Navigate(doc, path)
	if err != nil {
		return err
	}

	var target *etree.Element
	switch {
	case loc.Root:
		target = &doc.Element
	case len(loc.Nodes) == 1:
		target = loc.Nodes[0]
	case len(loc.Nodes) == 0:
		return errors.Newf(errors.ErrXMLPath, "cannot insert at %s: node not found", path)
	default:
		return errors.Newf(errors.ErrXMLPath, "cannot insert at %s: path matches %d nodes", path, len(loc.Nodes))
	}

	value := soleValue(fragment)
	if len(value) == 0 {
		return nil
	}

	existing := target.SelectElements(value[0].FullTag())
	if len(existing) == 0 {
		for _, el := range value {
			target.AddChild(el.Copy())
		}
		return nil
	}

	at := existing[len(existing)-1].Index() + 1
	for i, el := range value {
		target.InsertChildAt(at+i, el.Copy())
	}
	return nil
}

// soleValue returns the elements sharing the first element's tag
func soleValue(fragment []*etree.Element) []*etree.Element {
	if len(fragment) == 0 {
		return nil
	}
	key := fragment[0].FullTag()
	var out []*etree.Element
	for _, el := range fragment {
		if el.FullTag() == key {
			out = append(out, el)
		}
	}
	return out
}

func removeAll(loc Location) {
	for _, n := range loc.Nodes {
		if p := n.Parent(); p != nil {
			p.RemoveChild(n)
		}
	}
}

func setFullTag(el *etree.Element, name string) {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		el.Space, el.Tag = name[:i], name[i+1:]
		return
	}
	el.Space, el.Tag = "", name
}
