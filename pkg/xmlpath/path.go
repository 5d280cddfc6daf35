// Package xmlpath addresses nodes of an XML document with JSON-path-like
// strings such as $.configuration.appSettings or $.root."my-node"[1].
//
// A name segment selects the child elements with that tag. A single match is
// a plain node; repeated elements form an ordered sequence that an [index]
// segment picks from. Traversal stops as soon as an intermediate segment
// matches nothing.
package xmlpath

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/arthur-debert/deltapack/pkg/errors"
	"github.com/beevik/etree"
)

// Segment is one step of a path
type Segment struct {
	Name    string
	Index   int
	IsIndex bool
}

var segmentPattern = regexp.MustCompile(`\[[0-9]+\]|\.[$A-Za-z_][0-9A-Za-z_$]*|\."(?:[^"\\]|\\.)*"`)

var unescapePattern = regexp.MustCompile(`\\(.)`)

// Parse splits a path into segments. The path must start with "$".
func Parse(path string) ([]Segment, error) {
	if !strings.HasPrefix(path, "$") {
		return nil, errors.Newf(errors.ErrXMLPath, "invalid path %q: must start with a $", path)
	}

	rest := path[1:]
	matches := segmentPattern.FindAllStringIndex(rest, -1)

	segments := make([]Segment, 0, len(matches))
	consumed := 0
	for _, m := range matches {
		if m[0] != consumed {
			return nil, errors.Newf(errors.ErrXMLPath, "invalid path %q near %q", path, rest[consumed:])
		}
		consumed = m[1]

		part := rest[m[0]:m[1]]
		switch {
		case part[0] == '[':
			idx, err := strconv.Atoi(part[1 : len(part)-1])
			if err != nil {
				return nil, errors.Wrapf(err, errors.ErrXMLPath, "invalid index in %q", path)
			}
			segments = append(segments, Segment{Index: idx, IsIndex: true})
		case strings.HasPrefix(part, `."`):
			name := unescapePattern.ReplaceAllString(part[2:len(part)-1], "$1")
			segments = append(segments, Segment{Name: name})
		default:
			segments = append(segments, Segment{Name: part[1:]})
		}
	}
	if consumed != len(rest) {
		return nil, errors.Newf(errors.ErrXMLPath, "invalid path %q near %q", path, rest[consumed:])
	}

	return segments, nil
}

// Location is the result of navigating a path
type Location struct {
	// Parent is the element holding the addressed member. Nil when an
	// intermediate segment was missing or the path is "$".
	Parent *etree.Element
	// Name is the last name segment of the path
	Name string
	// Key is the last segment
	Key Segment
	// Nodes are the matched elements: one for a plain node or index, several
	// for a sequence of repeated elements, none when the member is missing.
	Nodes []*etree.Element
	// Root is set when the path is exactly "$"
	Root bool
}

// Found reports whether the path matched anything
func (l Location) Found() bool { return len(l.Nodes) > 0 }

// Navigate walks the document along path
func Navigate(doc *etree.Document, path string) (Location, error) {
	segments, err := Parse(path)
	if err != nil {
		return Location{}, err
	}

	if len(segments) == 0 {
		return Location{Root: true, Nodes: doc.ChildElements()}, nil
	}

	var (
		loc     Location
		current = []*etree.Element{&doc.Element}
		parent  *etree.Element
	)

	for i, seg := range segments {
		if len(current) == 0 {
			// A previous segment matched nothing
			return Location{Name: loc.Name, Key: segments[len(segments)-1]}, nil
		}

		if seg.IsIndex {
			// [0] on a plain node addresses the node itself
			if seg.Index >= len(current) {
				parent = groupParent(current)
				current = nil
			} else {
				parent = groupParent(current)
				current = []*etree.Element{current[seg.Index]}
			}
		} else {
			if len(current) != 1 {
				// A sequence has no named members
				if i == len(segments)-1 {
					return Location{Name: seg.Name, Key: seg}, nil
				}
				current = nil
				continue
			}
			parent = current[0]
			current = parent.SelectElements(seg.Name)
			loc.Name = seg.Name
		}
	}

	loc.Parent = parent
	loc.Key = segments[len(segments)-1]
	loc.Nodes = current
	return loc, nil
}

func groupParent(group []*etree.Element) *etree.Element {
	if len(group) == 0 {
		return nil
	}
	return group[0].Parent()
}
