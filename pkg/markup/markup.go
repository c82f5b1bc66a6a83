// Package markup implements a small recursive-descent parser for the XML subset
// found in COLLADA documents.
//
// A parsed Document is an arena: nodes and attributes live in flat slices and
// refer to each other by NodeID. Names, attribute values and text are byte spans
// into the source buffer, so the whole tree is released at once when the
// Document is dropped.
package markup

import (
	"bytes"
	"fmt"

	"github.com/Faultbox/rigport/pkg/importerr"
)

// NodeID identifies an element in a Document.
type NodeID int

// InvalidNode is returned by lookups that find nothing.
const InvalidNode NodeID = -1

// Span is a half-open byte range [Start, End) into the source buffer.
type Span struct {
	Start, End int
}

// Len returns the span length in bytes.
func (s Span) Len() int {
	return s.End - s.Start
}

// Attr is a name/value pair. Values are stored without their quotes and
// without entity decoding.
type Attr struct {
	Name  Span
	Value Span
}

// ContentKind tells which of the mutually exclusive content forms a node has.
type ContentKind uint8

const (
	ContentSelfClosing ContentKind = iota // <name/>
	ContentText                           // <name>text</name>, text may be empty
	ContentChildren                       // <name><child/>...</name>
)

// String returns a human-readable content kind.
func (k ContentKind) String() string {
	switch k {
	case ContentSelfClosing:
		return "SelfClosing"
	case ContentText:
		return "Text"
	case ContentChildren:
		return "Children"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

type node struct {
	offset      int
	name        Span
	attrOff     int
	attrLen     int
	kind        ContentKind
	text        Span
	parent      NodeID
	firstChild  NodeID
	nextSibling NodeID
}

// Document is a parsed element tree.
type Document struct {
	src   []byte
	nodes []node
	attrs []Attr
	root  NodeID
}

// Root returns the document element.
func (d *Document) Root() NodeID {
	return d.root
}

// Len returns the number of elements in the document.
func (d *Document) Len() int {
	return len(d.nodes)
}

// Source returns the buffer the document was parsed from.
func (d *Document) Source() []byte {
	return d.src
}

func (d *Document) span(s Span) []byte {
	return d.src[s.Start:s.End]
}

// Name returns the element name.
func (d *Document) Name(id NodeID) string {
	return string(d.span(d.nodes[id].name))
}

// Offset returns the byte offset of the element's opening '<'.
func (d *Document) Offset(id NodeID) int {
	return d.nodes[id].offset
}

// Kind returns the element's content form.
func (d *Document) Kind(id NodeID) ContentKind {
	return d.nodes[id].kind
}

// Text returns the trimmed text content, or nil if the element has none.
func (d *Document) Text(id NodeID) []byte {
	n := &d.nodes[id]
	if n.kind != ContentText {
		return nil
	}
	return d.span(n.text)
}

// Parent returns the enclosing element, or InvalidNode for the root.
func (d *Document) Parent(id NodeID) NodeID {
	return d.nodes[id].parent
}

// FirstChild returns the first child element, or InvalidNode.
func (d *Document) FirstChild(id NodeID) NodeID {
	return d.nodes[id].firstChild
}

// NextSibling returns the following sibling element, or InvalidNode.
func (d *Document) NextSibling(id NodeID) NodeID {
	return d.nodes[id].nextSibling
}

// Child returns the first child element named name, or InvalidNode.
func (d *Document) Child(id NodeID, name string) NodeID {
	for c := d.nodes[id].firstChild; c != InvalidNode; c = d.nodes[c].nextSibling {
		if d.nameIs(c, name) {
			return c
		}
	}
	return InvalidNode
}

// Children returns every child element named name, in document order.
func (d *Document) Children(id NodeID, name string) []NodeID {
	var out []NodeID
	for c := d.nodes[id].firstChild; c != InvalidNode; c = d.nodes[c].nextSibling {
		if d.nameIs(c, name) {
			out = append(out, c)
		}
	}
	return out
}

// Path follows a chain of first-match child lookups starting at id.
func (d *Document) Path(id NodeID, names ...string) NodeID {
	for _, name := range names {
		if id == InvalidNode {
			return InvalidNode
		}
		id = d.Child(id, name)
	}
	return id
}

func (d *Document) nameIs(id NodeID, name string) bool {
	n := d.nodes[id].name
	return n.Len() == len(name) && string(d.span(n)) == name
}

// Attrs returns the element's attributes in document order.
func (d *Document) Attrs(id NodeID) []Attr {
	n := &d.nodes[id]
	return d.attrs[n.attrOff : n.attrOff+n.attrLen]
}

// AttrName returns the attribute name as a string.
func (d *Document) AttrName(a Attr) string {
	return string(d.span(a.Name))
}

// AttrValue returns the raw attribute value as a string.
func (d *Document) AttrValue(a Attr) string {
	return string(d.span(a.Value))
}

// Attr returns the value of the first attribute named name.
func (d *Document) Attr(id NodeID, name string) (string, bool) {
	for _, a := range d.Attrs(id) {
		if a.Name.Len() == len(name) && bytes.Equal(d.span(a.Name), []byte(name)) {
			return d.AttrValue(a), true
		}
	}
	return "", false
}

// RequireChild is Child that fails with ErrMissingRequiredElement.
func (d *Document) RequireChild(id NodeID, name string) (NodeID, error) {
	c := d.Child(id, name)
	if c == InvalidNode {
		return InvalidNode, importerr.At(importerr.ErrMissingRequiredElement, d.Offset(id),
			"<%s> has no <%s>", d.Name(id), name)
	}
	return c, nil
}

// RequirePath is Path that fails with ErrMissingRequiredElement naming the
// first missing step.
func (d *Document) RequirePath(id NodeID, names ...string) (NodeID, error) {
	for _, name := range names {
		c, err := d.RequireChild(id, name)
		if err != nil {
			return InvalidNode, err
		}
		id = c
	}
	return id, nil
}

// RequireAttr is Attr that fails with ErrMissingRequiredElement.
func (d *Document) RequireAttr(id NodeID, name string) (string, error) {
	v, ok := d.Attr(id, name)
	if !ok {
		return "", importerr.At(importerr.ErrMissingRequiredElement, d.Offset(id),
			"<%s> has no %s attribute", d.Name(id), name)
	}
	return v, nil
}
