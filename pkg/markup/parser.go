package markup

import (
	"bytes"

	"github.com/Faultbox/rigport/pkg/importerr"
	"github.com/Faultbox/rigport/pkg/scan"
)

// maxDepth bounds element nesting so hostile input cannot exhaust the stack.
const maxDepth = 512

type parser struct {
	c     *scan.Cursor
	doc   *Document
	depth int
}

// Parse parses data into a Document. Any syntax error aborts the parse and no
// tree is returned.
func Parse(data []byte) (*Document, error) {
	p := &parser{
		c: scan.New(data),
		doc: &Document{
			src:   data,
			nodes: make([]node, 0, 64),
			attrs: make([]Attr, 0, 64),
			root:  InvalidNode,
		},
	}

	if err := p.skipMisc(); err != nil {
		return nil, err
	}
	if p.c.AtEnd() {
		return nil, importerr.At(importerr.ErrUnexpectedEndOfInput, p.c.Offset(), "no root element")
	}

	root, err := p.parseElement(InvalidNode)
	if err != nil {
		return nil, err
	}
	p.doc.root = root

	if err := p.skipMisc(); err != nil {
		return nil, err
	}
	if !p.c.AtEnd() {
		return nil, importerr.At(importerr.ErrMalformedSyntax, p.c.Offset(), "content after root element")
	}
	return p.doc, nil
}

// skipMisc skips whitespace, comments, declarations and processing instructions.
func (p *parser) skipMisc() error {
	for {
		p.c.SkipWhitespace()
		var end string
		switch {
		case p.c.HasPrefix("<!--"):
			end = "-->"
		case p.c.HasPrefix("<?"):
			end = "?>"
		case p.c.HasPrefix("<!") && !p.c.HasPrefix("<![CDATA["):
			end = ">"
		default:
			return nil
		}
		if err := p.c.Advance(2); err != nil {
			return err
		}
		if err := p.c.SkipUntil(end); err != nil {
			return err
		}
		if err := p.c.Advance(len(end)); err != nil {
			return err
		}
	}
}

func (p *parser) parseElement(parent NodeID) (NodeID, error) {
	offset := p.c.Offset()
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxDepth {
		return InvalidNode, importerr.At(importerr.ErrMalformedSyntax, offset, "nesting deeper than %d", maxDepth)
	}
	if err := p.c.Expect('<'); err != nil {
		return InvalidNode, err
	}
	name, err := p.parseName()
	if err != nil {
		return InvalidNode, err
	}

	id := NodeID(len(p.doc.nodes))
	p.doc.nodes = append(p.doc.nodes, node{
		offset:      offset,
		name:        name,
		attrOff:     len(p.doc.attrs),
		parent:      parent,
		firstChild:  InvalidNode,
		nextSibling: InvalidNode,
	})

	selfClosing, err := p.parseAttributes(id)
	if err != nil {
		return InvalidNode, err
	}
	if selfClosing {
		p.doc.nodes[id].kind = ContentSelfClosing
		return id, nil
	}

	if err := p.parseContent(id); err != nil {
		return InvalidNode, err
	}
	if err := p.parseCloseTag(id); err != nil {
		return InvalidNode, err
	}
	return id, nil
}

// parseAttributes reads attributes up to and including '>' or '/>'.
func (p *parser) parseAttributes(id NodeID) (selfClosing bool, err error) {
	for {
		p.c.SkipWhitespace()
		b, err := p.c.Peek()
		if err != nil {
			return false, err
		}
		switch b {
		case '/':
			return true, p.c.ExpectString("/>")
		case '>':
			return false, p.c.Advance(1)
		}

		name, err := p.parseName()
		if err != nil {
			return false, err
		}
		p.c.SkipWhitespace()
		if err := p.c.Expect('='); err != nil {
			return false, err
		}
		p.c.SkipWhitespace()
		value, err := p.parseQuoted()
		if err != nil {
			return false, err
		}
		p.doc.attrs = append(p.doc.attrs, Attr{Name: name, Value: value})
		p.doc.nodes[id].attrLen++
	}
}

func (p *parser) parseQuoted() (Span, error) {
	start := p.c.Offset()
	quote, err := p.c.Next()
	if err != nil {
		return Span{}, err
	}
	if quote != '"' && quote != '\'' {
		return Span{}, importerr.At(importerr.ErrMalformedSyntax, start, "attribute value must be quoted")
	}
	valueStart := p.c.Offset()
	if err := p.c.SkipUntil(string(quote)); err != nil {
		return Span{}, importerr.At(importerr.ErrUnexpectedEndOfInput, start, "missing closing quote")
	}
	value := Span{Start: valueStart, End: p.c.Offset()}
	return value, p.c.Advance(1)
}

func (p *parser) parseName() (Span, error) {
	start := p.c.Offset()
	for {
		b, err := p.c.Peek()
		if err != nil {
			return Span{}, err
		}
		if !isNameByte(b) {
			break
		}
		_ = p.c.Advance(1)
	}
	if p.c.Offset() == start {
		b, _ := p.c.Peek()
		return Span{}, importerr.At(importerr.ErrMalformedSyntax, start, "unexpected character %q", b)
	}
	return Span{Start: start, End: p.c.Offset()}, nil
}

// parseContent reads either a text run or a sequence of child elements,
// stopping in front of the close tag.
func (p *parser) parseContent(id NodeID) error {
	if err := p.skipMisc(); err != nil {
		return err
	}

	if p.c.HasPrefix("</") {
		p.doc.nodes[id].kind = ContentText
		p.doc.nodes[id].text = Span{Start: p.c.Offset(), End: p.c.Offset()}
		return nil
	}

	b, err := p.c.Peek()
	if err != nil {
		return err
	}
	if b == '<' {
		return p.parseChildren(id)
	}
	return p.parseText(id)
}

func (p *parser) parseText(id NodeID) error {
	start := p.c.Offset()
	if err := p.c.SkipUntil("<"); err != nil {
		return err
	}
	if !p.c.HasPrefix("</") {
		return importerr.At(importerr.ErrMalformedSyntax, p.c.Offset(), "element mixed with text in <%s>", p.doc.Name(id))
	}
	text := bytes.TrimRight(p.doc.src[start:p.c.Offset()], " \t\r\n")
	p.doc.nodes[id].kind = ContentText
	p.doc.nodes[id].text = Span{Start: start, End: start + len(text)}
	return nil
}

func (p *parser) parseChildren(id NodeID) error {
	p.doc.nodes[id].kind = ContentChildren
	prev := InvalidNode
	for {
		if err := p.skipMisc(); err != nil {
			return err
		}
		if p.c.HasPrefix("</") {
			return nil
		}
		b, err := p.c.Peek()
		if err != nil {
			return err
		}
		if b != '<' {
			return importerr.At(importerr.ErrMalformedSyntax, p.c.Offset(), "text mixed with elements in <%s>", p.doc.Name(id))
		}

		child, err := p.parseElement(id)
		if err != nil {
			return err
		}
		if prev == InvalidNode {
			p.doc.nodes[id].firstChild = child
		} else {
			p.doc.nodes[prev].nextSibling = child
		}
		prev = child
	}
}

func (p *parser) parseCloseTag(id NodeID) error {
	offset := p.c.Offset()
	if err := p.c.ExpectString("</"); err != nil {
		return err
	}
	name, err := p.parseName()
	if err != nil {
		return err
	}
	open := p.doc.nodes[id].name
	if !bytes.Equal(p.doc.span(name), p.doc.span(open)) {
		return importerr.At(importerr.ErrMismatchedCloseTag, offset,
			"expected </%s>, got </%s>", p.doc.span(open), p.doc.span(name))
	}
	p.c.SkipWhitespace()
	return p.c.Expect('>')
}

func isNameByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') ||
		b == '_' || b == ':' || b == '-' || b == '.'
}
