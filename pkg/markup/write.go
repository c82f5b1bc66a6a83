package markup

import (
	"bytes"
	"io"
)

// WriteTo serializes the tree as markup. Attribute values and text are written
// as stored, so parsing the output yields a tree with the same names,
// attributes and child order.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	if d.root != InvalidNode {
		d.writeNode(&buf, d.root, 0)
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// Bytes returns the serialized tree.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	d.WriteTo(&buf)
	return buf.Bytes()
}

func (d *Document) writeNode(buf *bytes.Buffer, id NodeID, depth int) {
	indent(buf, depth)
	buf.WriteByte('<')
	buf.Write(d.span(d.nodes[id].name))
	for _, a := range d.Attrs(id) {
		value := d.span(a.Value)
		quote := byte('"')
		if bytes.IndexByte(value, '"') >= 0 {
			quote = '\''
		}
		buf.WriteByte(' ')
		buf.Write(d.span(a.Name))
		buf.WriteByte('=')
		buf.WriteByte(quote)
		buf.Write(value)
		buf.WriteByte(quote)
	}

	switch d.nodes[id].kind {
	case ContentSelfClosing:
		buf.WriteString("/>\n")
		return
	case ContentText:
		buf.WriteByte('>')
		buf.Write(d.Text(id))
	case ContentChildren:
		buf.WriteString(">\n")
		for c := d.nodes[id].firstChild; c != InvalidNode; c = d.nodes[c].nextSibling {
			d.writeNode(buf, c, depth+1)
		}
		indent(buf, depth)
	}
	buf.WriteString("</")
	buf.Write(d.span(d.nodes[id].name))
	buf.WriteString(">\n")
}

func indent(buf *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString("  ")
	}
}
