// Package scan provides cursor-based reading primitives over an in-memory byte buffer.
// The parsers in this module build on it; every read is bounds-checked and reports
// failures as importerr values carrying the byte offset.
package scan

import (
	"bytes"
	"strconv"

	"github.com/Faultbox/rigport/pkg/importerr"
)

// Cursor is a read position within a byte buffer.
type Cursor struct {
	buf []byte
	pos int
}

// New returns a cursor at the start of buf.
func New(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Offset returns the current byte offset.
func (c *Cursor) Offset() int {
	return c.pos
}

// Len returns the number of unread bytes.
func (c *Cursor) Len() int {
	return len(c.buf) - c.pos
}

// AtEnd reports whether all input has been consumed.
func (c *Cursor) AtEnd() bool {
	return c.pos >= len(c.buf)
}

// Bytes returns buf[start:end]. The range must lie within the buffer.
func (c *Cursor) Bytes(start, end int) []byte {
	return c.buf[start:end]
}

// Peek returns the current byte without consuming it.
func (c *Cursor) Peek() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, c.eof()
	}
	return c.buf[c.pos], nil
}

// PeekAt returns the byte n positions ahead without consuming anything.
func (c *Cursor) PeekAt(n int) (byte, error) {
	if c.pos+n >= len(c.buf) {
		return 0, c.eof()
	}
	return c.buf[c.pos+n], nil
}

// Next consumes and returns the current byte.
func (c *Cursor) Next() (byte, error) {
	b, err := c.Peek()
	if err != nil {
		return 0, err
	}
	c.pos++
	return b, nil
}

// Advance skips n bytes.
func (c *Cursor) Advance(n int) error {
	if c.pos+n > len(c.buf) {
		return c.eof()
	}
	c.pos += n
	return nil
}

// HasPrefix reports whether the unread input starts with s.
func (c *Cursor) HasPrefix(s string) bool {
	return c.pos <= len(c.buf) && bytes.HasPrefix(c.buf[c.pos:], []byte(s))
}

// Expect consumes b or fails with MalformedSyntax.
func (c *Cursor) Expect(b byte) error {
	got, err := c.Peek()
	if err != nil {
		return err
	}
	if got != b {
		return importerr.At(importerr.ErrMalformedSyntax, c.pos, "expected %q, got %q", b, got)
	}
	c.pos++
	return nil
}

// ExpectString consumes s or fails.
func (c *Cursor) ExpectString(s string) error {
	if c.Len() < len(s) {
		return c.eof()
	}
	if !c.HasPrefix(s) {
		return importerr.At(importerr.ErrMalformedSyntax, c.pos, "expected %q", s)
	}
	c.pos += len(s)
	return nil
}

// SkipUntil advances to the next occurrence of s, leaving the cursor on it.
func (c *Cursor) SkipUntil(s string) error {
	i := bytes.Index(c.buf[c.pos:], []byte(s))
	if i < 0 {
		c.pos = len(c.buf)
		return c.eof()
	}
	c.pos += i
	return nil
}

// SkipWhitespace advances past spaces, tabs, carriage returns and newlines.
func (c *Cursor) SkipWhitespace() {
	for c.pos < len(c.buf) && IsSpace(c.buf[c.pos]) {
		c.pos++
	}
}

// ParseInt consumes a run of sign and digit characters and converts it.
// Leading whitespace is not skipped.
func (c *Cursor) ParseInt() (int, error) {
	start := c.pos
	run := c.takeRun(isIntByte)
	if len(run) == 0 {
		if c.AtEnd() {
			return 0, c.eof()
		}
		return 0, importerr.At(importerr.ErrMalformedSyntax, start, "expected integer")
	}
	v, err := strconv.Atoi(string(run))
	if err != nil {
		return 0, importerr.At(importerr.ErrMalformedSyntax, start, "invalid integer %q", run)
	}
	return v, nil
}

// ParseFloat consumes a run of sign, digit, decimal point and exponent
// characters and converts it to a 32-bit float.
// Leading whitespace is not skipped.
func (c *Cursor) ParseFloat() (float32, error) {
	start := c.pos
	run := c.takeRun(isFloatByte)
	if len(run) == 0 {
		if c.AtEnd() {
			return 0, c.eof()
		}
		return 0, importerr.At(importerr.ErrMalformedSyntax, start, "expected number")
	}
	v, err := strconv.ParseFloat(string(run), 32)
	if err != nil {
		return 0, importerr.At(importerr.ErrMalformedSyntax, start, "invalid number %q", run)
	}
	return float32(v), nil
}

func (c *Cursor) takeRun(accept func(byte) bool) []byte {
	start := c.pos
	for c.pos < len(c.buf) && accept(c.buf[c.pos]) {
		c.pos++
	}
	return c.buf[start:c.pos]
}

func (c *Cursor) eof() error {
	return &importerr.Error{Err: importerr.ErrUnexpectedEndOfInput, Offset: c.pos}
}

// IsSpace reports whether b is markup/JSON whitespace.
func IsSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isIntByte(b byte) bool {
	return (b >= '0' && b <= '9') || b == '-' || b == '+'
}

func isFloatByte(b byte) bool {
	return isIntByte(b) || b == '.' || b == 'e' || b == 'E'
}

// ParseFloats parses a whitespace-separated list of numbers.
func ParseFloats(text []byte) ([]float32, error) {
	c := New(text)
	out := make([]float32, 0, len(text)/4)
	for {
		c.SkipWhitespace()
		if c.AtEnd() {
			return out, nil
		}
		v, err := c.ParseFloat()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

// ParseInts parses a whitespace-separated list of integers.
func ParseInts(text []byte) ([]int, error) {
	c := New(text)
	out := make([]int, 0, len(text)/2)
	for {
		c.SkipWhitespace()
		if c.AtEnd() {
			return out, nil
		}
		v, err := c.ParseInt()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}
