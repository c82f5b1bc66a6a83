package jsondoc

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/Faultbox/rigport/pkg/importerr"
	"github.com/Faultbox/rigport/pkg/scan"
)

// initialCapacity is the starting size of object and array storage; it doubles
// on overflow.
const initialCapacity = 4

// maxDepth bounds nesting so hostile input cannot exhaust the stack.
const maxDepth = 512

type parser struct {
	c     *scan.Cursor
	depth int
}

// Parse parses a complete JSON document. Trailing content other than
// whitespace or NUL padding is rejected.
func Parse(data []byte) (Value, error) {
	p := &parser{c: scan.New(data)}
	p.c.SkipWhitespace()
	v, err := p.parseValue()
	if err != nil {
		return Value{}, err
	}
	p.skipPadding()
	if !p.c.AtEnd() {
		return Value{}, importerr.At(importerr.ErrMalformedSyntax, p.c.Offset(), "content after document")
	}
	return v, nil
}

func (p *parser) skipPadding() {
	for {
		p.c.SkipWhitespace()
		b, err := p.c.Peek()
		if err != nil || b != 0 {
			return
		}
		_ = p.c.Advance(1)
	}
}

func (p *parser) parseValue() (Value, error) {
	b, err := p.c.Peek()
	if err != nil {
		return Value{}, err
	}
	switch {
	case b == '{':
		return p.parseObject()
	case b == '[':
		return p.parseArray()
	case b == '"':
		s, err := p.parseString()
		return Value{kind: String, str: s}, err
	case b == 't':
		return Value{kind: Bool, boolean: true}, p.literal("true")
	case b == 'f':
		return Value{kind: Bool}, p.literal("false")
	case b == 'n':
		return Value{kind: Null}, p.literal("null")
	case b == '-' || (b >= '0' && b <= '9'):
		n, err := p.c.ParseFloat()
		return Value{kind: Number, number: n}, err
	default:
		return Value{}, importerr.At(importerr.ErrMalformedSyntax, p.c.Offset(), "unexpected character %q", b)
	}
}

func (p *parser) literal(word string) error {
	if p.c.Len() < len(word) {
		return importerr.At(importerr.ErrUnexpectedEndOfInput, p.c.Offset(), "truncated %s", word)
	}
	return p.c.ExpectString(word)
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return importerr.At(importerr.ErrMalformedSyntax, p.c.Offset(), "nesting deeper than %d", maxDepth)
	}
	return nil
}

func (p *parser) parseObject() (Value, error) {
	if err := p.enter(); err != nil {
		return Value{}, err
	}
	defer func() { p.depth-- }()

	_ = p.c.Advance(1)
	v := Value{kind: Object, members: make([]Member, 0, initialCapacity)}

	p.c.SkipWhitespace()
	if b, err := p.c.Peek(); err != nil {
		return Value{}, err
	} else if b == '}' {
		_ = p.c.Advance(1)
		return v, nil
	}

	for {
		p.c.SkipWhitespace()
		keyOffset := p.c.Offset()
		if b, err := p.c.Peek(); err != nil {
			return Value{}, err
		} else if b != '"' {
			return Value{}, importerr.At(importerr.ErrMalformedSyntax, keyOffset, "expected object key, got %q", b)
		}
		key, err := p.parseString()
		if err != nil {
			return Value{}, err
		}
		if _, dup := v.Get(key); dup {
			return Value{}, importerr.At(importerr.ErrMalformedSyntax, keyOffset, "duplicate key %q", key)
		}

		p.c.SkipWhitespace()
		if err := p.c.Expect(':'); err != nil {
			return Value{}, err
		}
		p.c.SkipWhitespace()
		member, err := p.parseValue()
		if err != nil {
			return Value{}, err
		}
		v.members = grow(v.members)
		v.members = append(v.members, Member{Key: key, Value: member})

		p.c.SkipWhitespace()
		b, err := p.c.Next()
		if err != nil {
			return Value{}, err
		}
		switch b {
		case ',':
			continue
		case '}':
			return v, nil
		default:
			return Value{}, importerr.At(importerr.ErrMalformedSyntax, p.c.Offset()-1, "expected ',' or '}', got %q", b)
		}
	}
}

func (p *parser) parseArray() (Value, error) {
	if err := p.enter(); err != nil {
		return Value{}, err
	}
	defer func() { p.depth-- }()

	_ = p.c.Advance(1)
	v := Value{kind: Array, items: make([]Value, 0, initialCapacity)}

	p.c.SkipWhitespace()
	if b, err := p.c.Peek(); err != nil {
		return Value{}, err
	} else if b == ']' {
		_ = p.c.Advance(1)
		return v, nil
	}

	for {
		p.c.SkipWhitespace()
		item, err := p.parseValue()
		if err != nil {
			return Value{}, err
		}
		v.items = grow(v.items)
		v.items = append(v.items, item)

		p.c.SkipWhitespace()
		b, err := p.c.Next()
		if err != nil {
			return Value{}, err
		}
		switch b {
		case ',':
			continue
		case ']':
			return v, nil
		default:
			return Value{}, importerr.At(importerr.ErrMalformedSyntax, p.c.Offset()-1, "expected ',' or ']', got %q", b)
		}
	}
}

// grow doubles the capacity of s when it is full.
func grow[T any](s []T) []T {
	if len(s) < cap(s) {
		return s
	}
	n := cap(s) * 2
	if n < initialCapacity {
		n = initialCapacity
	}
	bigger := make([]T, len(s), n)
	copy(bigger, s)
	return bigger
}

func (p *parser) parseString() (string, error) {
	start := p.c.Offset()
	if err := p.c.Expect('"'); err != nil {
		return "", err
	}

	var sb strings.Builder
	for {
		b, err := p.c.Next()
		if err != nil {
			return "", importerr.At(importerr.ErrUnexpectedEndOfInput, start, "unterminated string")
		}
		switch {
		case b == '"':
			return sb.String(), nil
		case b == '\\':
			if err := p.parseEscape(&sb); err != nil {
				return "", err
			}
		case b < 0x20:
			return "", importerr.At(importerr.ErrMalformedSyntax, p.c.Offset()-1, "control character in string")
		default:
			sb.WriteByte(b)
		}
	}
}

func (p *parser) parseEscape(sb *strings.Builder) error {
	offset := p.c.Offset() - 1
	b, err := p.c.Next()
	if err != nil {
		return err
	}
	switch b {
	case '"', '\\', '/':
		sb.WriteByte(b)
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'n':
		sb.WriteByte('\n')
	case 'r':
		sb.WriteByte('\r')
	case 't':
		sb.WriteByte('\t')
	case 'u':
		r, err := p.parseHex4()
		if err != nil {
			return err
		}
		if utf16.IsSurrogate(r) {
			if !p.c.HasPrefix(`\u`) {
				sb.WriteRune(utf8.RuneError)
				return nil
			}
			_ = p.c.Advance(2)
			r2, err := p.parseHex4()
			if err != nil {
				return err
			}
			r = utf16.DecodeRune(r, r2)
		}
		sb.WriteRune(r)
	default:
		return importerr.At(importerr.ErrMalformedSyntax, offset, "invalid escape \\%c", b)
	}
	return nil
}

func (p *parser) parseHex4() (rune, error) {
	offset := p.c.Offset()
	if err := p.c.Advance(4); err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(string(p.c.Bytes(offset, offset+4)), 16, 16)
	if err != nil {
		return 0, importerr.At(importerr.ErrMalformedSyntax, offset, "invalid unicode escape")
	}
	return rune(v), nil
}
