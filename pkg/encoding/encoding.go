// Package encoding normalizes the text encoding of markup input to UTF-8
// before parsing.
package encoding

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/Faultbox/rigport/pkg/importerr"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// HasBOM reports whether data starts with a UTF-8 or UTF-16 byte order mark.
func HasBOM(data []byte) bool {
	return bytes.HasPrefix(data, bomUTF8) || bytes.HasPrefix(data, bomUTF16LE) || bytes.HasPrefix(data, bomUTF16BE)
}

// ToUTF8 returns markup input as UTF-8 without a byte order mark.
// A BOM selects UTF-8 or UTF-16; otherwise the encoding named in the XML
// declaration is honored. Plain UTF-8 input is returned unchanged.
func ToUTF8(data []byte) ([]byte, error) {
	if HasBOM(data) {
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err != nil {
			return nil, importerr.New(importerr.ErrMalformedSyntax, "decoding byte order mark: %v", err)
		}
		return out, nil
	}

	name := DeclaredEncoding(data)
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "us-ascii") {
		return data, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, importerr.New(importerr.ErrMalformedSyntax, "unsupported document encoding %q", name)
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return nil, importerr.New(importerr.ErrMalformedSyntax, "decoding %s: %v", name, err)
	}
	return out, nil
}

// DeclaredEncoding returns the encoding attribute of a leading XML
// declaration, or "".
func DeclaredEncoding(data []byte) string {
	if !bytes.HasPrefix(data, []byte("<?xml")) {
		return ""
	}
	end := bytes.Index(data, []byte("?>"))
	if end < 0 {
		return ""
	}
	decl := data[:end]
	i := bytes.Index(decl, []byte("encoding"))
	if i < 0 {
		return ""
	}
	rest := bytes.TrimLeft(decl[i+len("encoding"):], " \t\r\n")
	if len(rest) == 0 || rest[0] != '=' {
		return ""
	}
	rest = bytes.TrimLeft(rest[1:], " \t\r\n")
	if len(rest) == 0 || (rest[0] != '"' && rest[0] != '\'') {
		return ""
	}
	quote := rest[0]
	j := bytes.IndexByte(rest[1:], quote)
	if j < 0 {
		return ""
	}
	return string(rest[1 : 1+j])
}
