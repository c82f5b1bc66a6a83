package encoding

import (
	"errors"
	"testing"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/Faultbox/rigport/pkg/importerr"
)

func TestToUTF8_PlainUnchanged(t *testing.T) {
	in := []byte(`<?xml version="1.0" encoding="utf-8"?><a/>`)
	out, err := ToUTF8(in)
	if err != nil {
		t.Fatalf("ToUTF8 failed: %v", err)
	}
	if &out[0] != &in[0] {
		t.Error("expected plain UTF-8 input to be returned without copying")
	}
}

func TestToUTF8_UTF8BOM(t *testing.T) {
	out, err := ToUTF8(append([]byte{0xEF, 0xBB, 0xBF}, "<a/>"...))
	if err != nil {
		t.Fatalf("ToUTF8 failed: %v", err)
	}
	if string(out) != "<a/>" {
		t.Errorf("got %q, want <a/>", out)
	}
}

func TestToUTF8_UTF16(t *testing.T) {
	tests := []struct {
		name       string
		endianness unicode.Endianness
	}{
		{"little endian", unicode.LittleEndian},
		{"big endian", unicode.BigEndian},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := unicode.UTF16(tt.endianness, unicode.UseBOM).NewEncoder()
			in, _, err := transform.Bytes(enc, []byte(`<joint name="Schulter"/>`))
			if err != nil {
				t.Fatal(err)
			}
			out, err := ToUTF8(in)
			if err != nil {
				t.Fatalf("ToUTF8 failed: %v", err)
			}
			if string(out) != `<joint name="Schulter"/>` {
				t.Errorf("got %q", out)
			}
		})
	}
}

func TestToUTF8_DeclaredLatin1(t *testing.T) {
	in := append([]byte(`<?xml version="1.0" encoding='ISO-8859-1'?><n id="caf`), 0xE9, '"', '/', '>')
	out, err := ToUTF8(in)
	if err != nil {
		t.Fatalf("ToUTF8 failed: %v", err)
	}
	want := `<?xml version="1.0" encoding='ISO-8859-1'?><n id="café"/>`
	if string(out) != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestToUTF8_UnknownEncoding(t *testing.T) {
	_, err := ToUTF8([]byte(`<?xml version="1.0" encoding="x-made-up"?><a/>`))
	if !errors.Is(err, importerr.ErrMalformedSyntax) {
		t.Errorf("expected ErrMalformedSyntax, got %v", err)
	}
}

func TestDeclaredEncoding(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`<?xml version="1.0" encoding="UTF-8"?>`, "UTF-8"},
		{`<?xml encoding = 'latin1' ?>`, "latin1"},
		{`<?xml version="1.0"?><a encoding="x"/>`, ""},
		{`<a/>`, ""},
		{`<?xml encoding="unterminated`, ""},
	}
	for _, tt := range tests {
		if got := DeclaredEncoding([]byte(tt.input)); got != tt.want {
			t.Errorf("DeclaredEncoding(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
