package jsondoc

import (
	"errors"
	"testing"

	"github.com/Faultbox/rigport/pkg/importerr"
)

func TestParse_Document(t *testing.T) {
	input := `{
		"asset": {"version": "2.0"},
		"accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}],
		"scale": -1.5e2,
		"flag": true,
		"none": null,
		"empty": {},
		"list": [],
		"text": "a\"b\\c\/d\né😀"
	}`

	v, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if v.Kind() != Object {
		t.Fatalf("expected object, got %s", v.Kind())
	}
	if v.Len() != 8 {
		t.Errorf("expected 8 members, got %d", v.Len())
	}
	if v.Members()[0].Key != "asset" || v.Members()[7].Key != "text" {
		t.Error("members not in document order")
	}

	accessors, ok := v.Get("accessors")
	if !ok || accessors.Kind() != Array || accessors.Len() != 1 {
		t.Fatalf("unexpected accessors value: %+v", accessors)
	}
	acc, _ := accessors.Index(0)
	if n, err := acc.RequireInt("componentType"); err != nil || n != 5126 {
		t.Errorf("componentType = %d (%v), want 5126", n, err)
	}
	if s, err := acc.RequireString("type"); err != nil || s != "VEC3" {
		t.Errorf("type = %q (%v), want VEC3", s, err)
	}

	if n, _ := mustGet(t, v, "scale").Number(); n != -150 {
		t.Errorf("scale = %v, want -150", n)
	}
	if b, ok := mustGet(t, v, "flag").Bool(); !ok || !b {
		t.Error("expected flag true")
	}
	if !mustGet(t, v, "none").IsNull() {
		t.Error("expected null")
	}
	if mustGet(t, v, "empty").Kind() != Object || mustGet(t, v, "list").Kind() != Array {
		t.Error("expected empty object and array")
	}
	if s, _ := mustGet(t, v, "text").Str(); s != "a\"b\\c/d\né😀" {
		t.Errorf("text = %q", s)
	}
}

func mustGet(t *testing.T, v Value, key string) Value {
	t.Helper()
	m, ok := v.Get(key)
	if !ok {
		t.Fatalf("missing key %q", key)
	}
	return m
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"empty", ``, importerr.ErrUnexpectedEndOfInput},
		{"unterminated object", `{"a": 1`, importerr.ErrUnexpectedEndOfInput},
		{"unterminated string", `"abc`, importerr.ErrUnexpectedEndOfInput},
		{"missing colon", `{"a" 1}`, importerr.ErrMalformedSyntax},
		{"unquoted key", `{a: 1}`, importerr.ErrMalformedSyntax},
		{"duplicate key", `{"a": 1, "a": 2}`, importerr.ErrMalformedSyntax},
		{"trailing comma", `[1, 2, ]`, importerr.ErrMalformedSyntax},
		{"bad literal", `tru`, importerr.ErrUnexpectedEndOfInput},
		{"misspelled literal", `nul1`, importerr.ErrMalformedSyntax},
		{"bad escape", `"\x"`, importerr.ErrMalformedSyntax},
		{"trailing content", `{} {}`, importerr.ErrMalformedSyntax},
		{"bare minus", `-`, importerr.ErrMalformedSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParse_PaddingAndGrowth(t *testing.T) {
	input := []byte(`[0,1,2,3,4,5,6,7,8,9,10,11,12,13,14,15,16]   ` + "\x00\x00")
	v, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if v.Len() != 17 {
		t.Fatalf("expected 17 items, got %d", v.Len())
	}
	ints, err := v.Ints("list")
	if err != nil {
		t.Fatalf("Ints failed: %v", err)
	}
	for i, n := range ints {
		if n != i {
			t.Errorf("item %d = %d", i, n)
		}
	}
}

func TestValue_Accessors(t *testing.T) {
	v, err := Parse([]byte(`{"n": 2.5, "neg": -1, "s": "x", "f": [1, 0.5]}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if _, err := v.RequireInt("missing"); !errors.Is(err, importerr.ErrMissingRequiredKey) {
		t.Errorf("expected ErrMissingRequiredKey, got %v", err)
	}
	if _, err := v.RequireInt("n"); !errors.Is(err, importerr.ErrMalformedSyntax) {
		t.Errorf("expected ErrMalformedSyntax for fractional int, got %v", err)
	}
	if _, err := v.RequireInt("neg"); !errors.Is(err, importerr.ErrMalformedSyntax) {
		t.Errorf("expected ErrMalformedSyntax for negative int, got %v", err)
	}
	if _, err := v.RequireString("n"); !errors.Is(err, importerr.ErrMalformedSyntax) {
		t.Errorf("expected ErrMalformedSyntax for non-string, got %v", err)
	}
	if n, err := v.OptionalInt("absent", 7); err != nil || n != 7 {
		t.Errorf("OptionalInt = %d (%v), want 7", n, err)
	}
	f, err := mustGet(t, v, "f").Floats("f")
	if err != nil || len(f) != 2 || f[1] != 0.5 {
		t.Errorf("Floats = %v (%v)", f, err)
	}
	if _, err := mustGet(t, v, "s").Require("x"); !errors.Is(err, importerr.ErrMalformedSyntax) {
		t.Errorf("expected ErrMalformedSyntax for lookup on string, got %v", err)
	}
	if _, ok := mustGet(t, v, "f").Index(5); ok {
		t.Error("expected out-of-range index to fail")
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Null, "null"},
		{Object, "object"},
		{Kind(42), "Unknown(42)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}
