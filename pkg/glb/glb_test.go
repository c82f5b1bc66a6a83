package glb

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/rigport/pkg/importerr"
)

func TestRead_RoundTrip(t *testing.T) {
	json := []byte(`{"asset":{"version":"2.0"}}`)
	bin := []byte{1, 2, 3, 4, 5}

	data := Encode(json, bin)
	if len(data)%4 != 0 {
		t.Errorf("encoded length %d not 4-aligned", len(data))
	}
	if !IsGLB(data) {
		t.Fatal("IsGLB = false for encoded container")
	}

	c, err := Read(data)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if c.Version != 2 {
		t.Errorf("version = %d, want 2", c.Version)
	}
	if int(c.Length) != len(data) {
		t.Errorf("length = %d, want %d", c.Length, len(data))
	}
	if string(c.JSON[:len(json)]) != string(json) {
		t.Errorf("JSON chunk = %q", c.JSON)
	}
	for _, b := range c.JSON[len(json):] {
		if b != ' ' {
			t.Errorf("JSON padding byte %q, want space", b)
		}
	}
	if len(c.BIN) != 8 || c.BIN[4] != 5 || c.BIN[7] != 0 {
		t.Errorf("BIN chunk = %v", c.BIN)
	}
}

func TestRead_NoBinaryChunk(t *testing.T) {
	c, err := Read(Encode([]byte(`{}`), nil))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if c.BIN != nil {
		t.Errorf("expected nil BIN, got %v", c.BIN)
	}
}

func TestRead_Errors(t *testing.T) {
	valid := Encode([]byte(`{}`), []byte{9, 9, 9, 9})

	corrupt := func(mutate func(b []byte) []byte) []byte {
		b := append([]byte(nil), valid...)
		return mutate(b)
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty", nil, importerr.ErrUnexpectedEndOfInput},
		{"short header", valid[:8], importerr.ErrUnexpectedEndOfInput},
		{"bad magic", corrupt(func(b []byte) []byte { b[0] = 'x'; return b }), importerr.ErrMalformedSyntax},
		{"bad version", corrupt(func(b []byte) []byte { binary.LittleEndian.PutUint32(b[4:], 1); return b }), importerr.ErrMalformedSyntax},
		{"truncated body", valid[:len(valid)-2], importerr.ErrUnexpectedEndOfInput},
		{"chunk overruns", corrupt(func(b []byte) []byte { binary.LittleEndian.PutUint32(b[12:], 999); return b }), importerr.ErrUnexpectedEndOfInput},
		{"first chunk not JSON", corrupt(func(b []byte) []byte { binary.LittleEndian.PutUint32(b[16:], ChunkBIN); return b }), importerr.ErrMalformedSyntax},
		{"second chunk not BIN", corrupt(func(b []byte) []byte { binary.LittleEndian.PutUint32(b[28:], ChunkJSON); return b }), importerr.ErrMalformedSyntax},
		{"trailing bytes", corrupt(func(b []byte) []byte {
			b = append(b, 0, 0)
			binary.LittleEndian.PutUint32(b[8:], uint32(len(b)))
			return b
		}), importerr.ErrInconsistentAsset},
		{"length below header", corrupt(func(b []byte) []byte { binary.LittleEndian.PutUint32(b[8:], 4); return b }), importerr.ErrInconsistentAsset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Read(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if c != nil {
				t.Error("expected nil container on error")
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.glb")
	if err := os.WriteFile(path, Encode([]byte(`{}`), nil), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(path); err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.glb")); err == nil {
		t.Error("expected error for missing file")
	}
}
