package importerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Is(t *testing.T) {
	err := At(ErrMismatchedCloseTag, 12, "expected </a>, got </b>")
	wrapped := fmt.Errorf("parsing scene: %w", err)

	if !errors.Is(wrapped, ErrMismatchedCloseTag) {
		t.Errorf("expected wrapped error to match ErrMismatchedCloseTag")
	}
	if errors.Is(wrapped, ErrMalformedSyntax) {
		t.Errorf("wrapped error should not match ErrMalformedSyntax")
	}
}

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"offset and detail", At(ErrMalformedSyntax, 3, "unexpected %q", '>'), "malformed syntax at offset 3: unexpected '>'"},
		{"detail only", New(ErrInconsistentAsset, "joint %d out of range", 9), "inconsistent asset: joint 9 out of range"},
		{"bare", &Error{Err: ErrUnexpectedEndOfInput, Offset: NoOffset}, "unexpected end of input"},
		{"offset only", &Error{Err: ErrUnexpectedEndOfInput, Offset: 7}, "unexpected end of input at offset 7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOffsetOf(t *testing.T) {
	off, ok := OffsetOf(fmt.Errorf("ctx: %w", At(ErrMalformedSyntax, 42, "x")))
	if !ok || off != 42 {
		t.Errorf("OffsetOf = (%d, %v), want (42, true)", off, ok)
	}

	if _, ok := OffsetOf(New(ErrInconsistentAsset, "x")); ok {
		t.Error("expected no offset for New")
	}
	if _, ok := OffsetOf(errors.New("plain")); ok {
		t.Error("expected no offset for plain error")
	}
}
