// Package jsondoc implements a recursive-descent JSON parser producing a
// dynamically typed value tree. Numbers are stored as 32-bit floats.
package jsondoc

import (
	"fmt"

	"github.com/Faultbox/rigport/pkg/importerr"
)

// Kind is the variant tag of a Value.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Member is one key/value pair of an object.
type Member struct {
	Key   string
	Value Value
}

// Value is a tagged union over the JSON value kinds. Only the payload that
// matches Kind is meaningful.
type Value struct {
	kind    Kind
	boolean bool
	number  float32
	str     string
	items   []Value
	members []Member
}

// Kind returns the variant tag.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether v is null.
func (v Value) IsNull() bool {
	return v.kind == Null
}

// Bool returns the boolean payload.
func (v Value) Bool() (bool, bool) {
	return v.boolean, v.kind == Bool
}

// Number returns the numeric payload.
func (v Value) Number() (float32, bool) {
	return v.number, v.kind == Number
}

// Str returns the string payload.
func (v Value) Str() (string, bool) {
	return v.str, v.kind == String
}

// Items returns the elements of an array, or nil.
func (v Value) Items() []Value {
	return v.items
}

// Members returns the pairs of an object in document order, or nil.
func (v Value) Members() []Member {
	return v.members
}

// Len returns the element count of an array or the member count of an object.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.items)
	case Object:
		return len(v.members)
	default:
		return 0
	}
}

// Get returns the value stored under key. Objects are scanned linearly.
func (v Value) Get(key string) (Value, bool) {
	for i := range v.members {
		if v.members[i].Key == key {
			return v.members[i].Value, true
		}
	}
	return Value{}, false
}

// Index returns the i-th array element.
func (v Value) Index(i int) (Value, bool) {
	if i < 0 || i >= len(v.items) {
		return Value{}, false
	}
	return v.items[i], true
}

// Require returns the value under key, failing with ErrMissingRequiredKey.
func (v Value) Require(key string) (Value, error) {
	if v.kind != Object {
		return Value{}, importerr.New(importerr.ErrMalformedSyntax, "expected object holding %q, got %s", key, v.kind)
	}
	m, ok := v.Get(key)
	if !ok {
		return Value{}, importerr.New(importerr.ErrMissingRequiredKey, "%q", key)
	}
	return m, nil
}

// RequireInt returns a required non-negative integral number.
func (v Value) RequireInt(key string) (int, error) {
	m, err := v.Require(key)
	if err != nil {
		return 0, err
	}
	return m.AsInt(key)
}

// OptionalInt returns the integer under key, or def when absent.
func (v Value) OptionalInt(key string, def int) (int, error) {
	m, ok := v.Get(key)
	if !ok {
		return def, nil
	}
	return m.AsInt(key)
}

// RequireString returns a required string member.
func (v Value) RequireString(key string) (string, error) {
	m, err := v.Require(key)
	if err != nil {
		return "", err
	}
	s, ok := m.Str()
	if !ok {
		return "", importerr.New(importerr.ErrMalformedSyntax, "%q: expected string, got %s", key, m.kind)
	}
	return s, nil
}

// AsInt converts a number holding a non-negative integer. label names the
// value in errors.
func (v Value) AsInt(label string) (int, error) {
	n, ok := v.Number()
	if !ok {
		return 0, importerr.New(importerr.ErrMalformedSyntax, "%q: expected number, got %s", label, v.kind)
	}
	i := int(n)
	if n < 0 || float32(i) != n {
		return 0, importerr.New(importerr.ErrMalformedSyntax, "%q: expected non-negative integer, got %v", label, n)
	}
	return i, nil
}

// Floats converts an array of numbers.
func (v Value) Floats(label string) ([]float32, error) {
	if v.kind != Array {
		return nil, importerr.New(importerr.ErrMalformedSyntax, "%q: expected array, got %s", label, v.kind)
	}
	out := make([]float32, len(v.items))
	for i, item := range v.items {
		n, ok := item.Number()
		if !ok {
			return nil, importerr.New(importerr.ErrMalformedSyntax, "%q[%d]: expected number, got %s", label, i, item.kind)
		}
		out[i] = n
	}
	return out, nil
}

// Ints converts an array of non-negative integers.
func (v Value) Ints(label string) ([]int, error) {
	if v.kind != Array {
		return nil, importerr.New(importerr.ErrMalformedSyntax, "%q: expected array, got %s", label, v.kind)
	}
	out := make([]int, len(v.items))
	for i, item := range v.items {
		n, err := item.AsInt(label)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
