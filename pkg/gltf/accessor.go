package gltf

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rigport/pkg/importerr"
	"github.com/Faultbox/rigport/pkg/jsondoc"
)

// ComponentType is an accessor's scalar storage type.
type ComponentType int

const (
	Byte          ComponentType = 5120
	UnsignedByte  ComponentType = 5121
	Short         ComponentType = 5122
	UnsignedShort ComponentType = 5123
	UnsignedInt   ComponentType = 5125
	Float         ComponentType = 5126
)

// Size returns the component size in bytes, or 0 for an unknown type.
func (c ComponentType) Size() int {
	switch c {
	case Byte, UnsignedByte:
		return 1
	case Short, UnsignedShort:
		return 2
	case UnsignedInt, Float:
		return 4
	default:
		return 0
	}
}

func (c ComponentType) String() string {
	switch c {
	case Byte:
		return "BYTE"
	case UnsignedByte:
		return "UNSIGNED_BYTE"
	case Short:
		return "SHORT"
	case UnsignedShort:
		return "UNSIGNED_SHORT"
	case UnsignedInt:
		return "UNSIGNED_INT"
	case Float:
		return "FLOAT"
	default:
		return fmt.Sprintf("ComponentType(%d)", int(c))
	}
}

// ElementType is an accessor's element shape.
type ElementType string

const (
	Scalar ElementType = "SCALAR"
	Vec2   ElementType = "VEC2"
	Vec3   ElementType = "VEC3"
	Vec4   ElementType = "VEC4"
	Mat4   ElementType = "MAT4"
)

// Components returns the number of components per element, or 0 for an
// unsupported type.
func (e ElementType) Components() int {
	switch e {
	case Scalar:
		return 1
	case Vec2:
		return 2
	case Vec3:
		return 3
	case Vec4:
		return 4
	case Mat4:
		return 16
	default:
		return 0
	}
}

// BufferView is a byte range of the BIN chunk.
type BufferView struct {
	Offset int
	Length int
	Stride int // 0 when elements are tightly packed
}

// Accessor is a typed view over a buffer view.
type Accessor struct {
	View       int
	Offset     int
	Component  ComponentType
	Type       ElementType
	Count      int
	Normalized bool
}

// ElementSize returns the packed size of one element in bytes.
func (a *Accessor) ElementSize() int {
	return a.Component.Size() * a.Type.Components()
}

func readBufferViews(root jsondoc.Value, bin []byte) ([]BufferView, error) {
	arr, ok := root.Get("bufferViews")
	if !ok {
		return nil, nil
	}
	views := make([]BufferView, arr.Len())
	for i, v := range arr.Items() {
		buffer, err := v.OptionalInt("buffer", 0)
		if err != nil {
			return nil, fmt.Errorf("bufferView %d: %w", i, err)
		}
		if buffer != 0 {
			return nil, importerr.New(importerr.ErrInconsistentAsset, "bufferView %d: buffer %d, only the BIN chunk is supported", i, buffer)
		}
		bv := &views[i]
		if bv.Offset, err = v.OptionalInt("byteOffset", 0); err != nil {
			return nil, fmt.Errorf("bufferView %d: %w", i, err)
		}
		if bv.Length, err = v.RequireInt("byteLength"); err != nil {
			return nil, fmt.Errorf("bufferView %d: %w", i, err)
		}
		if bv.Stride, err = v.OptionalInt("byteStride", 0); err != nil {
			return nil, fmt.Errorf("bufferView %d: %w", i, err)
		}
		if bv.Offset < 0 || bv.Length < 0 || bv.Offset > len(bin) || bv.Length > len(bin)-bv.Offset {
			return nil, importerr.New(importerr.ErrInconsistentAsset,
				"bufferView %d: %d bytes at offset %d exceed BIN chunk of %d bytes", i, bv.Length, bv.Offset, len(bin))
		}
	}
	return views, nil
}

func readAccessors(root jsondoc.Value, views []BufferView) ([]Accessor, error) {
	arr, ok := root.Get("accessors")
	if !ok {
		return nil, nil
	}
	accessors := make([]Accessor, arr.Len())
	for i, v := range arr.Items() {
		if err := readAccessor(v, views, &accessors[i]); err != nil {
			return nil, fmt.Errorf("accessor %d: %w", i, err)
		}
	}
	return accessors, nil
}

func readAccessor(v jsondoc.Value, views []BufferView, a *Accessor) error {
	var err error
	if a.View, err = v.RequireInt("bufferView"); err != nil {
		return err
	}
	if a.View < 0 || a.View >= len(views) {
		return importerr.New(importerr.ErrInconsistentAsset, "bufferView %d of %d", a.View, len(views))
	}
	if a.Offset, err = v.OptionalInt("byteOffset", 0); err != nil {
		return err
	}
	ct, err := v.RequireInt("componentType")
	if err != nil {
		return err
	}
	a.Component = ComponentType(ct)
	if a.Component.Size() == 0 {
		return importerr.New(importerr.ErrInconsistentAsset, "unsupported componentType %d", ct)
	}
	if a.Count, err = v.RequireInt("count"); err != nil {
		return err
	}
	typ, err := v.RequireString("type")
	if err != nil {
		return err
	}
	a.Type = ElementType(typ)
	if a.Type.Components() == 0 {
		return importerr.New(importerr.ErrInconsistentAsset, "unsupported type %q", typ)
	}
	if n, ok := v.Get("normalized"); ok {
		a.Normalized, _ = n.Bool()
	}

	view := views[a.View]
	size := a.ElementSize()
	stride := size
	if view.Stride > 0 {
		if view.Stride < size {
			return importerr.New(importerr.ErrInconsistentAsset, "byteStride %d is smaller than element size %d", view.Stride, size)
		}
		stride = view.Stride
	}
	if a.Offset < 0 || a.Count < 0 {
		return importerr.New(importerr.ErrInconsistentAsset, "negative byteOffset %d or count %d", a.Offset, a.Count)
	}
	if a.Count == 0 {
		if a.Offset > view.Length {
			return importerr.New(importerr.ErrInconsistentAsset, "byteOffset %d past bufferView %d of %d bytes", a.Offset, a.View, view.Length)
		}
		return nil
	}
	// Bound the count before multiplying so the extent cannot overflow.
	if a.Offset > view.Length-size || a.Count > (view.Length-a.Offset-size)/stride+1 {
		return importerr.New(importerr.ErrInconsistentAsset,
			"%d x %s %s at offset %d exceed bufferView %d of %d bytes", a.Count, a.Type, a.Component, a.Offset, a.View, view.Length)
	}
	return nil
}

// accessor returns the accessor at index i after checking its element type.
func (d *Document) accessor(i int, types ...ElementType) (*Accessor, error) {
	if i < 0 || i >= len(d.Accessors) {
		return nil, importerr.New(importerr.ErrInconsistentAsset, "accessor %d of %d", i, len(d.Accessors))
	}
	a := &d.Accessors[i]
	for _, t := range types {
		if a.Type == t {
			return a, nil
		}
	}
	return nil, importerr.New(importerr.ErrInconsistentAsset, "accessor %d: type %s, want %v", i, a.Type, types)
}

// elements returns the raw bytes of each element of a.
func (d *Document) elements(a *Accessor) [][]byte {
	view := d.Views[a.View]
	size := a.ElementSize()
	stride := size
	if view.Stride > 0 {
		stride = view.Stride
	}
	base := view.Offset + a.Offset
	out := make([][]byte, a.Count)
	for i := range out {
		start := base + i*stride
		out[i] = d.BIN[start : start+size]
	}
	return out
}

// ReadFloats returns the accessor's components as float32, flattened.
// Normalized integers are mapped to [0,1] or [-1,1]; other integers keep
// their value.
func (d *Document) ReadFloats(i int, types ...ElementType) ([]float32, error) {
	a, err := d.accessor(i, types...)
	if err != nil {
		return nil, err
	}
	n := a.Type.Components()
	cs := a.Component.Size()
	out := make([]float32, 0, a.Count*n)
	for _, el := range d.elements(a) {
		for c := 0; c < n; c++ {
			out = append(out, decodeFloat(el[c*cs:], a.Component, a.Normalized))
		}
	}
	return out, nil
}

// ReadUints returns the accessor's components as uint32, flattened. Only
// unsigned integer accessors are accepted.
func (d *Document) ReadUints(i int, types ...ElementType) ([]uint32, error) {
	a, err := d.accessor(i, types...)
	if err != nil {
		return nil, err
	}
	switch a.Component {
	case UnsignedByte, UnsignedShort, UnsignedInt:
	default:
		return nil, importerr.New(importerr.ErrInconsistentAsset, "accessor %d: componentType %s, want unsigned integer", i, a.Component)
	}
	n := a.Type.Components()
	cs := a.Component.Size()
	out := make([]uint32, 0, a.Count*n)
	for _, el := range d.elements(a) {
		for c := 0; c < n; c++ {
			b := el[c*cs:]
			switch a.Component {
			case UnsignedByte:
				out = append(out, uint32(b[0]))
			case UnsignedShort:
				out = append(out, uint32(binary.LittleEndian.Uint16(b)))
			default:
				out = append(out, binary.LittleEndian.Uint32(b))
			}
		}
	}
	return out, nil
}

// ReadMat4s returns a MAT4 accessor as column-major matrices.
func (d *Document) ReadMat4s(i int) ([]mgl32.Mat4, error) {
	f, err := d.ReadFloats(i, Mat4)
	if err != nil {
		return nil, err
	}
	out := make([]mgl32.Mat4, len(f)/16)
	for k := range out {
		copy(out[k][:], f[k*16:])
	}
	return out, nil
}

func decodeFloat(b []byte, ct ComponentType, normalized bool) float32 {
	switch ct {
	case Byte:
		v := float32(int8(b[0]))
		if normalized {
			return max(v/127, -1)
		}
		return v
	case UnsignedByte:
		v := float32(b[0])
		if normalized {
			return v / 255
		}
		return v
	case Short:
		v := float32(int16(binary.LittleEndian.Uint16(b)))
		if normalized {
			return max(v/32767, -1)
		}
		return v
	case UnsignedShort:
		v := float32(binary.LittleEndian.Uint16(b))
		if normalized {
			return v / 65535
		}
		return v
	case UnsignedInt:
		return float32(binary.LittleEndian.Uint32(b))
	default:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	}
}
