package collada

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rigport/pkg/importerr"
	"github.com/Faultbox/rigport/pkg/markup"
	"github.com/Faultbox/rigport/pkg/scan"
)

// Source is a decoded <source> element: either a float array or a name array,
// grouped into elements of Stride values.
type Source struct {
	ID     string
	Floats []float32
	Names  []string
	Stride int
}

// Count returns the number of elements in the source.
func (s *Source) Count() int {
	n := len(s.Floats)
	if s.Names != nil {
		n = len(s.Names)
	}
	if s.Stride <= 1 {
		return n
	}
	return n / s.Stride
}

// Vec3s groups the floats into 3-vectors, ignoring any extra components.
func (s *Source) Vec3s() []mgl32.Vec3 {
	stride := s.stride(3)
	out := make([]mgl32.Vec3, len(s.Floats)/stride)
	for i := range out {
		f := s.Floats[i*stride:]
		out[i] = mgl32.Vec3{f[0], f[1], f[2]}
	}
	return out
}

// Vec2s groups the floats into 2-vectors, ignoring any extra components.
func (s *Source) Vec2s() []mgl32.Vec2 {
	stride := s.stride(2)
	out := make([]mgl32.Vec2, len(s.Floats)/stride)
	for i := range out {
		f := s.Floats[i*stride:]
		out[i] = mgl32.Vec2{f[0], f[1]}
	}
	return out
}

// Mat4s groups the floats into row-major 4x4 matrices and returns them
// column-major.
func (s *Source) Mat4s() []mgl32.Mat4 {
	out := make([]mgl32.Mat4, len(s.Floats)/16)
	for i := range out {
		out[i] = rowMajor(s.Floats[i*16 : i*16+16])
	}
	return out
}

func (s *Source) stride(min int) int {
	if s.Stride < min {
		return min
	}
	return s.Stride
}

func rowMajor(f []float32) mgl32.Mat4 {
	var m mgl32.Mat4
	copy(m[:], f)
	return m.Transpose()
}

// ReadSource decodes a <source> element. The array's count attribute must
// match the number of values it holds.
func ReadSource(doc *markup.Document, id markup.NodeID) (*Source, error) {
	src := &Source{Stride: 1}
	src.ID, _ = doc.Attr(id, "id")

	if arr := doc.Child(id, "float_array"); arr != markup.InvalidNode {
		floats, err := parseFloatsAt(doc, arr)
		if err != nil {
			return nil, err
		}
		if err := checkCount(doc, arr, len(floats)); err != nil {
			return nil, err
		}
		src.Floats = floats
	} else if arr := nameArray(doc, id); arr != markup.InvalidNode {
		src.Names = strings.Fields(string(doc.Text(arr)))
		if err := checkCount(doc, arr, len(src.Names)); err != nil {
			return nil, err
		}
	} else {
		return nil, importerr.At(importerr.ErrMissingRequiredElement, doc.Offset(id),
			"source %q has no float_array or Name_array", src.ID)
	}

	if acc := doc.Path(id, "technique_common", "accessor"); acc != markup.InvalidNode {
		if v, ok := doc.Attr(acc, "stride"); ok {
			stride, err := strconv.Atoi(v)
			if err != nil || stride < 1 {
				return nil, importerr.At(importerr.ErrMalformedSyntax, doc.Offset(acc), "invalid accessor stride %q", v)
			}
			src.Stride = stride
		}
	}
	return src, nil
}

func nameArray(doc *markup.Document, id markup.NodeID) markup.NodeID {
	if arr := doc.Child(id, "Name_array"); arr != markup.InvalidNode {
		return arr
	}
	return doc.Child(id, "IDREF_array")
}

func checkCount(doc *markup.Document, arr markup.NodeID, have int) error {
	v, ok := doc.Attr(arr, "count")
	if !ok {
		return nil
	}
	want, err := strconv.Atoi(v)
	if err != nil {
		return importerr.At(importerr.ErrMalformedSyntax, doc.Offset(arr), "invalid count %q", v)
	}
	if want != have {
		return importerr.At(importerr.ErrInconsistentAsset, doc.Offset(arr),
			"<%s> count is %d but holds %d values", doc.Name(arr), want, have)
	}
	return nil
}

// ReadSources decodes every <source> child of parent, keyed by id.
func ReadSources(doc *markup.Document, parent markup.NodeID) (map[string]*Source, []*Source, error) {
	byID := make(map[string]*Source)
	var ordered []*Source
	for _, id := range doc.Children(parent, "source") {
		src, err := ReadSource(doc, id)
		if err != nil {
			return nil, nil, err
		}
		if src.ID != "" {
			byID[src.ID] = src
		}
		ordered = append(ordered, src)
	}
	return byID, ordered, nil
}

// input is a decoded <input> element.
type input struct {
	semantic string
	source   string
	offset   int
	set      int
}

func readInputs(doc *markup.Document, parent markup.NodeID) ([]input, error) {
	var inputs []input
	for _, id := range doc.Children(parent, "input") {
		semantic, err := doc.RequireAttr(id, "semantic")
		if err != nil {
			return nil, err
		}
		source, err := doc.RequireAttr(id, "source")
		if err != nil {
			return nil, err
		}
		in := input{semantic: semantic, source: strings.TrimPrefix(source, "#")}
		for _, attr := range []struct {
			name string
			dst  *int
		}{{"offset", &in.offset}, {"set", &in.set}} {
			if v, ok := doc.Attr(id, attr.name); ok {
				n, err := strconv.Atoi(v)
				if err != nil || n < 0 {
					return nil, importerr.At(importerr.ErrMalformedSyntax, doc.Offset(id), "invalid input %s %q", attr.name, v)
				}
				*attr.dst = n
			}
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func findInput(inputs []input, semantic string) (input, bool) {
	for _, in := range inputs {
		if in.semantic == semantic {
			return in, true
		}
	}
	return input{}, false
}

func lookupSource(doc *markup.Document, at markup.NodeID, sources map[string]*Source, id string) (*Source, error) {
	src, ok := sources[id]
	if !ok {
		return nil, importerr.At(importerr.ErrMissingRequiredElement, doc.Offset(at), "source %q not found", id)
	}
	return src, nil
}

func parseInts(doc *markup.Document, id markup.NodeID) ([]int, error) {
	return scan.ParseInts(bytes.TrimSpace(doc.Text(id)))
}

func parseFloatsAt(doc *markup.Document, id markup.NodeID) ([]float32, error) {
	return scan.ParseFloats(bytes.TrimSpace(doc.Text(id)))
}
