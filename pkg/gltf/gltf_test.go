package gltf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rigport/pkg/glb"
	"github.com/Faultbox/rigport/pkg/importerr"
	"github.com/Faultbox/rigport/pkg/skeletal"
)

// binBuilder lays out accessors in a BIN chunk, one 4-byte aligned buffer
// view each, and renders the matching JSON tables.
type binBuilder struct {
	bin       bytes.Buffer
	views     []string
	accessors []string
}

func (b *binBuilder) add(component ComponentType, typ ElementType, count int, data []byte, extra string) int {
	offset := b.bin.Len()
	b.bin.Write(data)
	for b.bin.Len()%4 != 0 {
		b.bin.WriteByte(0)
	}
	b.views = append(b.views, fmt.Sprintf(`{"buffer":0,"byteOffset":%d,"byteLength":%d}`, offset, len(data)))
	b.accessors = append(b.accessors, fmt.Sprintf(`{"bufferView":%d,"componentType":%d,"count":%d,"type":%q%s}`,
		len(b.views)-1, int(component), count, typ, extra))
	return len(b.accessors) - 1
}

func (b *binBuilder) floats(typ ElementType, vals ...float32) int {
	data := make([]byte, 0, len(vals)*4)
	for _, v := range vals {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(v))
	}
	return b.add(Float, typ, len(vals)/typ.Components(), data, "")
}

func (b *binBuilder) uint16s(typ ElementType, vals ...uint16) int {
	data := make([]byte, 0, len(vals)*2)
	for _, v := range vals {
		data = binary.LittleEndian.AppendUint16(data, v)
	}
	return b.add(UnsignedShort, typ, len(vals)/typ.Components(), data, "")
}

func (b *binBuilder) glb(body string) []byte {
	json := fmt.Sprintf(`{"asset":{"version":"2.0"},%s,"bufferViews":[%s],"accessors":[%s]}`,
		body, strings.Join(b.views, ","), strings.Join(b.accessors, ","))
	return glb.Encode([]byte(json), b.bin.Bytes())
}

// riggedQuad builds two triangles skinned to a root and an arm joint, with
// an animation on the arm.
func riggedQuad(extraChannel string) []byte {
	b := &binBuilder{}
	pos := b.floats(Vec3, 0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0)
	joints := b.uint16s(Vec4, 0, 0, 0, 0, 0, 1, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0)
	weights := b.floats(Vec4, 1, 0, 0, 0, 0.5, 0.5, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0)
	indices := b.uint16s(Scalar, 0, 1, 2, 0, 2, 3)
	rootIBM, armIBM := mgl32.Ident4(), mgl32.Translate3D(0, -1, 0)
	ibm := b.floats(Mat4, append(rootIBM[:], armIBM[:]...)...)
	scaleIn := b.floats(Scalar, 0, 1)
	scaleOut := b.floats(Vec3, 1, 1, 1, 2, 2, 2)
	rotIn := b.floats(Scalar, 0, 0.5, 1)
	rotOut := b.floats(Vec4, 0, 0, 0, 1, 0, 0, 0.7071068, 0.7071068, 0, 0, 1, 0)

	body := fmt.Sprintf(`"nodes":[
		{"name":"body","mesh":0,"skin":0},
		{"name":"root","children":[2]},
		{"name":"arm","translation":[0,1,0]}
	],
	"meshes":[{"primitives":[{"attributes":{"POSITION":%d,"JOINTS_0":%d,"WEIGHTS_0":%d},"indices":%d}]}],
	"skins":[{"joints":[1,2],"inverseBindMatrices":%d}],
	"animations":[{"name":"wave",
		"samplers":[{"input":%d,"output":%d},{"input":%d,"output":%d,"interpolation":"LINEAR"}],
		"channels":[
			{"sampler":0,"target":{"node":2,"path":"scale"}},
			{"sampler":1,"target":{"node":2,"path":"rotation"}},
			{"sampler":0,"target":{"node":0,"path":"scale"}}%s
		]}]`,
		pos, joints, weights, indices, ibm, scaleIn, scaleOut, rotIn, rotOut, extraChannel)
	return b.glb(body)
}

func TestAccessorExtent(t *testing.T) {
	tests := []struct {
		name       string
		viewLength int
		offset     string
		count      string
		wantErr    error
	}{
		{"fits exactly", 36, "0", "3", nil},
		{"one byte short", 35, "0", "3", importerr.ErrInconsistentAsset},
		{"offset shifts past end", 36, "4", "3", importerr.ErrInconsistentAsset},
		{"empty accessor", 36, "36", "0", nil},
		{"offset past view", 36, "40", "1", importerr.ErrInconsistentAsset},
		{"huge count", 36, "0", "1e18", importerr.ErrInconsistentAsset},
		{"huge offset", 36, "9e18", "1", importerr.ErrInconsistentAsset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			json := fmt.Sprintf(`{"bufferViews":[{"buffer":0,"byteLength":%d}],`+
				`"accessors":[{"bufferView":0,"byteOffset":%s,"componentType":5126,"count":%s,"type":"VEC3"}]}`,
				tt.viewLength, tt.offset, tt.count)
			c, err := glb.Read(glb.Encode([]byte(json), make([]byte, 36)))
			if err != nil {
				t.Fatalf("glb.Read failed: %v", err)
			}
			_, err = Load(c)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected accessor to load, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		json string
		want error
	}{
		{"view past BIN", `{"bufferViews":[{"buffer":0,"byteOffset":8,"byteLength":12}]}`, importerr.ErrInconsistentAsset},
		{"view offset overflows", `{"bufferViews":[{"byteOffset":9e18,"byteLength":9e18}]}`, importerr.ErrInconsistentAsset},
		{"view length overflows", `{"bufferViews":[{"byteOffset":8,"byteLength":9e18}]}`, importerr.ErrInconsistentAsset},
		{"external buffer", `{"bufferViews":[{"buffer":1,"byteLength":4}]}`, importerr.ErrInconsistentAsset},
		{"view without length", `{"bufferViews":[{"buffer":0}]}`, importerr.ErrMissingRequiredKey},
		{"unknown component", `{"bufferViews":[{"byteLength":16}],"accessors":[{"bufferView":0,"componentType":5130,"count":1,"type":"SCALAR"}]}`, importerr.ErrInconsistentAsset},
		{"unknown type", `{"bufferViews":[{"byteLength":16}],"accessors":[{"bufferView":0,"componentType":5126,"count":1,"type":"MAT3"}]}`, importerr.ErrInconsistentAsset},
		{"missing view", `{"bufferViews":[{"byteLength":16}],"accessors":[{"bufferView":1,"componentType":5126,"count":1,"type":"SCALAR"}]}`, importerr.ErrInconsistentAsset},
		{"stride too small", `{"bufferViews":[{"byteLength":16,"byteStride":4}],"accessors":[{"bufferView":0,"componentType":5126,"count":1,"type":"VEC2"}]}`, importerr.ErrInconsistentAsset},
		{"bad json", `{"bufferViews":[}`, importerr.ErrMalformedSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := glb.Read(glb.Encode([]byte(tt.json), make([]byte, 16)))
			if err != nil {
				t.Fatalf("glb.Read failed: %v", err)
			}
			_, err = Load(c)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestReadFloats_StrideAndNormalized(t *testing.T) {
	// Two UNSIGNED_BYTE VEC2 elements interleaved with padding at stride 4.
	bin := []byte{255, 0, 9, 9, 0, 255, 9, 9}
	json := `{"bufferViews":[{"byteLength":8,"byteStride":4}],` +
		`"accessors":[{"bufferView":0,"componentType":5121,"count":2,"type":"VEC2","normalized":true}]}`
	c, err := glb.Read(glb.Encode([]byte(json), bin))
	if err != nil {
		t.Fatalf("glb.Read failed: %v", err)
	}
	d, err := Load(c)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got, err := d.ReadFloats(0, Vec2)
	if err != nil {
		t.Fatalf("ReadFloats failed: %v", err)
	}
	want := []float32{1, 0, 0, 1}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("component %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	if _, err := d.ReadFloats(0, Vec3); !errors.Is(err, importerr.ErrInconsistentAsset) {
		t.Errorf("expected type mismatch to be ErrInconsistentAsset, got %v", err)
	}
}

func TestParse_RiggedQuad(t *testing.T) {
	parts, err := Parse(riggedQuad(""), "quad", Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(parts.Joints) != 2 {
		t.Fatalf("expected 2 joints, got %d", len(parts.Joints))
	}
	if parts.Joints[0].Name != "root" || parts.Joints[0].Parent != skeletal.NoParent {
		t.Errorf("joint 0: got %q parent %d", parts.Joints[0].Name, parts.Joints[0].Parent)
	}
	if parts.Joints[1].Name != "arm" || parts.Joints[1].Parent != 0 {
		t.Errorf("joint 1: got %q parent %d", parts.Joints[1].Name, parts.Joints[1].Parent)
	}
	if got := parts.Joints[1].LocalBind.Col(3).Vec3(); got != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("arm local bind translation: got %v", got)
	}
	if got := parts.Joints[1].InverseBind.Col(3).Vec3(); !got.ApproxEqualThreshold(mgl32.Vec3{0, -1, 0}, 1e-6) {
		t.Errorf("arm inverse bind translation: got %v", got)
	}

	if len(parts.Vertices) != 4 || len(parts.Indices) != 6 {
		t.Fatalf("expected 4 vertices and 6 indices, got %d and %d", len(parts.Vertices), len(parts.Indices))
	}
	v1 := parts.Vertices[1]
	if v1.Position != (mgl32.Vec3{1, 0, 0}) || v1.Joints != [4]uint32{0, 1, 0, 0} || v1.Weights != [4]float32{0.5, 0.5, 0, 0} {
		t.Errorf("vertex 1: got %+v", v1)
	}

	if len(parts.Clips) != 1 {
		t.Fatalf("expected 1 clip, got %d", len(parts.Clips))
	}
	clip := parts.Clips[0]
	if clip.Name != "wave" || clip.Duration != 1 {
		t.Errorf("clip: got %q duration %v", clip.Name, clip.Duration)
	}
	if !clip.Tracks[0].Empty() {
		t.Errorf("root should not be animated, got %v", clip.Tracks[0].Times)
	}
	arm := clip.Tracks[1]
	if !equalTimes(arm.Times, []float32{0, 0.5, 1}) {
		t.Fatalf("arm times: got %v", arm.Times)
	}
	mid := arm.Transforms[1]
	if !mid.Scale.ApproxEqualThreshold(mgl32.Vec3{1.5, 1.5, 1.5}, 1e-5) {
		t.Errorf("t=0.5 scale: got %v", mid.Scale)
	}
	if mid.Translation != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("translation should hold the rest value, got %v", mid.Translation)
	}

	m, err := skeletal.Assemble(parts)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if m.TriangleCount() != 2 {
		t.Errorf("expected 2 triangles, got %d", m.TriangleCount())
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		extra string
		want  error
	}{
		{"unsupported path", `,{"sampler":0,"target":{"node":1,"path":"weights"}}`, importerr.ErrInconsistentAsset},
		{"duplicate path", `,{"sampler":0,"target":{"node":2,"path":"scale"}}`, importerr.ErrInconsistentAsset},
		{"missing sampler", `,{"sampler":9,"target":{"node":1,"path":"scale"}}`, importerr.ErrInconsistentAsset},
		{"wrong output width", `,{"sampler":0,"target":{"node":1,"path":"rotation"}}`, importerr.ErrInconsistentAsset},
		{"no target", `,{"sampler":0}`, importerr.ErrMissingRequiredKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(riggedQuad(tt.extra), "quad", Options{})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParse_MissingKeys(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"no nodes", `{"skins":[{"joints":[0]}],"meshes":[]}`},
		{"no skins", `{"nodes":[{}],"meshes":[]}`},
		{"no meshes", `{"nodes":[{}],"skins":[{"joints":[0]}]}`},
		{"no position", `{"nodes":[{}],"skins":[{"joints":[0]}],"meshes":[{"primitives":[{"attributes":{}}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(glb.Encode([]byte(tt.json), nil), "empty", Options{})
			if !errors.Is(err, importerr.ErrMissingRequiredKey) {
				t.Errorf("expected ErrMissingRequiredKey, got %v", err)
			}
		})
	}
}
