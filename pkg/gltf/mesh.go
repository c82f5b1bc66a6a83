package gltf

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rigport/pkg/importerr"
	"github.com/Faultbox/rigport/pkg/jsondoc"
	"github.com/Faultbox/rigport/pkg/skeletal"
)

const modeTriangles = 4

// readMesh concatenates every primitive of mesh 0.
func (d *Document) readMesh() ([]skeletal.Vertex, []uint32, error) {
	meshes, err := d.JSON.Require("meshes")
	if err != nil {
		return nil, nil, err
	}
	mesh, ok := meshes.Index(0)
	if !ok {
		return nil, nil, importerr.New(importerr.ErrMissingRequiredKey, "meshes[0]")
	}
	prims, err := mesh.Require("primitives")
	if err != nil {
		return nil, nil, err
	}

	var vertices []skeletal.Vertex
	var indices []uint32
	for i, p := range prims.Items() {
		base := uint32(len(vertices))
		vs, idx, err := d.readPrimitive(p)
		if err != nil {
			return nil, nil, fmt.Errorf("primitive %d: %w", i, err)
		}
		vertices = append(vertices, vs...)
		for _, k := range idx {
			indices = append(indices, base+k)
		}
	}
	return vertices, indices, nil
}

func (d *Document) readPrimitive(p jsondoc.Value) ([]skeletal.Vertex, []uint32, error) {
	mode, err := p.OptionalInt("mode", modeTriangles)
	if err != nil {
		return nil, nil, err
	}
	if mode != modeTriangles {
		return nil, nil, importerr.New(importerr.ErrInconsistentAsset, "mode %d, only triangles are supported", mode)
	}
	attrs, err := p.Require("attributes")
	if err != nil {
		return nil, nil, err
	}

	posIdx, err := attrs.RequireInt("POSITION")
	if err != nil {
		return nil, nil, err
	}
	pos, err := d.ReadFloats(posIdx, Vec3)
	if err != nil {
		return nil, nil, err
	}
	count := len(pos) / 3
	vertices := make([]skeletal.Vertex, count)
	for i := range vertices {
		vertices[i].Position = mgl32.Vec3{pos[i*3], pos[i*3+1], pos[i*3+2]}
	}

	if nrm, err := d.optionalAttr(attrs, "NORMAL", count, Vec3); err != nil {
		return nil, nil, err
	} else if nrm != nil {
		for i := range vertices {
			vertices[i].Normal = mgl32.Vec3{nrm[i*3], nrm[i*3+1], nrm[i*3+2]}
		}
	}
	if uv, err := d.optionalAttr(attrs, "TEXCOORD_0", count, Vec2); err != nil {
		return nil, nil, err
	} else if uv != nil {
		for i := range vertices {
			vertices[i].UV = mgl32.Vec2{uv[i*2], uv[i*2+1]}
		}
	}
	if w, err := d.optionalAttr(attrs, "WEIGHTS_0", count, Vec4); err != nil {
		return nil, nil, err
	} else if w != nil {
		for i := range vertices {
			copy(vertices[i].Weights[:], w[i*4:i*4+4])
		}
	}
	if _, ok := attrs.Get("JOINTS_0"); ok {
		ji, err := attrs.RequireInt("JOINTS_0")
		if err != nil {
			return nil, nil, err
		}
		j, err := d.ReadUints(ji, Vec4)
		if err != nil {
			return nil, nil, err
		}
		if len(j) != count*4 {
			return nil, nil, importerr.New(importerr.ErrInconsistentAsset, "JOINTS_0 has %d elements, POSITION has %d", len(j)/4, count)
		}
		for i := range vertices {
			copy(vertices[i].Joints[:], j[i*4:i*4+4])
		}
	}

	var indices []uint32
	if _, ok := p.Get("indices"); ok {
		ii, err := p.RequireInt("indices")
		if err != nil {
			return nil, nil, err
		}
		if indices, err = d.ReadUints(ii, Scalar); err != nil {
			return nil, nil, err
		}
		for _, k := range indices {
			if int64(k) >= int64(count) {
				return nil, nil, importerr.New(importerr.ErrInconsistentAsset, "index %d out of %d vertices", k, count)
			}
		}
	} else {
		indices = make([]uint32, count)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	return vertices, indices, nil
}

// optionalAttr reads a float attribute whose element count must match the
// primitive's vertex count. It returns nil when the attribute is absent.
func (d *Document) optionalAttr(attrs jsondoc.Value, name string, count int, typ ElementType) ([]float32, error) {
	if _, ok := attrs.Get(name); !ok {
		return nil, nil
	}
	idx, err := attrs.RequireInt(name)
	if err != nil {
		return nil, err
	}
	f, err := d.ReadFloats(idx, typ)
	if err != nil {
		return nil, err
	}
	if len(f) != count*typ.Components() {
		return nil, importerr.New(importerr.ErrInconsistentAsset, "%s has %d elements, POSITION has %d", name, len(f)/typ.Components(), count)
	}
	return f, nil
}
