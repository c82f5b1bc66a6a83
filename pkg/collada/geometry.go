package collada

import (
	"strconv"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rigport/pkg/importerr"
	"github.com/Faultbox/rigport/pkg/markup"
	"github.com/Faultbox/rigport/pkg/skeletal"
)

// geometry is the triangulated mesh before skinning is attached.
type geometry struct {
	vertices []skeletal.Vertex
	// positionOf maps each vertex back to its position index, which is what
	// skin weights are keyed by.
	positionOf []int
	indices    []uint32
	positions  int
}

type corner struct {
	position, normal, uv int
}

// readGeometry triangulates the first mesh in library_geometries.
func readGeometry(doc *markup.Document, root markup.NodeID) (*geometry, error) {
	mesh, err := doc.RequirePath(root, "library_geometries", "geometry", "mesh")
	if err != nil {
		return nil, err
	}
	sources, ordered, err := ReadSources(doc, mesh)
	if err != nil {
		return nil, err
	}

	prim := doc.Child(mesh, "polylist")
	if prim == markup.InvalidNode {
		prim = doc.Child(mesh, "triangles")
	}
	if prim == markup.InvalidNode {
		return nil, importerr.At(importerr.ErrMissingRequiredElement, doc.Offset(mesh), "mesh has no <polylist> or <triangles>")
	}

	inputs, err := readInputs(doc, prim)
	if err != nil {
		return nil, err
	}
	vertexInput, ok := findInput(inputs, "VERTEX")
	if !ok {
		return nil, importerr.At(importerr.ErrMissingRequiredElement, doc.Offset(prim), "primitive has no VERTEX input")
	}

	positionSource, err := resolveVertices(doc, mesh, sources, ordered, vertexInput.source)
	if err != nil {
		return nil, err
	}
	positions := positionSource.Vec3s()

	var normals []mgl32.Vec3
	normalInput, hasNormals := findInput(inputs, "NORMAL")
	if hasNormals {
		src, err := lookupSource(doc, prim, sources, normalInput.source)
		if err != nil {
			return nil, err
		}
		normals = src.Vec3s()
	}
	var uvs []mgl32.Vec2
	uvInput, hasUVs := findInput(inputs, "TEXCOORD")
	if hasUVs {
		src, err := lookupSource(doc, prim, sources, uvInput.source)
		if err != nil {
			return nil, err
		}
		uvs = src.Vec2s()
	}

	stride := 0
	for _, in := range inputs {
		if in.offset+1 > stride {
			stride = in.offset + 1
		}
	}

	triangles, err := primitiveCount(doc, prim)
	if err != nil {
		return nil, err
	}
	if doc.Name(prim) == "polylist" {
		if err := checkTriangles(doc, prim, triangles); err != nil {
			return nil, err
		}
	}

	pNode, err := doc.RequireChild(prim, "p")
	if err != nil {
		return nil, err
	}
	p, err := parseInts(doc, pNode)
	if err != nil {
		return nil, err
	}
	if len(p) != triangles*3*stride {
		return nil, importerr.At(importerr.ErrInconsistentAsset, doc.Offset(pNode),
			"<p> holds %d indices, want %d triangles x 3 corners x %d inputs", len(p), triangles, stride)
	}

	g := &geometry{positions: len(positions), indices: make([]uint32, 0, triangles*3)}
	seen := make(map[corner]uint32, triangles*3)
	for k := 0; k < triangles*3; k++ {
		base := k * stride
		c := corner{position: p[base+vertexInput.offset], normal: -1, uv: -1}
		if c.position < 0 || c.position >= len(positions) {
			return nil, importerr.At(importerr.ErrInconsistentAsset, doc.Offset(pNode), "position index %d out of range", c.position)
		}
		if hasNormals {
			c.normal = p[base+normalInput.offset]
			if c.normal < 0 || c.normal >= len(normals) {
				return nil, importerr.At(importerr.ErrInconsistentAsset, doc.Offset(pNode), "normal index %d out of range", c.normal)
			}
		}
		if hasUVs {
			c.uv = p[base+uvInput.offset]
			if c.uv < 0 || c.uv >= len(uvs) {
				return nil, importerr.At(importerr.ErrInconsistentAsset, doc.Offset(pNode), "texcoord index %d out of range", c.uv)
			}
		}

		if idx, ok := seen[c]; ok {
			g.indices = append(g.indices, idx)
			continue
		}

		v := skeletal.Vertex{Position: positions[c.position]}
		if c.normal >= 0 {
			v.Normal = normals[c.normal]
		}
		if c.uv >= 0 {
			// Flip to a top-left texture origin.
			v.UV = mgl32.Vec2{uvs[c.uv][0], 1 - uvs[c.uv][1]}
		}
		idx := uint32(len(g.vertices))
		seen[c] = idx
		g.vertices = append(g.vertices, v)
		g.positionOf = append(g.positionOf, c.position)
		g.indices = append(g.indices, idx)
	}
	return g, nil
}

// resolveVertices follows a VERTEX input through <vertices> to the position source.
func resolveVertices(doc *markup.Document, mesh markup.NodeID, sources map[string]*Source, ordered []*Source, ref string) (*Source, error) {
	for _, v := range doc.Children(mesh, "vertices") {
		if id, _ := doc.Attr(v, "id"); id != ref {
			continue
		}
		inputs, err := readInputs(doc, v)
		if err != nil {
			return nil, err
		}
		pos, ok := findInput(inputs, "POSITION")
		if !ok {
			return nil, importerr.At(importerr.ErrMissingRequiredElement, doc.Offset(v), "<vertices> has no POSITION input")
		}
		return lookupSource(doc, v, sources, pos.source)
	}
	if src, ok := sources[ref]; ok {
		return src, nil
	}
	if len(ordered) > 0 {
		return ordered[0], nil
	}
	return nil, importerr.At(importerr.ErrMissingRequiredElement, doc.Offset(mesh), "vertices %q not found", ref)
}

func primitiveCount(doc *markup.Document, prim markup.NodeID) (int, error) {
	v, err := doc.RequireAttr(prim, "count")
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, importerr.At(importerr.ErrMalformedSyntax, doc.Offset(prim), "invalid count %q", v)
	}
	return n, nil
}

// checkTriangles requires every polygon of a polylist to have three corners.
func checkTriangles(doc *markup.Document, prim markup.NodeID, count int) error {
	vc, err := doc.RequireChild(prim, "vcount")
	if err != nil {
		return err
	}
	vcount, err := parseInts(doc, vc)
	if err != nil {
		return err
	}
	if len(vcount) != count {
		return importerr.At(importerr.ErrInconsistentAsset, doc.Offset(vc), "vcount holds %d polygons, count is %d", len(vcount), count)
	}
	for i, n := range vcount {
		if n != 3 {
			return importerr.At(importerr.ErrInconsistentAsset, doc.Offset(vc), "polygon %d has %d corners, only triangles are supported", i, n)
		}
	}
	return nil
}
