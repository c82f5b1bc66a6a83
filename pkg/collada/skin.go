package collada

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rigport/pkg/importerr"
	"github.com/Faultbox/rigport/pkg/markup"
	"github.com/Faultbox/rigport/pkg/skeletal"
)

// skin is a decoded <controller><skin>. Influence joint indices refer to
// Joints, which is the joint order of the imported model.
type skin struct {
	Joints      []string
	InverseBind []mgl32.Mat4
	BindShape   mgl32.Mat4
	// Influences is indexed by position index.
	Influences [][]skeletal.Influence
}

func readSkin(doc *markup.Document, root markup.NodeID) (*skin, error) {
	node, err := doc.RequirePath(root, "library_controllers", "controller", "skin")
	if err != nil {
		return nil, err
	}
	sources, _, err := ReadSources(doc, node)
	if err != nil {
		return nil, err
	}

	s := &skin{BindShape: mgl32.Ident4()}
	if bsm := doc.Child(node, "bind_shape_matrix"); bsm != markup.InvalidNode {
		m, err := readMatrix(doc, bsm)
		if err != nil {
			return nil, err
		}
		s.BindShape = m
	}

	jointsNode, err := doc.RequireChild(node, "joints")
	if err != nil {
		return nil, err
	}
	inputs, err := readInputs(doc, jointsNode)
	if err != nil {
		return nil, err
	}
	jointInput, ok := findInput(inputs, "JOINT")
	if !ok {
		return nil, importerr.At(importerr.ErrMissingRequiredElement, doc.Offset(jointsNode), "<joints> has no JOINT input")
	}
	names, err := lookupSource(doc, jointsNode, sources, jointInput.source)
	if err != nil {
		return nil, err
	}
	s.Joints = names.Names
	if len(s.Joints) == 0 {
		return nil, importerr.At(importerr.ErrInconsistentAsset, doc.Offset(jointsNode), "skin has no joints")
	}

	s.InverseBind = make([]mgl32.Mat4, len(s.Joints))
	for i := range s.InverseBind {
		s.InverseBind[i] = mgl32.Ident4()
	}
	if ibm, ok := findInput(inputs, "INV_BIND_MATRIX"); ok {
		src, err := lookupSource(doc, jointsNode, sources, ibm.source)
		if err != nil {
			return nil, err
		}
		mats := src.Mat4s()
		if len(mats) != len(s.Joints) {
			return nil, importerr.At(importerr.ErrInconsistentAsset, doc.Offset(jointsNode),
				"%d inverse bind matrices for %d joints", len(mats), len(s.Joints))
		}
		s.InverseBind = mats
	}

	if err := s.readWeights(doc, node, sources); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *skin) readWeights(doc *markup.Document, node markup.NodeID, sources map[string]*Source) error {
	vw, err := doc.RequireChild(node, "vertex_weights")
	if err != nil {
		return err
	}
	count, err := primitiveCount(doc, vw)
	if err != nil {
		return err
	}
	inputs, err := readInputs(doc, vw)
	if err != nil {
		return err
	}
	jointInput, ok := findInput(inputs, "JOINT")
	if !ok {
		return importerr.At(importerr.ErrMissingRequiredElement, doc.Offset(vw), "<vertex_weights> has no JOINT input")
	}
	weightInput, ok := findInput(inputs, "WEIGHT")
	if !ok {
		return importerr.At(importerr.ErrMissingRequiredElement, doc.Offset(vw), "<vertex_weights> has no WEIGHT input")
	}
	weights, err := lookupSource(doc, vw, sources, weightInput.source)
	if err != nil {
		return err
	}
	stride := 0
	for _, in := range inputs {
		if in.offset+1 > stride {
			stride = in.offset + 1
		}
	}

	vcNode, err := doc.RequireChild(vw, "vcount")
	if err != nil {
		return err
	}
	vcount, err := parseInts(doc, vcNode)
	if err != nil {
		return err
	}
	if len(vcount) != count {
		return importerr.At(importerr.ErrInconsistentAsset, doc.Offset(vcNode), "vcount holds %d entries, count is %d", len(vcount), count)
	}
	vNode, err := doc.RequireChild(vw, "v")
	if err != nil {
		return err
	}
	v, err := parseInts(doc, vNode)
	if err != nil {
		return err
	}

	total := 0
	for _, n := range vcount {
		if n < 0 {
			return importerr.At(importerr.ErrInconsistentAsset, doc.Offset(vcNode), "negative influence count %d", n)
		}
		total += n
	}
	if len(v) != total*stride {
		return importerr.At(importerr.ErrInconsistentAsset, doc.Offset(vNode), "<v> holds %d values, want %d", len(v), total*stride)
	}

	s.Influences = make([][]skeletal.Influence, count)
	pos := 0
	for i, n := range vcount {
		list := make([]skeletal.Influence, n)
		for k := 0; k < n; k++ {
			base := pos * stride
			pos++
			joint := v[base+jointInput.offset]
			if joint < 0 || joint >= len(s.Joints) {
				return importerr.At(importerr.ErrInconsistentAsset, doc.Offset(vNode), "vertex %d references joint %d of %d", i, joint, len(s.Joints))
			}
			w := v[base+weightInput.offset]
			if w < 0 || w >= len(weights.Floats) {
				return importerr.At(importerr.ErrInconsistentAsset, doc.Offset(vNode), "vertex %d references weight %d of %d", i, w, len(weights.Floats))
			}
			list[k] = skeletal.Influence{Joint: uint32(joint), Weight: weights.Floats[w]}
		}
		s.Influences[i] = list
	}
	return nil
}

// apply moves the geometry into bind space and fills vertex influences.
func (s *skin) apply(g *geometry) error {
	if len(s.Influences) != g.positions {
		return importerr.New(importerr.ErrInconsistentAsset, "skin weights %d vertices, mesh has %d positions", len(s.Influences), g.positions)
	}
	normalMat := s.BindShape.Mat3()
	for i := range g.vertices {
		v := &g.vertices[i]
		v.Position = s.BindShape.Mul4x1(v.Position.Vec4(1)).Vec3()
		if n := normalMat.Mul3x1(v.Normal); n.Len() > 0 {
			v.Normal = n.Normalize()
		}
		v.Joints, v.Weights = skeletal.PackInfluences(s.Influences[g.positionOf[i]])
	}
	return nil
}

func readMatrix(doc *markup.Document, id markup.NodeID) (mgl32.Mat4, error) {
	f, err := parseFloatsAt(doc, id)
	if err != nil {
		return mgl32.Mat4{}, err
	}
	if len(f) != 16 {
		return mgl32.Mat4{}, importerr.At(importerr.ErrInconsistentAsset, doc.Offset(id), "<%s> holds %d values, want 16", doc.Name(id), len(f))
	}
	return rowMajor(f), nil
}
