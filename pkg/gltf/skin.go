package gltf

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rigport/pkg/importerr"
	"github.com/Faultbox/rigport/pkg/jsondoc"
	"github.com/Faultbox/rigport/pkg/skeletal"
)

type skin struct {
	joints    []skeletal.Joint
	rest      []skeletal.Transform
	nodeJoint map[int]int
}

// skinIndex picks the skin of the node instancing mesh 0, falling back to
// skin 0.
func skinIndex(nodes jsondoc.Value) (int, error) {
	for i, n := range nodes.Items() {
		m, ok := n.Get("mesh")
		if !ok {
			continue
		}
		mesh, err := m.AsInt("mesh")
		if err != nil {
			return 0, fmt.Errorf("node %d: %w", i, err)
		}
		if mesh != 0 {
			continue
		}
		if _, ok := n.Get("skin"); ok {
			return n.RequireInt("skin")
		}
	}
	return 0, nil
}

func (d *Document) readSkin(nodes jsondoc.Value) (*skin, error) {
	skins, err := d.JSON.Require("skins")
	if err != nil {
		return nil, err
	}
	si, err := skinIndex(nodes)
	if err != nil {
		return nil, err
	}
	sv, ok := skins.Index(si)
	if !ok {
		return nil, importerr.New(importerr.ErrInconsistentAsset, "skin %d of %d", si, skins.Len())
	}
	jv, err := sv.Require("joints")
	if err != nil {
		return nil, err
	}
	jointNodes, err := jv.Ints("joints")
	if err != nil {
		return nil, err
	}
	if len(jointNodes) == 0 {
		return nil, importerr.New(importerr.ErrInconsistentAsset, "skin %d has no joints", si)
	}

	s := &skin{
		joints:    make([]skeletal.Joint, len(jointNodes)),
		rest:      make([]skeletal.Transform, len(jointNodes)),
		nodeJoint: make(map[int]int, len(jointNodes)),
	}
	for j, n := range jointNodes {
		if n >= nodes.Len() {
			return nil, importerr.New(importerr.ErrInconsistentAsset, "joint %d: node %d of %d", j, n, nodes.Len())
		}
		if _, dup := s.nodeJoint[n]; dup {
			return nil, importerr.New(importerr.ErrInconsistentAsset, "node %d listed twice in skin %d", n, si)
		}
		s.nodeJoint[n] = j
	}

	var inverseBind []mgl32.Mat4
	if _, ok := sv.Get("inverseBindMatrices"); ok {
		ibm, err := sv.RequireInt("inverseBindMatrices")
		if err != nil {
			return nil, err
		}
		if inverseBind, err = d.ReadMat4s(ibm); err != nil {
			return nil, err
		}
		if len(inverseBind) != len(jointNodes) {
			return nil, importerr.New(importerr.ErrInconsistentAsset,
				"%d inverse bind matrices for %d joints", len(inverseBind), len(jointNodes))
		}
	}

	for j, n := range jointNodes {
		node, _ := nodes.Index(n)
		name := fmt.Sprintf("joint_%d", j)
		if v, ok := node.Get("name"); ok {
			if str, ok := v.Str(); ok && str != "" {
				name = str
			}
		}
		local, rest, err := nodeTransform(node)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", n, err)
		}
		s.joints[j] = skeletal.Joint{
			Name:        name,
			Parent:      skeletal.NoParent,
			InverseBind: mgl32.Ident4(),
			LocalBind:   local,
		}
		if inverseBind != nil {
			s.joints[j].InverseBind = inverseBind[j]
		}
		s.rest[j] = rest
	}

	// Parents come from the children lists of joint nodes.
	for j, n := range jointNodes {
		node, _ := nodes.Index(n)
		cv, ok := node.Get("children")
		if !ok {
			continue
		}
		children, err := cv.Ints("children")
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", n, err)
		}
		for _, c := range children {
			cj, ok := s.nodeJoint[c]
			if !ok {
				continue
			}
			if s.joints[cj].Parent != skeletal.NoParent {
				return nil, importerr.New(importerr.ErrInconsistentAsset, "node %d has more than one parent", c)
			}
			s.joints[cj].Parent = j
		}
	}
	return s, nil
}

// nodeTransform returns a node's local matrix and its decomposition.
func nodeTransform(node jsondoc.Value) (mgl32.Mat4, skeletal.Transform, error) {
	if mv, ok := node.Get("matrix"); ok {
		f, err := mv.Floats("matrix")
		if err != nil {
			return mgl32.Mat4{}, skeletal.Transform{}, err
		}
		if len(f) != 16 {
			return mgl32.Mat4{}, skeletal.Transform{}, importerr.New(importerr.ErrInconsistentAsset, "matrix has %d values", len(f))
		}
		var m mgl32.Mat4
		copy(m[:], f)
		return m, skeletal.Decompose(m), nil
	}

	tr := skeletal.IdentityTransform()
	t, err := optionalFloats(node, "translation", 3)
	if err != nil {
		return mgl32.Mat4{}, skeletal.Transform{}, err
	}
	if t != nil {
		tr.Translation = mgl32.Vec3{t[0], t[1], t[2]}
	}
	r, err := optionalFloats(node, "rotation", 4)
	if err != nil {
		return mgl32.Mat4{}, skeletal.Transform{}, err
	}
	if r != nil {
		tr.Rotation = mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}.Normalize()
	}
	s, err := optionalFloats(node, "scale", 3)
	if err != nil {
		return mgl32.Mat4{}, skeletal.Transform{}, err
	}
	if s != nil {
		tr.Scale = mgl32.Vec3{s[0], s[1], s[2]}
	}
	return tr.Mat4(), tr, nil
}

func optionalFloats(v jsondoc.Value, key string, n int) ([]float32, error) {
	m, ok := v.Get(key)
	if !ok {
		return nil, nil
	}
	f, err := m.Floats(key)
	if err != nil {
		return nil, err
	}
	if len(f) != n {
		return nil, importerr.New(importerr.ErrInconsistentAsset, "%q has %d values, want %d", key, len(f), n)
	}
	return f, nil
}
