package collada

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rigport/pkg/importerr"
	"github.com/Faultbox/rigport/pkg/markup"
	"github.com/Faultbox/rigport/pkg/skeletal"
)

// readHierarchy resolves the skin joints against the first visual scene.
// It returns the joints in skin order and a map from scene node id to joint
// index for animation targets.
func readHierarchy(doc *markup.Document, root markup.NodeID, s *skin) ([]skeletal.Joint, map[string]int, error) {
	scene, err := doc.RequirePath(root, "library_visual_scenes", "visual_scene")
	if err != nil {
		return nil, nil, err
	}

	byName := make(map[string]int, len(s.Joints))
	for i, name := range s.Joints {
		byName[name] = i
	}
	joints := make([]skeletal.Joint, len(s.Joints))
	found := make([]bool, len(s.Joints))
	for i, name := range s.Joints {
		joints[i] = skeletal.Joint{
			Name:        name,
			Parent:      skeletal.NoParent,
			InverseBind: s.InverseBind[i],
			LocalBind:   mgl32.Ident4(),
		}
	}
	nodeJoint := make(map[string]int)

	var walk func(id markup.NodeID, parent int) error
	walk = func(id markup.NodeID, parent int) error {
		joint := -1
		nodeID, _ := doc.Attr(id, "id")
		if j, ok := byName[nodeID]; ok {
			joint = j
		} else if sid, ok := doc.Attr(id, "sid"); ok {
			if j, ok := byName[sid]; ok {
				joint = j
			}
		}

		next := parent
		if joint >= 0 && !found[joint] {
			found[joint] = true
			joints[joint].Parent = parent
			if m := doc.Child(id, "matrix"); m != markup.InvalidNode {
				local, err := readMatrix(doc, m)
				if err != nil {
					return err
				}
				joints[joint].LocalBind = local
			}
			if nodeID != "" {
				nodeJoint[nodeID] = joint
			}
			next = joint
		}
		for _, child := range doc.Children(id, "node") {
			if err := walk(child, next); err != nil {
				return err
			}
		}
		return nil
	}
	for _, n := range doc.Children(scene, "node") {
		if err := walk(n, skeletal.NoParent); err != nil {
			return nil, nil, err
		}
	}

	for i, ok := range found {
		if !ok {
			return nil, nil, importerr.At(importerr.ErrMissingRequiredElement, doc.Offset(scene),
				"joint %q is not in the visual scene", s.Joints[i])
		}
	}
	return joints, nodeJoint, nil
}
