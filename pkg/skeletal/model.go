// Package skeletal defines the normalized skinned-model representation produced
// by the importers, the assembler that validates it, and pose evaluation for
// playback.
package skeletal

import (
	"github.com/go-gl/mathgl/mgl32"
)

// NoParent is the parent index of a root joint.
const NoParent = -1

// MaxInfluences is the number of joint slots per vertex.
const MaxInfluences = 4

// Joint is one node of the skeleton.
type Joint struct {
	Name        string
	Parent      int        // Index into Model.Joints, or NoParent
	InverseBind mgl32.Mat4 // Model space to joint space at rest
	LocalBind   mgl32.Mat4 // Rest transform relative to the parent
}

// Vertex is a skinned vertex. Unused influence slots have weight 0.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
	Joints   [MaxInfluences]uint32
	Weights  [MaxInfluences]float32
}

// Track is the keyframe sequence of one joint. Times are in seconds and
// strictly increasing; Transforms[i] is the local transform at Times[i].
type Track struct {
	Times      []float32
	Transforms []Transform
}

// Empty reports whether the joint is never animated.
func (t *Track) Empty() bool {
	return len(t.Times) == 0
}

// Clip is a named animation with one track per joint.
type Clip struct {
	Name     string
	Duration float32
	Tracks   []Track
}

// Model is the assembled output of an import. It owns all of its storage.
type Model struct {
	Name     string
	Joints   []Joint
	Vertices []Vertex
	Indices  []uint32
	Clips    []Clip
}

// JointByName returns the index of the named joint, or -1.
func (m *Model) JointByName(name string) int {
	for i := range m.Joints {
		if m.Joints[i].Name == name {
			return i
		}
	}
	return -1
}

// Roots returns the indices of joints without a parent.
func (m *Model) Roots() []int {
	var roots []int
	for i := range m.Joints {
		if m.Joints[i].Parent == NoParent {
			roots = append(roots, i)
		}
	}
	return roots
}

// Children returns the direct children of joint i.
func (m *Model) Children(i int) []int {
	var children []int
	for j := range m.Joints {
		if m.Joints[j].Parent == i {
			children = append(children, j)
		}
	}
	return children
}

// Clip returns the named clip, or nil.
func (m *Model) Clip(name string) *Clip {
	for i := range m.Clips {
		if m.Clips[i].Name == name {
			return &m.Clips[i]
		}
	}
	return nil
}

// HasAnimation reports whether any clip animates at least one joint.
func (m *Model) HasAnimation() bool {
	for i := range m.Clips {
		for j := range m.Clips[i].Tracks {
			if !m.Clips[i].Tracks[j].Empty() {
				return true
			}
		}
	}
	return false
}

// TriangleCount returns the number of indexed triangles.
func (m *Model) TriangleCount() int {
	return len(m.Indices) / 3
}
