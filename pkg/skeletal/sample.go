package skeletal

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// KeyIndex returns the index of the last key whose time is <= t, or -1 when t
// is before the first key.
func (tr *Track) KeyIndex(t float32) int {
	return sort.Search(len(tr.Times), func(i int) bool { return tr.Times[i] > t }) - 1
}

// Sample returns the interpolated local transform at time t. Times before the
// first key or after the last hold the nearest key. Sampling an empty track
// returns rest.
func (tr *Track) Sample(t float32, rest Transform) Transform {
	if tr.Empty() {
		return rest
	}
	i := tr.KeyIndex(t)
	if i < 0 {
		return tr.Transforms[0]
	}
	if i >= len(tr.Times)-1 {
		return tr.Transforms[len(tr.Times)-1]
	}
	span := tr.Times[i+1] - tr.Times[i]
	return Interpolate(tr.Transforms[i], tr.Transforms[i+1], (t-tr.Times[i])/span)
}

// JointOrder returns joint indices ordered so that every parent precedes its
// children.
func (m *Model) JointOrder() []int {
	children := make([][]int, len(m.Joints))
	var queue []int
	for i, j := range m.Joints {
		if j.Parent == NoParent {
			queue = append(queue, i)
		} else {
			children[j.Parent] = append(children[j.Parent], i)
		}
	}

	order := make([]int, 0, len(m.Joints))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, i)
		queue = append(queue, children[i]...)
	}
	return order
}

// WorldMatrices evaluates clip at time t and returns each joint's model-space
// transform. A nil clip yields the bind pose.
func (m *Model) WorldMatrices(clip *Clip, t float32) []mgl32.Mat4 {
	world := make([]mgl32.Mat4, len(m.Joints))
	for _, i := range m.JointOrder() {
		joint := &m.Joints[i]
		local := joint.LocalBind
		if clip != nil && i < len(clip.Tracks) && !clip.Tracks[i].Empty() {
			local = clip.Tracks[i].Sample(t, IdentityTransform()).Mat4()
		}
		if joint.Parent == NoParent {
			world[i] = local
		} else {
			world[i] = world[joint.Parent].Mul4(local)
		}
	}
	return world
}

// SkinningMatrices returns world * inverse bind for every joint, ready for
// upload as a GPU skinning palette.
func (m *Model) SkinningMatrices(clip *Clip, t float32) []mgl32.Mat4 {
	world := m.WorldMatrices(clip, t)
	for i := range world {
		world[i] = world[i].Mul4(m.Joints[i].InverseBind)
	}
	return world
}
