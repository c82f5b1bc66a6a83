package gltf

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/rigport/pkg/importerr"
	"github.com/Faultbox/rigport/pkg/skeletal"
)

// DefaultEpsilon is the tolerance under which two key times are the same.
const DefaultEpsilon = 1e-5

// Interpolation is a sampler's interpolation mode.
type Interpolation int

const (
	Linear Interpolation = iota
	Step
	CubicSpline
)

func (i Interpolation) String() string {
	switch i {
	case Step:
		return "STEP"
	case CubicSpline:
		return "CUBICSPLINE"
	default:
		return "LINEAR"
	}
}

// Channel is one animated property of a joint. Values holds one element per
// time; a cubic-spline channel holds only the value element of each
// in-tangent/value/out-tangent triplet.
type Channel struct {
	Times  []float32
	Values []float32
	Interp Interpolation
}

// Channels groups the channels animating one joint. Nil means the property
// stays at rest.
type Channels struct {
	Scale       *Channel
	Rotation    *Channel
	Translation *Channel
}

func (c Channels) empty() bool {
	return c.Scale == nil && c.Rotation == nil && c.Translation == nil
}

const endOfAxis = -1

type axisNode struct {
	t    float32
	next int
}

// axis is a singly linked time line stored in one slice.
type axis struct {
	nodes []axisNode
	head  int
}

func newAxis(times []float32) *axis {
	a := &axis{nodes: make([]axisNode, 0, len(times)*2), head: endOfAxis}
	for i := len(times) - 1; i >= 0; i-- {
		a.head = a.add(times[i], a.head)
	}
	return a
}

func (a *axis) add(t float32, next int) int {
	a.nodes = append(a.nodes, axisNode{t: t, next: next})
	return len(a.nodes) - 1
}

// mergeInsert splices the sorted times into the axis. A time within eps of
// an existing node, including one spliced by this call, reuses it.
func (a *axis) mergeInsert(times []float32, eps float32) {
	prev, cur := endOfAxis, a.head
	for _, t := range times {
		for cur != endOfAxis && a.nodes[cur].t < t-eps {
			prev, cur = cur, a.nodes[cur].next
		}
		if cur != endOfAxis && a.nodes[cur].t <= t+eps {
			continue
		}
		if prev != endOfAxis && a.nodes[prev].t >= t-eps {
			continue
		}
		n := a.add(t, cur)
		if prev == endOfAxis {
			a.head = n
		} else {
			a.nodes[prev].next = n
		}
		prev = n
	}
}

// anchorZero makes the axis start at exactly 0.
func (a *axis) anchorZero(eps float32) {
	if a.head == endOfAxis {
		return
	}
	if a.nodes[a.head].t > eps {
		a.head = a.add(0, a.head)
		return
	}
	a.nodes[a.head].t = 0
}

func (a *axis) times() []float32 {
	out := make([]float32, 0, len(a.nodes))
	for n := a.head; n != endOfAxis; n = a.nodes[n].next {
		out = append(out, a.nodes[n].t)
	}
	return out
}

// MergeTimes builds the shared key times of one joint: the scale times,
// merged with the rotation times, then the translation times, anchored at 0.
func MergeTimes(eps float32, scale, rotation, translation []float32) []float32 {
	a := newAxis(scale)
	a.mergeInsert(rotation, eps)
	a.mergeInsert(translation, eps)
	a.anchorZero(eps)
	return a.times()
}

// BuildTrack resamples a joint's channels onto their merged time axis.
// Absent channels hold the rest value.
func BuildTrack(ch Channels, rest skeletal.Transform, eps float32) (skeletal.Track, error) {
	if ch.empty() {
		return skeletal.Track{}, nil
	}
	for _, c := range []struct {
		name  string
		ch    *Channel
		width int
	}{{"scale", ch.Scale, 3}, {"rotation", ch.Rotation, 4}, {"translation", ch.Translation, 3}} {
		if c.ch == nil {
			continue
		}
		if err := c.ch.validate(c.width); err != nil {
			return skeletal.Track{}, importerr.New(importerr.ErrInconsistentAsset, "%s channel: %v", c.name, err)
		}
	}

	times := MergeTimes(eps, ch.Scale.times(), ch.Rotation.times(), ch.Translation.times())
	track := skeletal.Track{
		Times:      times,
		Transforms: make([]skeletal.Transform, len(times)),
	}
	for i, t := range times {
		tr := rest
		if ch.Scale != nil {
			tr.Scale = ch.Scale.sampleVec3(t)
		}
		if ch.Rotation != nil {
			tr.Rotation = ch.Rotation.sampleQuat(t)
		}
		if ch.Translation != nil {
			tr.Translation = ch.Translation.sampleVec3(t)
		}
		track.Transforms[i] = tr
	}
	return track, nil
}

func (c *Channel) times() []float32 {
	if c == nil {
		return nil
	}
	return c.Times
}

func (c *Channel) validate(width int) error {
	if len(c.Times) == 0 {
		return fmt.Errorf("no keys")
	}
	if len(c.Values) != len(c.Times)*width {
		return fmt.Errorf("%d values for %d keys of width %d", len(c.Values), len(c.Times), width)
	}
	if c.Times[0] < 0 {
		return fmt.Errorf("negative key time %v", c.Times[0])
	}
	for i := 1; i < len(c.Times); i++ {
		if !(c.Times[i] > c.Times[i-1]) {
			return fmt.Errorf("key %d at %v does not follow %v", i, c.Times[i], c.Times[i-1])
		}
	}
	return nil
}

// segment locates t between keys k and k+1 and returns the blend factor.
// Outside the keyed range the end key is held.
func (c *Channel) segment(t float32) (k int, f float32) {
	n := len(c.Times)
	if t <= c.Times[0] {
		return 0, 0
	}
	if t >= c.Times[n-1] {
		return n - 1, 0
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if c.Times[mid] <= t {
			lo = mid
		} else {
			hi = mid
		}
	}
	if c.Interp == Step {
		return lo, 0
	}
	return lo, (t - c.Times[lo]) / (c.Times[lo+1] - c.Times[lo])
}

func (c *Channel) vec3(k int) mgl32.Vec3 {
	return mgl32.Vec3{c.Values[k*3], c.Values[k*3+1], c.Values[k*3+2]}
}

func (c *Channel) quat(k int) mgl32.Quat {
	v := c.Values[k*4:]
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}.Normalize()
}

func (c *Channel) sampleVec3(t float32) mgl32.Vec3 {
	k, f := c.segment(t)
	if f == 0 {
		return c.vec3(k)
	}
	return skeletal.LerpVec3(c.vec3(k), c.vec3(k+1), f)
}

func (c *Channel) sampleQuat(t float32) mgl32.Quat {
	k, f := c.segment(t)
	if f == 0 {
		return c.quat(k)
	}
	return skeletal.Slerp(c.quat(k), c.quat(k+1), f)
}
