package skeletal

import (
	"github.com/Faultbox/rigport/pkg/importerr"
)

// Parts is the importer output handed to Assemble. Slices may alias
// importer scratch storage; Assemble copies them.
type Parts struct {
	Name     string
	Joints   []Joint
	Vertices []Vertex
	Indices  []uint32
	Clips    []Clip
}

// Assemble validates cross references between the parts and returns a model
// owning copies of all data. Every failure wraps importerr.ErrInconsistentAsset.
func Assemble(p Parts) (*Model, error) {
	if err := ValidateHierarchy(p.Joints); err != nil {
		return nil, err
	}
	if err := validateVertices(p.Vertices, len(p.Joints)); err != nil {
		return nil, err
	}
	for i, idx := range p.Indices {
		if int64(idx) >= int64(len(p.Vertices)) {
			return nil, importerr.New(importerr.ErrInconsistentAsset,
				"index %d references vertex %d of %d", i, idx, len(p.Vertices))
		}
	}
	if len(p.Indices)%3 != 0 {
		return nil, importerr.New(importerr.ErrInconsistentAsset, "index count %d is not a multiple of 3", len(p.Indices))
	}
	for i := range p.Clips {
		if err := validateClip(&p.Clips[i], len(p.Joints)); err != nil {
			return nil, err
		}
	}

	m := &Model{
		Name:     p.Name,
		Joints:   append([]Joint(nil), p.Joints...),
		Vertices: append([]Vertex(nil), p.Vertices...),
		Indices:  append([]uint32(nil), p.Indices...),
		Clips:    make([]Clip, len(p.Clips)),
	}
	for i, c := range p.Clips {
		tracks := make([]Track, len(c.Tracks))
		for j, tr := range c.Tracks {
			tracks[j] = Track{
				Times:      append([]float32(nil), tr.Times...),
				Transforms: append([]Transform(nil), tr.Transforms...),
			}
		}
		m.Clips[i] = Clip{Name: c.Name, Duration: c.Duration, Tracks: tracks}
	}
	return m, nil
}

// ValidateHierarchy checks that parent indices are in range and that no
// parent chain revisits a joint.
func ValidateHierarchy(joints []Joint) error {
	for i, j := range joints {
		if j.Parent == NoParent {
			continue
		}
		if j.Parent < 0 || j.Parent >= len(joints) {
			return importerr.New(importerr.ErrInconsistentAsset,
				"joint %q has parent %d out of range", j.Name, j.Parent)
		}
		if j.Parent == i {
			return importerr.New(importerr.ErrInconsistentAsset, "joint %q is its own parent", j.Name)
		}
	}

	// 0 = unvisited, 1 = on the current chain, 2 = known to reach a root.
	state := make([]uint8, len(joints))
	chain := make([]int, 0, 16)
	for i := range joints {
		chain = chain[:0]
		for j := i; j != NoParent && state[j] != 2; j = joints[j].Parent {
			if state[j] == 1 {
				return importerr.New(importerr.ErrInconsistentAsset, "joint %q is part of a parent cycle", joints[j].Name)
			}
			state[j] = 1
			chain = append(chain, j)
		}
		for _, j := range chain {
			state[j] = 2
		}
	}
	return nil
}

func validateVertices(vertices []Vertex, jointCount int) error {
	for i := range vertices {
		v := &vertices[i]
		for s := 0; s < MaxInfluences; s++ {
			if v.Weights[s] == 0 {
				continue
			}
			if int64(v.Joints[s]) >= int64(jointCount) {
				return importerr.New(importerr.ErrInconsistentAsset,
					"vertex %d slot %d references joint %d of %d", i, s, v.Joints[s], jointCount)
			}
		}
	}
	return nil
}

func validateClip(c *Clip, jointCount int) error {
	if len(c.Tracks) != jointCount {
		return importerr.New(importerr.ErrInconsistentAsset,
			"clip %q has %d tracks for %d joints", c.Name, len(c.Tracks), jointCount)
	}
	for j := range c.Tracks {
		tr := &c.Tracks[j]
		if len(tr.Times) != len(tr.Transforms) {
			return importerr.New(importerr.ErrInconsistentAsset,
				"clip %q joint %d has %d times and %d transforms", c.Name, j, len(tr.Times), len(tr.Transforms))
		}
		for k := 1; k < len(tr.Times); k++ {
			if tr.Times[k] <= tr.Times[k-1] {
				return importerr.New(importerr.ErrInconsistentAsset,
					"clip %q joint %d times not increasing at key %d", c.Name, j, k)
			}
		}
		if len(tr.Times) > 0 && tr.Times[len(tr.Times)-1] > c.Duration {
			return importerr.New(importerr.ErrInconsistentAsset,
				"clip %q joint %d extends past duration %v", c.Name, j, c.Duration)
		}
	}
	return nil
}
