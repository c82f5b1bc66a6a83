package gltf

import (
	"fmt"

	"github.com/Faultbox/rigport/pkg/importerr"
	"github.com/Faultbox/rigport/pkg/jsondoc"
	"github.com/Faultbox/rigport/pkg/skeletal"
)

// readAnimations turns every animation into a clip with one track per joint.
func (d *Document) readAnimations(s *skin, eps float32) ([]skeletal.Clip, error) {
	anims, ok := d.JSON.Get("animations")
	if !ok {
		return nil, nil
	}
	clips := make([]skeletal.Clip, 0, anims.Len())
	for i, a := range anims.Items() {
		clip, err := d.readAnimation(a, i, s, eps)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", i, err)
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

func (d *Document) readAnimation(a jsondoc.Value, index int, s *skin, eps float32) (skeletal.Clip, error) {
	clip := skeletal.Clip{
		Name:   fmt.Sprintf("animation_%d", index),
		Tracks: make([]skeletal.Track, len(s.joints)),
	}
	if v, ok := a.Get("name"); ok {
		if name, ok := v.Str(); ok && name != "" {
			clip.Name = name
		}
	}

	samplers, err := a.Require("samplers")
	if err != nil {
		return clip, err
	}
	channels, err := a.Require("channels")
	if err != nil {
		return clip, err
	}

	perJoint := make([]Channels, len(s.joints))
	decoded := make(map[int]*Channel)
	for ci, cv := range channels.Items() {
		target, err := cv.Require("target")
		if err != nil {
			return clip, fmt.Errorf("channel %d: %w", ci, err)
		}
		if _, ok := target.Get("node"); !ok {
			continue
		}
		node, err := target.RequireInt("node")
		if err != nil {
			return clip, fmt.Errorf("channel %d: %w", ci, err)
		}
		joint, ok := s.nodeJoint[node]
		if !ok {
			continue
		}
		path, err := target.RequireString("path")
		if err != nil {
			return clip, fmt.Errorf("channel %d: %w", ci, err)
		}

		var slot **Channel
		switch path {
		case "scale":
			slot = &perJoint[joint].Scale
		case "rotation":
			slot = &perJoint[joint].Rotation
		case "translation":
			slot = &perJoint[joint].Translation
		default:
			return clip, importerr.New(importerr.ErrInconsistentAsset, "channel %d: unsupported path %q", ci, path)
		}
		if *slot != nil {
			return clip, importerr.New(importerr.ErrInconsistentAsset, "channel %d: %s of node %d animated twice", ci, path, node)
		}

		si, err := cv.RequireInt("sampler")
		if err != nil {
			return clip, fmt.Errorf("channel %d: %w", ci, err)
		}
		ch, ok := decoded[si]
		if !ok {
			sv, ok := samplers.Index(si)
			if !ok {
				return clip, importerr.New(importerr.ErrInconsistentAsset, "channel %d: sampler %d of %d", ci, si, samplers.Len())
			}
			if ch, err = d.readSampler(sv); err != nil {
				return clip, fmt.Errorf("sampler %d: %w", si, err)
			}
			decoded[si] = ch
		}
		*slot = ch
	}

	for j := range perJoint {
		track, err := BuildTrack(perJoint[j], s.rest[j], eps)
		if err != nil {
			return clip, fmt.Errorf("joint %q: %w", s.joints[j].Name, err)
		}
		clip.Tracks[j] = track
		for _, ch := range []*Channel{perJoint[j].Scale, perJoint[j].Rotation, perJoint[j].Translation} {
			if ch != nil && ch.Times[len(ch.Times)-1] > clip.Duration {
				clip.Duration = ch.Times[len(ch.Times)-1]
			}
		}
	}
	return clip, nil
}

// readSampler decodes a sampler's key times and values. Cubic-spline
// outputs keep only the value element of each triplet.
func (d *Document) readSampler(sv jsondoc.Value) (*Channel, error) {
	ch := &Channel{Interp: Linear}
	if v, ok := sv.Get("interpolation"); ok {
		s, _ := v.Str()
		switch s {
		case "LINEAR":
		case "STEP":
			ch.Interp = Step
		case "CUBICSPLINE":
			ch.Interp = CubicSpline
		default:
			return nil, importerr.New(importerr.ErrInconsistentAsset, "unsupported interpolation %q", s)
		}
	}

	in, err := sv.RequireInt("input")
	if err != nil {
		return nil, err
	}
	if ch.Times, err = d.ReadFloats(in, Scalar); err != nil {
		return nil, err
	}
	out, err := sv.RequireInt("output")
	if err != nil {
		return nil, err
	}
	values, err := d.ReadFloats(out, Vec3, Vec4)
	if err != nil {
		return nil, err
	}
	if ch.Interp != CubicSpline {
		ch.Values = values
		return ch, nil
	}

	keys := len(ch.Times)
	if keys == 0 || len(values)%(keys*3) != 0 {
		return nil, importerr.New(importerr.ErrInconsistentAsset, "cubic spline output has %d values for %d keys", len(values), keys)
	}
	width := len(values) / (keys * 3)
	ch.Values = make([]float32, 0, keys*width)
	for k := 0; k < keys; k++ {
		mid := (k*3 + 1) * width
		ch.Values = append(ch.Values, values[mid:mid+width]...)
	}
	return ch, nil
}
