package collada

import (
	"strings"

	"github.com/Faultbox/rigport/pkg/importerr"
	"github.com/Faultbox/rigport/pkg/markup"
	"github.com/Faultbox/rigport/pkg/skeletal"
)

// DefaultClipName names the clip when the file has no <animation_clip>.
const DefaultClipName = "default"

// readClip gathers every channel under library_animations into one clip.
// It returns nil when the file carries no animation.
func readClip(doc *markup.Document, root markup.NodeID, jointCount int, nodeJoint map[string]int) (*skeletal.Clip, error) {
	lib := doc.Child(root, "library_animations")
	if lib == markup.InvalidNode {
		return nil, nil
	}

	clip := &skeletal.Clip{Name: clipName(doc, root), Tracks: make([]skeletal.Track, jointCount)}
	animated := make([]bool, jointCount)

	var visit func(anim markup.NodeID) error
	visit = func(anim markup.NodeID) error {
		if err := readChannels(doc, anim, clip, animated, nodeJoint); err != nil {
			return err
		}
		for _, child := range doc.Children(anim, "animation") {
			if err := visit(child); err != nil {
				return err
			}
		}
		return nil
	}
	for _, anim := range doc.Children(lib, "animation") {
		if err := visit(anim); err != nil {
			return nil, err
		}
	}

	hasTrack := false
	for _, ok := range animated {
		hasTrack = hasTrack || ok
	}
	if !hasTrack {
		return nil, nil
	}
	return clip, nil
}

func clipName(doc *markup.Document, root markup.NodeID) string {
	ac := doc.Path(root, "library_animation_clips", "animation_clip")
	if ac == markup.InvalidNode {
		return DefaultClipName
	}
	if name, ok := doc.Attr(ac, "name"); ok && name != "" {
		return name
	}
	if id, ok := doc.Attr(ac, "id"); ok && id != "" {
		return id
	}
	return DefaultClipName
}

func readChannels(doc *markup.Document, anim markup.NodeID, clip *skeletal.Clip, animated []bool, nodeJoint map[string]int) error {
	channels := doc.Children(anim, "channel")
	if len(channels) == 0 {
		return nil
	}
	sources, _, err := ReadSources(doc, anim)
	if err != nil {
		return err
	}

	for _, ch := range channels {
		target, err := doc.RequireAttr(ch, "target")
		if err != nil {
			return err
		}
		nodeID, path, _ := strings.Cut(target, "/")
		joint, ok := nodeJoint[nodeID]
		if !ok {
			continue
		}
		if path != "transform" {
			return importerr.At(importerr.ErrInconsistentAsset, doc.Offset(ch), "unsupported animation target %q", target)
		}
		if animated[joint] {
			return importerr.At(importerr.ErrInconsistentAsset, doc.Offset(ch), "node %q is animated twice", nodeID)
		}

		ref, err := doc.RequireAttr(ch, "source")
		if err != nil {
			return err
		}
		sampler := findByID(doc, anim, "sampler", strings.TrimPrefix(ref, "#"))
		if sampler == markup.InvalidNode {
			return importerr.At(importerr.ErrMissingRequiredElement, doc.Offset(ch), "sampler %q not found", ref)
		}
		track, err := readSampler(doc, sampler, sources)
		if err != nil {
			return err
		}

		clip.Tracks[joint] = track
		animated[joint] = true
		if last := track.Times[len(track.Times)-1]; last > clip.Duration {
			clip.Duration = last
		}
	}
	return nil
}

func readSampler(doc *markup.Document, sampler markup.NodeID, sources map[string]*Source) (skeletal.Track, error) {
	inputs, err := readInputs(doc, sampler)
	if err != nil {
		return skeletal.Track{}, err
	}
	in, ok := findInput(inputs, "INPUT")
	if !ok {
		return skeletal.Track{}, importerr.At(importerr.ErrMissingRequiredElement, doc.Offset(sampler), "sampler has no INPUT")
	}
	out, ok := findInput(inputs, "OUTPUT")
	if !ok {
		return skeletal.Track{}, importerr.At(importerr.ErrMissingRequiredElement, doc.Offset(sampler), "sampler has no OUTPUT")
	}
	timeSrc, err := lookupSource(doc, sampler, sources, in.source)
	if err != nil {
		return skeletal.Track{}, err
	}
	matSrc, err := lookupSource(doc, sampler, sources, out.source)
	if err != nil {
		return skeletal.Track{}, err
	}

	times := timeSrc.Floats
	mats := matSrc.Mat4s()
	if len(times) == 0 || len(times) != len(mats) {
		return skeletal.Track{}, importerr.At(importerr.ErrInconsistentAsset, doc.Offset(sampler),
			"sampler has %d times and %d matrices", len(times), len(mats))
	}
	for i, t := range times {
		if t < 0 {
			return skeletal.Track{}, importerr.At(importerr.ErrInconsistentAsset, doc.Offset(sampler),
				"key %d has negative time %v", i, t)
		}
		if i > 0 && t <= times[i-1] {
			return skeletal.Track{}, importerr.At(importerr.ErrInconsistentAsset, doc.Offset(sampler),
				"key %d time %v does not follow %v", i, t, times[i-1])
		}
	}

	track := skeletal.Track{
		Times:      make([]float32, 0, len(times)+1),
		Transforms: make([]skeletal.Transform, 0, len(times)+1),
	}
	if times[0] > 0 {
		track.Times = append(track.Times, 0)
		track.Transforms = append(track.Transforms, skeletal.Decompose(mats[0]))
	}
	for i, t := range times {
		track.Times = append(track.Times, t)
		track.Transforms = append(track.Transforms, skeletal.Decompose(mats[i]))
	}
	return track, nil
}

func findByID(doc *markup.Document, parent markup.NodeID, name, id string) markup.NodeID {
	for _, n := range doc.Children(parent, name) {
		if v, _ := doc.Attr(n, "id"); v == id {
			return n
		}
	}
	return markup.InvalidNode
}
