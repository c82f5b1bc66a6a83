// Package collada imports skinned, animated meshes from COLLADA documents.
//
// Only the subset needed for a single skinned mesh is read: the first
// geometry, the first skin controller, the first visual scene and every
// animation channel that targets a joint's full transform matrix.
package collada

import (
	"fmt"
	"os"

	"github.com/Faultbox/rigport/pkg/encoding"
	"github.com/Faultbox/rigport/pkg/markup"
	"github.com/Faultbox/rigport/pkg/skeletal"
)

// Import extracts model parts from a parsed COLLADA document.
func Import(doc *markup.Document, name string) (skeletal.Parts, error) {
	root := doc.Root()

	geom, err := readGeometry(doc, root)
	if err != nil {
		return skeletal.Parts{}, fmt.Errorf("reading geometry: %w", err)
	}
	s, err := readSkin(doc, root)
	if err != nil {
		return skeletal.Parts{}, fmt.Errorf("reading skin: %w", err)
	}
	if err := s.apply(geom); err != nil {
		return skeletal.Parts{}, fmt.Errorf("binding skin: %w", err)
	}
	joints, nodeJoint, err := readHierarchy(doc, root, s)
	if err != nil {
		return skeletal.Parts{}, fmt.Errorf("reading hierarchy: %w", err)
	}
	clip, err := readClip(doc, root, len(joints), nodeJoint)
	if err != nil {
		return skeletal.Parts{}, fmt.Errorf("reading animation: %w", err)
	}

	parts := skeletal.Parts{
		Name:     name,
		Joints:   joints,
		Vertices: geom.vertices,
		Indices:  geom.indices,
	}
	if clip != nil {
		parts.Clips = []skeletal.Clip{*clip}
	}
	return parts, nil
}

// Parse decodes, parses and imports a COLLADA document held in memory.
func Parse(data []byte, name string) (skeletal.Parts, error) {
	text, err := encoding.ToUTF8(data)
	if err != nil {
		return skeletal.Parts{}, err
	}
	doc, err := markup.Parse(text)
	if err != nil {
		return skeletal.Parts{}, fmt.Errorf("parsing markup: %w", err)
	}
	return Import(doc, name)
}

// ParseFile reads and imports a COLLADA file.
func ParseFile(path string) (skeletal.Parts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return skeletal.Parts{}, fmt.Errorf("reading file: %w", err)
	}
	return Parse(data, path)
}
