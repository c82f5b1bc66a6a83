// Package gltf imports skinned, animated meshes from binary glTF 2.0 files.
//
// The importer reads the first mesh, the skin bound to it and every
// animation. Animation channels are merged per joint onto one time axis so
// each joint ends up with a single track of full local transforms.
package gltf

import (
	"fmt"
	"os"

	"github.com/Faultbox/rigport/pkg/glb"
	"github.com/Faultbox/rigport/pkg/jsondoc"
	"github.com/Faultbox/rigport/pkg/skeletal"
)

// Document is a parsed GLB with its buffer view and accessor tables
// validated against the BIN chunk.
type Document struct {
	JSON      jsondoc.Value
	BIN       []byte
	Views     []BufferView
	Accessors []Accessor
}

// Load parses the JSON chunk of c and checks every buffer view and accessor.
func Load(c *glb.Container) (*Document, error) {
	root, err := jsondoc.Parse(c.JSON)
	if err != nil {
		return nil, fmt.Errorf("parsing JSON chunk: %w", err)
	}
	d := &Document{JSON: root, BIN: c.BIN}
	if d.Views, err = readBufferViews(root, c.BIN); err != nil {
		return nil, err
	}
	if d.Accessors, err = readAccessors(root, d.Views); err != nil {
		return nil, err
	}
	return d, nil
}

// Options tunes the import.
type Options struct {
	// TimeEpsilon is the tolerance for merging key times. Zero selects
	// DefaultEpsilon.
	TimeEpsilon float32
}

func (o Options) epsilon() float32 {
	if o.TimeEpsilon <= 0 {
		return DefaultEpsilon
	}
	return o.TimeEpsilon
}

// Import extracts model parts from a loaded document.
func Import(d *Document, name string, opts Options) (skeletal.Parts, error) {
	nodes, err := d.JSON.Require("nodes")
	if err != nil {
		return skeletal.Parts{}, err
	}

	sk, err := d.readSkin(nodes)
	if err != nil {
		return skeletal.Parts{}, fmt.Errorf("reading skin: %w", err)
	}
	vertices, indices, err := d.readMesh()
	if err != nil {
		return skeletal.Parts{}, fmt.Errorf("reading mesh: %w", err)
	}
	clips, err := d.readAnimations(sk, opts.epsilon())
	if err != nil {
		return skeletal.Parts{}, fmt.Errorf("reading animations: %w", err)
	}

	return skeletal.Parts{
		Name:     name,
		Joints:   sk.joints,
		Vertices: vertices,
		Indices:  indices,
		Clips:    clips,
	}, nil
}

// Parse imports a GLB held in memory.
func Parse(data []byte, name string, opts Options) (skeletal.Parts, error) {
	c, err := glb.Read(data)
	if err != nil {
		return skeletal.Parts{}, err
	}
	d, err := Load(c)
	if err != nil {
		return skeletal.Parts{}, err
	}
	return Import(d, name, opts)
}

// ParseFile reads and imports a GLB file.
func ParseFile(path string, opts Options) (skeletal.Parts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return skeletal.Parts{}, fmt.Errorf("reading file: %w", err)
	}
	return Parse(data, path, opts)
}
