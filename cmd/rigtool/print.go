package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Faultbox/rigport/pkg/importerr"
	"github.com/Faultbox/rigport/pkg/skeletal"
)

// writeJointTree prints the skeleton depth-first, one joint per line.
func writeJointTree(w io.Writer, m *skeletal.Model) {
	var walk func(i, depth int)
	walk = func(i, depth int) {
		j := &m.Joints[i]
		t := skeletal.Decompose(j.LocalBind)
		fmt.Fprintf(w, "%s[%d] %s  t=(%.3f, %.3f, %.3f)\n",
			strings.Repeat("  ", depth), i, j.Name,
			t.Translation.X(), t.Translation.Y(), t.Translation.Z())
		for _, c := range m.Children(i) {
			walk(c, depth+1)
		}
	}
	for _, r := range m.Roots() {
		walk(r, 0)
	}
}

// writeClip prints a clip header and the key count of each animated joint.
func writeClip(w io.Writer, m *skeletal.Model, c *skeletal.Clip) {
	animated := 0
	for i := range c.Tracks {
		if !c.Tracks[i].Empty() {
			animated++
		}
	}
	fmt.Fprintf(w, "%s: %.3fs, %d/%d joints animated\n", c.Name, c.Duration, animated, len(m.Joints))
	for i := range c.Tracks {
		tr := &c.Tracks[i]
		if tr.Empty() {
			continue
		}
		fmt.Fprintf(w, "  %-24s %4d keys  %.3f..%.3f\n",
			m.Joints[i].Name, len(tr.Times), tr.Times[0], tr.Times[len(tr.Times)-1])
	}
}

// writePose prints the world-space position of every joint at time t.
func writePose(w io.Writer, m *skeletal.Model, c *skeletal.Clip, t float32) {
	fmt.Fprintf(w, "  pose at %.3fs:\n", t)
	world := m.WorldMatrices(c, t)
	for i, mat := range world {
		p := mat.Col(3)
		fmt.Fprintf(w, "    %-22s (%.3f, %.3f, %.3f)\n", m.Joints[i].Name, p.X(), p.Y(), p.Z())
	}
}

// describeError formats err for the terminal. Byte offsets are dropped
// unless showOffsets is set.
func describeError(err error, showOffsets bool) string {
	var ie *importerr.Error
	if showOffsets || !errors.As(err, &ie) || ie.Offset < 0 {
		return err.Error()
	}
	stripped := *ie
	stripped.Offset = importerr.NoOffset
	return strings.Replace(err.Error(), ie.Error(), stripped.Error(), 1)
}
