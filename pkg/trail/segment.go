package trail

import (
	"fmt"

	"github.com/chazu/beetle/pkg/kernel"
	"github.com/chazu/beetle/pkg/material"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"
)

// Kind enumerates the kinds of trail segment.
type Kind int

const (
	KindPrism  Kind = iota // swept cross-section between two faces
	KindLine               // swept point: a line between two positions
	KindMerged             // several segments compacted into one
)

func (k Kind) String() string {
	switch k {
	case KindPrism:
		return "prism"
	case KindLine:
		return "line"
	case KindMerged:
		return "merged"
	default:
		return "unknown"
	}
}

// Region assigns a material to a run of triangles in a segment's mesh.
// A region is the geometry of one appended segment; Capped tells whether
// that run is a closed solid on its own.
type Region struct {
	Start    int // first triangle
	Count    int // number of triangles
	Material *material.Material
	Capped   bool
}

// Line is a line-trail piece left by a point cross-section.
type Line struct {
	From, To v3.Vec
	Material *material.Material
}

// Segment is one immutable piece of extruded geometry. Capped is true
// when every region is capped. A merged segment is not one solid: two
// neighbouring regions share a face, so closure holds per region only.
type Segment struct {
	ID      uuid.UUID
	Kind    Kind
	Mesh    *kernel.Mesh
	Regions []Region
	Lines   []Line
	Capped  bool
}

// NewPrism wraps a prism mesh drawn in a single material.
func NewPrism(mesh *kernel.Mesh, mat *material.Material, capped bool) *Segment {
	id := uuid.New()
	if mesh == nil {
		mesh = &kernel.Mesh{}
	}
	mesh.Name = "segment-" + id.String()
	return &Segment{
		ID:      id,
		Kind:    KindPrism,
		Mesh:    mesh,
		Regions: []Region{{Start: 0, Count: mesh.TriangleCount(), Material: mat, Capped: capped}},
		Capped:  capped,
	}
}

// NewLine returns a line segment from one position to another.
func NewLine(from, to v3.Vec, mat *material.Material) *Segment {
	id := uuid.New()
	return &Segment{
		ID:    id,
		Kind:  KindLine,
		Mesh:  &kernel.Mesh{Name: "segment-" + id.String()},
		Lines: []Line{{From: from, To: to, Material: mat}},
	}
}

// Bounds returns the box around the segment's vertices and line ends.
// ok is false when the segment has no geometry.
func (s *Segment) Bounds() (min, max v3.Vec, ok bool) {
	min, max, ok = s.Mesh.Bounds()
	for _, l := range s.Lines {
		for _, p := range []v3.Vec{l.From, l.To} {
			if !ok {
				min, max, ok = p, p, true
				continue
			}
			min = min.Min(p)
			max = max.Max(p)
		}
	}
	return min, max, ok
}

func (s *Segment) String() string {
	return fmt.Sprintf("%s %s (%d triangles, %d lines)", s.Kind, s.ID, s.Mesh.TriangleCount(), len(s.Lines))
}
