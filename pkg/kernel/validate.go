package kernel

import (
	"fmt"
	"math"
)

// Severity indicates whether a mesh finding blocks export or is merely
// informational.
type Severity int

const (
	SeverityError   Severity = iota // blocks export
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Diagnostic describes a single mesh validation finding.
type Diagnostic struct {
	Triangle int // offending triangle, -1 for mesh-level findings
	Message  string
	Severity Severity
}

func (d Diagnostic) Error() string {
	if d.Triangle < 0 {
		return fmt.Sprintf("[%s] %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("[%s] triangle %d: %s", d.Severity, d.Triangle, d.Message)
}

// HasErrors reports whether any diagnostic is blocking.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// degenerateArea is the doubled-area threshold below which a triangle is
// reported as degenerate.
const degenerateArea = 1e-12

// weldTolerance quantises positions when matching edges of a closed mesh.
// Vertices are float32, so anything finer than this is rounding noise.
const weldTolerance = 1e-5

// ValidateMesh checks the structural soundness of m. When closed is true
// it also checks that every edge is shared by exactly two triangles with
// opposite orientation, i.e. that the mesh is a watertight solid. The
// function is read-only.
func ValidateMesh(m *Mesh, closed bool) []Diagnostic {
	var diags []Diagnostic
	diags = append(diags, validateShape(m)...)
	if HasErrors(diags) {
		// Index and array problems make every later check unreliable.
		return diags
	}
	diags = append(diags, validateFinite(m)...)
	diags = append(diags, validateDegenerate(m)...)
	if closed {
		diags = append(diags, validateWatertight(m)...)
	}
	return diags
}

// validateShape checks array lengths and index ranges.
func validateShape(m *Mesh) []Diagnostic {
	var diags []Diagnostic
	if len(m.Vertices)%3 != 0 {
		diags = append(diags, Diagnostic{
			Triangle: -1,
			Message:  fmt.Sprintf("vertex array length %d is not a multiple of 3", len(m.Vertices)),
			Severity: SeverityError,
		})
	}
	if len(m.Normals) != len(m.Vertices) {
		diags = append(diags, Diagnostic{
			Triangle: -1,
			Message:  fmt.Sprintf("normals length %d != vertices length %d", len(m.Normals), len(m.Vertices)),
			Severity: SeverityError,
		})
	}
	if len(m.Indices)%3 != 0 {
		diags = append(diags, Diagnostic{
			Triangle: -1,
			Message:  fmt.Sprintf("index array length %d is not a multiple of 3", len(m.Indices)),
			Severity: SeverityError,
		})
		return diags
	}
	n := uint32(m.VertexCount())
	for i, idx := range m.Indices {
		if idx >= n {
			diags = append(diags, Diagnostic{
				Triangle: i / 3,
				Message:  fmt.Sprintf("index %d out of range (%d vertices)", idx, n),
				Severity: SeverityError,
			})
		}
	}
	return diags
}

func validateFinite(m *Mesh) []Diagnostic {
	for _, f := range m.Vertices {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return []Diagnostic{{
				Triangle: -1,
				Message:  "mesh contains non-finite vertex coordinates",
				Severity: SeverityError,
			}}
		}
	}
	return nil
}

func validateDegenerate(m *Mesh) []Diagnostic {
	var diags []Diagnostic
	for i := 0; i < m.TriangleCount(); i++ {
		t := m.Triangle(i)
		if t[1].Sub(t[0]).Cross(t[2].Sub(t[0])).Length() < degenerateArea {
			diags = append(diags, Diagnostic{
				Triangle: i,
				Message:  "degenerate triangle has zero area",
				Severity: SeverityWarning,
			})
		}
	}
	return diags
}

// weldKey is a vertex position snapped to the weld grid.
type weldKey [3]int64

func weld(m *Mesh, i int) weldKey {
	v := m.Vertex(i)
	return weldKey{
		int64(math.Round(v.X / weldTolerance)),
		int64(math.Round(v.Y / weldTolerance)),
		int64(math.Round(v.Z / weldTolerance)),
	}
}

type edgeKey struct{ from, to weldKey }

// validateWatertight counts directed edges over welded positions. In a
// closed, consistently wound mesh every directed edge appears exactly once
// and its reverse appears exactly once.
func validateWatertight(m *Mesh) []Diagnostic {
	edges := make(map[edgeKey]int)
	for i := 0; i < m.TriangleCount(); i++ {
		var k [3]weldKey
		for j := 0; j < 3; j++ {
			k[j] = weld(m, int(m.Indices[3*i+j]))
		}
		for j := 0; j < 3; j++ {
			a, b := k[j], k[(j+1)%3]
			if a == b {
				continue // collapsed edge of a degenerate triangle
			}
			edges[edgeKey{a, b}]++
		}
	}

	var open, flipped int
	for e, n := range edges {
		rev := edges[edgeKey{e.to, e.from}]
		switch {
		case rev == 0:
			open++
		case n > 1:
			flipped++
		}
	}

	var diags []Diagnostic
	if open > 0 {
		diags = append(diags, Diagnostic{
			Triangle: -1,
			Message:  fmt.Sprintf("mesh is not closed: %d boundary edges", open),
			Severity: SeverityError,
		})
	}
	if flipped > 0 {
		diags = append(diags, Diagnostic{
			Triangle: -1,
			Message:  fmt.Sprintf("inconsistent winding: %d edges used twice in the same direction", flipped),
			Severity: SeverityError,
		})
	}
	return diags
}
