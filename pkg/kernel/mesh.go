package kernel

import v3 "github.com/deadsy/sdfx/vec/v3"

// Mesh is a triangle mesh suitable for rendering and export.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Name     string    `json:"name"`     // segment or part this came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Vertex returns vertex i as a float64 vector.
func (m *Mesh) Vertex(i int) v3.Vec {
	return v3.Vec{
		X: float64(m.Vertices[3*i]),
		Y: float64(m.Vertices[3*i+1]),
		Z: float64(m.Vertices[3*i+2]),
	}
}

// Triangle returns the three corner positions of triangle i.
func (m *Mesh) Triangle(i int) [3]v3.Vec {
	return [3]v3.Vec{
		m.Vertex(int(m.Indices[3*i])),
		m.Vertex(int(m.Indices[3*i+1])),
		m.Vertex(int(m.Indices[3*i+2])),
	}
}

// Bounds returns the axis-aligned bounding box of the vertices.
// ok is false for an empty mesh.
func (m *Mesh) Bounds() (min, max v3.Vec, ok bool) {
	if m.IsEmpty() {
		return v3.Vec{}, v3.Vec{}, false
	}
	min = m.Vertex(0)
	max = min
	for i := 1; i < m.VertexCount(); i++ {
		v := m.Vertex(i)
		min = min.Min(v)
		max = max.Max(v)
	}
	return min, max, true
}

// SurfaceArea sums the area of every triangle.
func (m *Mesh) SurfaceArea() float64 {
	var area float64
	for i := 0; i < m.TriangleCount(); i++ {
		t := m.Triangle(i)
		area += t[1].Sub(t[0]).Cross(t[2].Sub(t[0])).Length() / 2
	}
	return area
}

// SignedVolume returns the volume enclosed by the triangles using the
// divergence theorem. It is only meaningful for closed meshes; outward
// facing triangles give a positive result.
func (m *Mesh) SignedVolume() float64 {
	var vol float64
	for i := 0; i < m.TriangleCount(); i++ {
		t := m.Triangle(i)
		vol += t[0].Dot(t[1].Cross(t[2])) / 6
	}
	return vol
}

// Triangles returns a view of count triangles starting at triangle
// start. The view shares vertex storage with m and must not be modified.
func (m *Mesh) Triangles(start, count int) *Mesh {
	return &Mesh{
		Vertices: m.Vertices,
		Normals:  m.Normals,
		Indices:  m.Indices[3*start : 3*(start+count)],
		Name:     m.Name,
	}
}

// Append copies the geometry of o onto the end of m, offsetting o's
// indices. It returns the index offset at which o's triangles start.
func (m *Mesh) Append(o *Mesh) int {
	start := len(m.Indices)
	base := uint32(m.VertexCount())
	m.Vertices = append(m.Vertices, o.Vertices...)
	m.Normals = append(m.Normals, o.Normals...)
	for _, idx := range o.Indices {
		m.Indices = append(m.Indices, idx+base)
	}
	return start
}
