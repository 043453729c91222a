package extrude

import (
	"github.com/chazu/beetle/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// newellNormal returns the unnormalised normal of a planar polygon.
func newellNormal(face []v3.Vec) v3.Vec {
	var n v3.Vec
	for i := range face {
		a, b := face[i], face[(i+1)%len(face)]
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	return n
}

func centroid(face []v3.Vec) v3.Vec {
	var c v3.Vec
	for _, p := range face {
		c = c.Add(p)
	}
	return c.MulScalar(1 / float64(len(face)))
}

// needsFlip reports whether the default winding would point the far cap
// back towards the near face.
func needsFlip(near, far []v3.Vec) bool {
	d := centroid(far).Sub(centroid(near))
	return newellNormal(far).Dot(d) < 0
}

// sameFace reports whether every point of a is within tol of b.
func sameFace(a, b []v3.Vec, tol float64) bool {
	for i := range a {
		if a[i].Sub(b[i]).Length() > tol {
			return false
		}
	}
	return true
}

func triNormal(a, b, c v3.Vec) v3.Vec {
	return b.Sub(a).Cross(c.Sub(a))
}

func unit(v v3.Vec) v3.Vec {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.MulScalar(1 / l)
}

type meshWriter struct {
	m *kernel.Mesh
}

func (w *meshWriter) vertex(p, n v3.Vec) uint32 {
	idx := uint32(w.m.VertexCount())
	w.m.Vertices = append(w.m.Vertices, float32(p.X), float32(p.Y), float32(p.Z))
	w.m.Normals = append(w.m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
	return idx
}

// flatTriangles writes each triangle with its own vertices and face normal.
func (w *meshWriter) flatTriangles(pos []v3.Vec, tris [][3]int) {
	for _, t := range tris {
		a, b, c := pos[t[0]], pos[t[1]], pos[t[2]]
		n := unit(triNormal(a, b, c))
		w.m.Indices = append(w.m.Indices, w.vertex(a, n), w.vertex(b, n), w.vertex(c, n))
	}
}

// smoothTriangles writes the side walls with shared vertices whose normals
// are area-weighted averages of the adjacent faces. The closing duplicate
// of a closed ring is folded onto its first point so the seam is smooth.
func (w *meshWriter) smoothTriangles(pos []v3.Vec, topo *Topology) {
	p, r := topo.Points, topo.Ring
	slot := func(i int) int {
		if i < p {
			return i % r
		}
		return r + (i-p)%r
	}

	// Lateral triangles come in quad pairs; each quad adds its normal once
	// to each of its four corners.
	normals := make([]v3.Vec, 2*r)
	for q := 0; q+1 < len(topo.Lateral); q += 2 {
		t0, t1 := topo.Lateral[q], topo.Lateral[q+1]
		n := triNormal(pos[t0[0]], pos[t0[1]], pos[t0[2]]).
			Add(triNormal(pos[t1[0]], pos[t1[1]], pos[t1[2]]))
		seen := make(map[int]bool, 4)
		for _, i := range append(t0[:], t1[:]...) {
			if s := slot(i); !seen[s] {
				seen[s] = true
				normals[s] = normals[s].Add(n)
			}
		}
	}

	base := uint32(w.m.VertexCount())
	for s := 0; s < 2*r; s++ {
		src := s
		if s >= r {
			src = p + s - r
		}
		w.vertex(pos[src], unit(normals[s]))
	}
	for _, t := range topo.Lateral {
		w.m.Indices = append(w.m.Indices,
			base+uint32(slot(t[0])), base+uint32(slot(t[1])), base+uint32(slot(t[2])))
	}
}

// prismMesh sweeps the section from the near face to the far face.
func prismMesh(near, far []v3.Vec, topo *Topology, smooth bool) *kernel.Mesh {
	pos := make([]v3.Vec, 0, len(near)+len(far))
	pos = append(pos, near...)
	pos = append(pos, far...)

	w := &meshWriter{m: &kernel.Mesh{}}
	if smooth {
		w.smoothTriangles(pos, topo)
	} else {
		w.flatTriangles(pos, topo.Lateral)
	}
	w.flatTriangles(pos, topo.Caps)
	return w.m
}
