// Package tessellate triangulates planar polygons. Extrusion end caps are
// built from these triangles, so concave user-traced outlines cap correctly
// where a simple fan would fold over itself.
package tessellate

import (
	v2 "github.com/deadsy/sdfx/vec/v2"
)

// epsilon is the doubled-area threshold below which a corner is treated
// as collinear.
const epsilon = 1e-12

// SignedArea returns the shoelace area of the polygon: positive for
// counter-clockwise winding, negative for clockwise.
func SignedArea(poly []v2.Vec) float64 {
	var a float64
	for i := range poly {
		p, q := poly[i], poly[(i+1)%len(poly)]
		a += p.X*q.Y - q.X*p.Y
	}
	return a / 2
}

// cross returns the z component of (b-a) x (c-a).
func cross(a, b, c v2.Vec) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// inTriangle reports whether p lies inside or on the counter-clockwise
// triangle abc.
func inTriangle(p, a, b, c v2.Vec) bool {
	return cross(a, b, p) >= 0 && cross(b, c, p) >= 0 && cross(c, a, p) >= 0
}

// Triangulate splits a simple polygon (no repeated closing vertex) into
// triangles using ear clipping. Triangles index into poly and are wound
// the same way as the polygon, so a counter-clockwise outline yields
// counter-clockwise triangles. Polygons with fewer than three vertices or
// no area produce no triangles.
func Triangulate(poly []v2.Vec) [][3]int {
	n := len(poly)
	if n < 3 {
		return nil
	}
	area := SignedArea(poly)
	if area*area < epsilon {
		return nil
	}

	// Work on a counter-clockwise index ring.
	ring := make([]int, n)
	for i := range ring {
		if area > 0 {
			ring[i] = i
		} else {
			ring[i] = n - 1 - i
		}
	}

	var tris [][3]int
	for len(ring) > 3 {
		ear := findEar(poly, ring)
		if ear < 0 {
			// Drop a collinear vertex if there is one, otherwise the
			// polygon is self-intersecting; fan out what is left.
			if c := findCollinear(poly, ring); c >= 0 {
				ring = append(ring[:c], ring[c+1:]...)
				continue
			}
			for i := 1; i+1 < len(ring); i++ {
				tris = append(tris, [3]int{ring[0], ring[i], ring[i+1]})
			}
			ring = ring[:0]
			break
		}
		m := len(ring)
		prev, next := ring[(ear+m-1)%m], ring[(ear+1)%m]
		tris = append(tris, [3]int{prev, ring[ear], next})
		ring = append(ring[:ear], ring[ear+1:]...)
	}
	if len(ring) == 3 && cross(poly[ring[0]], poly[ring[1]], poly[ring[2]]) > epsilon {
		tris = append(tris, [3]int{ring[0], ring[1], ring[2]})
	}

	if area < 0 {
		for i := range tris {
			tris[i][1], tris[i][2] = tris[i][2], tris[i][1]
		}
	}
	return tris
}

// findEar returns the ring position of a convex vertex whose triangle
// contains no other ring vertex, or -1.
func findEar(poly []v2.Vec, ring []int) int {
	m := len(ring)
	for i := 0; i < m; i++ {
		a := poly[ring[(i+m-1)%m]]
		b := poly[ring[i]]
		c := poly[ring[(i+1)%m]]
		if cross(a, b, c) <= epsilon {
			continue
		}
		ear := true
		for j := 0; j < m; j++ {
			if j == i || j == (i+m-1)%m || j == (i+1)%m {
				continue
			}
			p := poly[ring[j]]
			if p == a || p == b || p == c {
				continue
			}
			if inTriangle(p, a, b, c) {
				ear = false
				break
			}
		}
		if ear {
			return i
		}
	}
	return -1
}

func findCollinear(poly []v2.Vec, ring []int) int {
	m := len(ring)
	for i := 0; i < m; i++ {
		c := cross(poly[ring[(i+m-1)%m]], poly[ring[i]], poly[ring[(i+1)%m]])
		if c <= epsilon && c >= -epsilon {
			return i
		}
	}
	return -1
}
