package extrude

import (
	"sync"

	"github.com/chazu/beetle/pkg/shape"
	"github.com/chazu/beetle/pkg/tessellate"
)

// Topology is the triangle layout of a prism, independent of where its
// faces sit in space. Indices address the concatenation of the near face
// (0..Points-1) and the far face (Points..2*Points-1).
type Topology struct {
	Points  int      // points per face, closing duplicate included
	Ring    int      // distinct points per face
	Lateral [][3]int // side walls: two triangles per consecutive point pair
	Caps    [][3]int // far cap then near cap; empty for open sections
}

// buildTopology lays out the prism for a section. Side quads join point
// n to n+1 on both faces. The far cap uses the ring triangulation as is,
// the near cap uses it reversed. flip reverses every triangle.
func buildTopology(s *shape.Section, flip bool) *Topology {
	p := s.Len()
	t := &Topology{Points: p, Ring: p}
	for n := 0; n+1 < p; n++ {
		b0, b1 := n, n+1
		f0, f1 := p+n, p+n+1
		t.Lateral = append(t.Lateral, [3]int{b0, b1, f1}, [3]int{b0, f1, f0})
	}
	if s.IsClosed() {
		ring := s.Ring()
		t.Ring = len(ring)
		tris := tessellate.Triangulate(ring)
		for _, tri := range tris {
			t.Caps = append(t.Caps, [3]int{p + tri[0], p + tri[1], p + tri[2]})
		}
		for _, tri := range tris {
			t.Caps = append(t.Caps, [3]int{tri[2], tri[1], tri[0]})
		}
	}
	if flip {
		for i := range t.Lateral {
			t.Lateral[i][1], t.Lateral[i][2] = t.Lateral[i][2], t.Lateral[i][1]
		}
		for i := range t.Caps {
			t.Caps[i][1], t.Caps[i][2] = t.Caps[i][2], t.Caps[i][1]
		}
	}
	return t
}

// Capped reports whether the topology closes both ends.
func (t *Topology) Capped() bool { return len(t.Caps) > 0 }

type topoKey struct {
	sig  shape.Signature
	flip bool
}

// TopologyCache memoises topologies per section signature and winding.
// It is safe for concurrent use.
type TopologyCache struct {
	mu     sync.Mutex
	byKey  map[topoKey]*Topology
	hits   int
	misses int
}

// NewTopologyCache returns an empty cache.
func NewTopologyCache() *TopologyCache {
	return &TopologyCache{byKey: make(map[topoKey]*Topology)}
}

// Get returns the topology for s, building it on first use. The returned
// value is shared and must not be modified.
func (c *TopologyCache) Get(s *shape.Section, flip bool) *Topology {
	k := topoKey{sig: s.Signature(), flip: flip}
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.byKey[k]; ok {
		c.hits++
		return t
	}
	c.misses++
	t := buildTopology(s, flip)
	c.byKey[k] = t
	return t
}

// Len returns the number of cached topologies.
func (c *TopologyCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byKey)
}

// Counters returns cache hits and misses.
func (c *TopologyCache) Counters() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
