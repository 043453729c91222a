// Package trail stores the segments a beetle leaves behind and answers
// aggregate queries over them. A Store is not safe for concurrent use;
// the stage controller serialises access.
package trail

import (
	"errors"

	"github.com/chazu/beetle/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ErrEmpty is returned by queries that need at least one segment.
var ErrEmpty = errors.New("trail: no segments")

// Store is an append-only list of segments.
type Store struct {
	segments []*Segment
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Append adds a segment. Nil segments are ignored.
func (s *Store) Append(seg *Segment) {
	if seg == nil {
		return
	}
	s.segments = append(s.segments, seg)
}

// Len returns the number of segments.
func (s *Store) Len() int { return len(s.segments) }

// Segments returns a copy of the segment list, oldest first.
func (s *Store) Segments() []*Segment {
	return append([]*Segment(nil), s.segments...)
}

// Clear drops every segment and returns how many there were.
func (s *Store) Clear() int {
	n := len(s.segments)
	s.segments = nil
	return n
}

// BoundingBox returns the box around every segment. It returns ErrEmpty
// when there is no geometry at all.
func (s *Store) BoundingBox() (sdf.Box3, error) {
	var box sdf.Box3
	found := false
	for _, seg := range s.segments {
		min, max, ok := seg.Bounds()
		if !ok {
			continue
		}
		if !found {
			box = sdf.Box3{Min: min, Max: max}
			found = true
			continue
		}
		box = box.Extend(sdf.Box3{Min: min, Max: max})
	}
	if !found {
		return sdf.Box3{}, ErrEmpty
	}
	return box, nil
}

// Compact merges the oldest batch segments into one merged segment.
// Each original keeps its material through a region, so bounds, surface
// area and volume are unchanged. It returns the number of segments
// merged, zero when fewer than two are available.
func (s *Store) Compact(batch int) int {
	n := min(batch, len(s.segments))
	if n < 2 {
		return 0
	}

	id := uuid.New()
	merged := &Segment{
		ID:     id,
		Kind:   KindMerged,
		Mesh:   &kernel.Mesh{Name: "merged-" + id.String()},
		Capped: true,
	}
	for _, seg := range s.segments[:n] {
		start := merged.Mesh.Append(seg.Mesh) / 3
		for _, r := range seg.Regions {
			merged.Regions = append(merged.Regions, Region{
				Start:    start + r.Start,
				Count:    r.Count,
				Material: r.Material,
				Capped:   r.Capped,
			})
		}
		merged.Lines = append(merged.Lines, seg.Lines...)
		merged.Capped = merged.Capped && (seg.Capped || seg.Mesh.IsEmpty())
	}

	rest := s.segments[n:]
	s.segments = append([]*Segment{merged}, rest...)
	return n
}

// Stats summarises a store.
type Stats struct {
	Segments    int
	Triangles   int
	Lines       int
	SurfaceArea float64
	Volume      float64
}

// Stats returns counts and totals over every segment. Volume is only
// meaningful when every segment is capped.
func (s *Store) Stats() Stats {
	return Stats{
		Segments:    len(s.segments),
		Triangles:   lo.SumBy(s.segments, func(seg *Segment) int { return seg.Mesh.TriangleCount() }),
		Lines:       lo.SumBy(s.segments, func(seg *Segment) int { return len(seg.Lines) }),
		SurfaceArea: lo.SumBy(s.segments, func(seg *Segment) float64 { return seg.Mesh.SurfaceArea() }),
		Volume:      lo.SumBy(s.segments, func(seg *Segment) float64 { return seg.Mesh.SignedVolume() }),
	}
}
