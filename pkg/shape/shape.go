// Package shape defines the cross-sections a beetle sweeps through space.
//
// A Section is an ordered list of 2D points in the section plane. The
// first coordinate (X) is the section's x, the second (Y) is its z. When
// lifted into the beetle's local frame a point (a, b) lands at (0, a, b),
// so the section plane is perpendicular to the beetle's forward (+X) axis.
// Sections are immutable; changing shape means building a new Section.
package shape

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/chazu/beetle/pkg/tessellate"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
)

// Kind names a built-in cross-section.
type Kind string

const (
	KindPoint    Kind = "point"
	KindTriangle Kind = "triangle"
	KindSquare   Kind = "square"
	KindCircle   Kind = "circle"
	KindCustom   Kind = "custom"
)

// DefaultSides is the number of sides used to approximate a circle.
const DefaultSides = 32

// CircleRadius is the radius of the built-in circle.
const CircleRadius = 0.5

// ClosedTolerance is how close the first and last point must be for a
// section to count as a closed outline.
const ClosedTolerance = 1e-3

var (
	// ErrUnknownKind is returned for a kind Build does not recognise.
	ErrUnknownKind = errors.New("shape: unknown cross-section kind")
	// ErrEmptyPath is returned when a custom section has no points.
	ErrEmptyPath = errors.New("shape: custom cross-section needs at least one point")
	// ErrBadPoint is returned for non-finite custom coordinates.
	ErrBadPoint = errors.New("shape: cross-section point is not finite")
)

// ParseKind converts a user-facing name into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindPoint, KindTriangle, KindSquare, KindCircle, KindCustom:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Section is an immutable cross-section outline.
type Section struct {
	kind   Kind
	points []v2.Vec
	smooth bool
}

type buildOptions struct {
	sides int
}

// Option configures Build.
type Option func(*buildOptions)

// WithSides sets the number of circle sides. Values below 3 are ignored.
func WithSides(n int) Option {
	return func(o *buildOptions) {
		if n >= 3 {
			o.sides = n
		}
	}
}

// Build returns the section for kind. custom is only read for KindCustom,
// where it is used verbatim and never auto-closed.
func Build(kind Kind, custom []v2.Vec, opts ...Option) (*Section, error) {
	o := buildOptions{sides: DefaultSides}
	for _, opt := range opts {
		opt(&o)
	}

	switch kind {
	case KindPoint:
		return &Section{kind: kind, points: []v2.Vec{{}}}, nil
	case KindTriangle:
		return &Section{kind: kind, points: []v2.Vec{
			{X: -0.5, Y: 0},
			{X: 0.5, Y: 0},
			{X: 0, Y: math.Sqrt2 / 2},
			{X: -0.5, Y: 0},
		}}, nil
	case KindSquare:
		return &Section{kind: kind, points: []v2.Vec{
			{X: -0.5, Y: 0.5},
			{X: -0.5, Y: -0.5},
			{X: 0.5, Y: -0.5},
			{X: 0.5, Y: 0.5},
			{X: -0.5, Y: 0.5},
		}}, nil
	case KindCircle:
		return Circle(CircleRadius, o.sides), nil
	case KindCustom:
		if len(custom) == 0 {
			return nil, ErrEmptyPath
		}
		for i, p := range custom {
			if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
				return nil, fmt.Errorf("%w: point %d", ErrBadPoint, i)
			}
		}
		return &Section{kind: kind, points: append([]v2.Vec(nil), custom...)}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Circle returns a closed, smooth-shaded regular polygon approximating a
// circle. The first point is repeated at the end.
func Circle(radius float64, sides int) *Section {
	if sides < 3 {
		sides = DefaultSides
	}
	pts := make([]v2.Vec, 0, sides+1)
	for i := 0; i < sides; i++ {
		theta := 2 * math.Pi * float64(i) / float64(sides)
		pts = append(pts, v2.Vec{X: radius * math.Cos(theta), Y: radius * math.Sin(theta)})
	}
	pts = append(pts, pts[0])
	return &Section{kind: KindCircle, points: pts, smooth: true}
}

// Kind returns the kind the section was built from.
func (s *Section) Kind() Kind { return s.kind }

// Len returns the number of points, including a closing duplicate.
func (s *Section) Len() int { return len(s.points) }

// Points returns a copy of the outline points.
func (s *Section) Points() []v2.Vec { return append([]v2.Vec(nil), s.points...) }

// Smooth reports whether the section approximates a curved outline and
// should be smooth shaded.
func (s *Section) Smooth() bool { return s.smooth }

// IsPoint reports whether the section degenerates to a single point, in
// which case extrusion draws lines instead of prisms.
func (s *Section) IsPoint() bool { return len(s.points) == 1 }

// IsClosed reports whether the first and last points coincide within
// ClosedTolerance. Closed sections are capped at both ends of a segment.
func (s *Section) IsClosed() bool {
	if len(s.points) < 3 {
		return false
	}
	first, last := s.points[0], s.points[len(s.points)-1]
	return math.Abs(first.X-last.X) <= ClosedTolerance && math.Abs(first.Y-last.Y) <= ClosedTolerance
}

// Ring returns the outline without the closing duplicate point of a
// closed section. For open sections it returns every point.
func (s *Section) Ring() []v2.Vec {
	if s.IsClosed() {
		return append([]v2.Vec(nil), s.points[:len(s.points)-1]...)
	}
	return s.Points()
}

// Area returns the signed area of the ring: positive for counter-clockwise
// outlines. Open outlines are measured as if implicitly closed.
func (s *Section) Area() float64 {
	return tessellate.SignedArea(s.Ring())
}

// Local lifts the points into the beetle's local frame.
func (s *Section) Local() []v3.Vec {
	return lo.Map(s.points, func(p v2.Vec, _ int) v3.Vec {
		return v3.Vec{X: 0, Y: p.X, Z: p.Y}
	})
}

// signatureQuantum is the grid coordinates are snapped to for signatures.
const signatureQuantum = 1e-9

// Signature is a structural key for a section: two sections with equal
// signatures produce identical triangulations. The coordinate tuple is
// stored exactly, so equal keys never collide.
type Signature struct {
	Points int
	Closed bool
	Smooth bool
	coords string
}

// Signature returns the section's structural key.
func (s *Section) Signature() Signature {
	buf := make([]byte, 0, len(s.points)*16)
	for _, p := range s.points {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(int64(math.Round(p.X/signatureQuantum))))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(int64(math.Round(p.Y/signatureQuantum))))
	}
	return Signature{
		Points: len(s.points),
		Closed: s.IsClosed(),
		Smooth: s.smooth,
		coords: string(buf),
	}
}

func (s *Section) String() string {
	return fmt.Sprintf("%s section (%d points, closed=%t)", s.kind, len(s.points), s.IsClosed())
}
