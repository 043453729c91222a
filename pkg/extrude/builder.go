// Package extrude sweeps a cross-section along the beetle's path.
//
// A Builder samples the beetle's world transform each time it is
// advanced, maps the cross-section into world space and joins the result
// to the face it remembered from the previous call. Prism sections leave
// solid segments; a point section leaves a line.
package extrude

import (
	"errors"
	"fmt"

	"github.com/chazu/beetle/pkg/material"
	"github.com/chazu/beetle/pkg/shape"
	"github.com/chazu/beetle/pkg/trail"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"go.uber.org/zap"
)

// SameFaceTolerance is the distance under which two faces count as the
// same and no segment is emitted.
const SameFaceTolerance = 1e-9

var (
	// ErrIdle is returned by Advance when the builder is not extruding.
	ErrIdle = errors.New("extrude: not extruding")
	// ErrFaceMismatch is returned when the remembered face and the current
	// face have different point counts.
	ErrFaceMismatch = errors.New("extrude: face point counts differ")
	// ErrNoSection is returned when starting without a cross-section.
	ErrNoSection = errors.New("extrude: no cross-section")
)

// State is the builder's mode.
type State int

const (
	StateIdle State = iota
	StateExtruding
)

func (s State) String() string {
	if s == StateExtruding {
		return "extruding"
	}
	return "idle"
}

// Sampler supplies the transform from cross-section local space to world.
type Sampler interface {
	WorldTransform() sdf.M44
}

// Sink receives finished segments.
type Sink interface {
	Append(seg *trail.Segment)
}

// Builder turns successive poses into trail segments.
type Builder struct {
	sampler  Sampler
	sink     Sink
	section  *shape.Section
	material *material.Material
	state    State
	lastFace []v3.Vec
	topo     *TopologyCache
	log      *zap.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// WithTopologyCache shares a topology cache between builders.
func WithTopologyCache(c *TopologyCache) Option {
	return func(b *Builder) {
		if c != nil {
			b.topo = c
		}
	}
}

// WithMaterial sets the initial material.
func WithMaterial(m *material.Material) Option {
	return func(b *Builder) { b.material = m }
}

// New returns an idle builder.
func New(sampler Sampler, sink Sink, section *shape.Section, opts ...Option) *Builder {
	b := &Builder{
		sampler: sampler,
		sink:    sink,
		section: section,
		topo:    NewTopologyCache(),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns the builder's mode.
func (b *Builder) State() State { return b.state }

// Extruding reports whether the builder is extruding.
func (b *Builder) Extruding() bool { return b.state == StateExtruding }

// Section returns the active cross-section.
func (b *Builder) Section() *shape.Section { return b.section }

// Material returns the material new segments are drawn in.
func (b *Builder) Material() *material.Material { return b.material }

// SetMaterial changes the material of segments emitted from now on.
func (b *Builder) SetMaterial(m *material.Material) { b.material = m }

// Topologies returns the builder's topology cache.
func (b *Builder) Topologies() *TopologyCache { return b.topo }

// LastFace returns a copy of the remembered face, nil when there is none.
func (b *Builder) LastFace() []v3.Vec {
	if b.lastFace == nil {
		return nil
	}
	return append([]v3.Vec(nil), b.lastFace...)
}

// Start enters the extruding state and records the current face without
// emitting anything.
func (b *Builder) Start() error {
	if b.section == nil {
		return ErrNoSection
	}
	b.state = StateExtruding
	b.lastFace = nil
	_, err := b.Advance()
	b.log.Debug("extrusion started", zap.Stringer("section", b.section))
	return err
}

// Stop returns to idle and forgets the remembered face.
func (b *Builder) Stop() {
	if b.state == StateExtruding {
		b.log.Debug("extrusion stopped")
	}
	b.state = StateIdle
	b.lastFace = nil
}

// Restart stops and starts again from the current pose, so the next
// segment begins here rather than bridging from the old face. It does
// nothing while idle.
func (b *Builder) Restart() error {
	if b.state != StateExtruding {
		return nil
	}
	b.Stop()
	return b.Start()
}

// SetSection swaps the cross-section. While extruding this restarts, so
// no segment ever joins faces of two different sections.
func (b *Builder) SetSection(s *shape.Section) error {
	if s == nil {
		return ErrNoSection
	}
	b.section = s
	return b.Restart()
}

// Advance samples the current face and, when it differs from the last
// one, emits the segment joining them. It returns the emitted segment or
// nil when nothing was emitted.
func (b *Builder) Advance() (*trail.Segment, error) {
	if b.state != StateExtruding {
		return nil, ErrIdle
	}

	world := b.sampler.WorldTransform()
	local := b.section.Local()
	face := make([]v3.Vec, len(local))
	for i, p := range local {
		face[i] = world.MulPosition(p)
	}

	if b.lastFace == nil {
		b.lastFace = face
		return nil, nil
	}
	if len(face) != len(b.lastFace) {
		b.log.Error("cross-section changed without restarting",
			zap.Int("last_points", len(b.lastFace)),
			zap.Int("current_points", len(face)))
		return nil, fmt.Errorf("%w: %d != %d", ErrFaceMismatch, len(b.lastFace), len(face))
	}
	if sameFace(face, b.lastFace, SameFaceTolerance) {
		return nil, nil
	}

	var seg *trail.Segment
	if len(face) == 1 {
		seg = trail.NewLine(b.lastFace[0], face[0], b.material)
	} else {
		topo := b.topo.Get(b.section, needsFlip(b.lastFace, face))
		mesh := prismMesh(b.lastFace, face, topo, b.section.Smooth())
		seg = trail.NewPrism(mesh, b.material, topo.Capped())
	}
	b.sink.Append(seg)
	b.lastFace = face

	b.log.Debug("segment emitted",
		zap.Stringer("kind", seg.Kind),
		zap.Int("triangles", seg.Mesh.TriangleCount()))
	return seg, nil
}
