package extrude

import (
	"math"
	"testing"

	"github.com/chazu/beetle/pkg/kernel"
	"github.com/chazu/beetle/pkg/material"
	"github.com/chazu/beetle/pkg/shape"
	"github.com/chazu/beetle/pkg/trail"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// stubPose is a Sampler whose transform the test drives directly.
type stubPose struct {
	pos v3.Vec
	yaw float64
}

func (p *stubPose) WorldTransform() sdf.M44 {
	return sdf.Translate3d(p.pos).Mul(sdf.RotateZ(p.yaw))
}

func (p *stubPose) forward(d float64) {
	p.pos = p.pos.Add(v3.Vec{X: math.Cos(p.yaw) * d, Y: math.Sin(p.yaw) * d})
}

func build(t *testing.T, kind shape.Kind, custom []v2.Vec) *shape.Section {
	t.Helper()
	s, err := shape.Build(kind, custom)
	require.NoError(t, err)
	return s
}

func newBuilder(t *testing.T, s *shape.Section, opts ...Option) (*Builder, *stubPose, *trail.Store) {
	t.Helper()
	pose := &stubPose{}
	store := trail.NewStore()
	mat := material.NewCache().Get(material.RGB(200, 40, 40))
	b := New(pose, store, s, append([]Option{WithMaterial(mat)}, opts...)...)
	return b, pose, store
}

func assertWatertight(t *testing.T, m *kernel.Mesh) {
	t.Helper()
	diags := kernel.ValidateMesh(m, true)
	assert.False(t, kernel.HasErrors(diags), "mesh should be closed and consistently wound: %v", diags)
}

func TestAdvanceWhileIdle(t *testing.T) {
	b, _, _ := newBuilder(t, build(t, shape.KindSquare, nil))
	_, err := b.Advance()
	assert.ErrorIs(t, err, ErrIdle)
	assert.Equal(t, StateIdle, b.State())
}

func TestStartSeedsWithoutEmitting(t *testing.T) {
	b, _, store := newBuilder(t, build(t, shape.KindSquare, nil))
	require.NoError(t, b.Start())
	assert.True(t, b.Extruding())
	assert.Len(t, b.LastFace(), 5)
	assert.Zero(t, store.Len())

	seg, err := b.Advance()
	require.NoError(t, err)
	assert.Nil(t, seg, "advancing without moving must not emit")
	assert.Zero(t, store.Len())
}

func TestStartWithoutSection(t *testing.T) {
	b := New(&stubPose{}, trail.NewStore(), nil)
	assert.ErrorIs(t, b.Start(), ErrNoSection)
	assert.False(t, b.Extruding())
}

func TestSegmentPerAdvance(t *testing.T) {
	b, pose, store := newBuilder(t, build(t, shape.KindSquare, nil))
	require.NoError(t, b.Start())
	for i := 0; i < 4; i++ {
		pose.forward(1)
		seg, err := b.Advance()
		require.NoError(t, err)
		require.NotNil(t, seg)
	}
	assert.Equal(t, 4, store.Len())

	b.Stop()
	assert.False(t, b.Extruding())
	assert.Nil(t, b.LastFace())
	pose.forward(1)
	_, err := b.Advance()
	assert.ErrorIs(t, err, ErrIdle)
	assert.Equal(t, 4, store.Len())
}

func TestSquarePrismVolume(t *testing.T) {
	tests := []struct {
		name string
		dist float64
	}{
		{"unit", 1},
		{"long", 3.5},
		{"backwards", -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, pose, _ := newBuilder(t, build(t, shape.KindSquare, nil))
			require.NoError(t, b.Start())
			pose.forward(tt.dist)
			seg, err := b.Advance()
			require.NoError(t, err)
			require.NotNil(t, seg)

			d := math.Abs(tt.dist)
			assert.True(t, seg.Capped)
			assert.Equal(t, trail.KindPrism, seg.Kind)
			assert.Equal(t, 12, seg.Mesh.TriangleCount())
			assert.InDelta(t, d, seg.Mesh.SignedVolume(), 1e-5)
			assert.InDelta(t, 2+4*d, seg.Mesh.SurfaceArea(), 1e-5)
			assertWatertight(t, seg.Mesh)
		})
	}
}

func TestPrismVolumeMatchesSectionArea(t *testing.T) {
	lShape := []v2.Vec{
		{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1}, {X: 1, Y: 1},
		{X: 1, Y: 2}, {X: 0, Y: 2}, {X: 0, Y: 0},
	}
	clockwise := []v2.Vec{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0}}

	tests := []struct {
		name    string
		section *shape.Section
	}{
		{"triangle", build(t, shape.KindTriangle, nil)},
		{"circle", build(t, shape.KindCircle, nil)},
		{"concave", build(t, shape.KindCustom, lShape)},
		{"clockwise", build(t, shape.KindCustom, clockwise)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, pose, _ := newBuilder(t, tt.section)
			pose.yaw = 0.7
			require.NoError(t, b.Start())
			pose.forward(2)
			seg, err := b.Advance()
			require.NoError(t, err)
			require.NotNil(t, seg)

			want := math.Abs(tt.section.Area()) * 2
			assert.InDelta(t, want, seg.Mesh.SignedVolume(), 1e-4)
			assertWatertight(t, seg.Mesh)
		})
	}
}

func TestCapsOnlyForClosedSections(t *testing.T) {
	open := build(t, shape.KindCustom, []v2.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}})
	b, pose, _ := newBuilder(t, open)
	require.NoError(t, b.Start())
	pose.forward(1)
	seg, err := b.Advance()
	require.NoError(t, err)
	require.NotNil(t, seg)

	assert.False(t, seg.Capped)
	assert.Equal(t, 4, seg.Mesh.TriangleCount(), "two quads, no caps")
	assert.True(t, kernel.HasErrors(kernel.ValidateMesh(seg.Mesh, true)), "an uncapped tube is not closed")
	assert.False(t, kernel.HasErrors(kernel.ValidateMesh(seg.Mesh, false)))
}

func TestRibbonSection(t *testing.T) {
	b, pose, _ := newBuilder(t, build(t, shape.KindCustom, []v2.Vec{{X: -1, Y: 0}, {X: 1, Y: 0}}))
	require.NoError(t, b.Start())
	pose.forward(3)
	seg, err := b.Advance()
	require.NoError(t, err)
	require.NotNil(t, seg)
	assert.Equal(t, 2, seg.Mesh.TriangleCount())
	assert.InDelta(t, 6, seg.Mesh.SurfaceArea(), 1e-6)
}

func TestCircleIsSmoothShaded(t *testing.T) {
	b, pose, _ := newBuilder(t, build(t, shape.KindCircle, nil))
	require.NoError(t, b.Start())
	pose.forward(1)
	seg, err := b.Advance()
	require.NoError(t, err)
	require.NotNil(t, seg)

	sides := shape.DefaultSides
	caps := 2 * (sides - 2)
	assert.Equal(t, 2*sides+caps, seg.Mesh.TriangleCount())
	// Shared side vertices, seam folded, plus unshared cap vertices.
	assert.Equal(t, 2*sides+3*caps, seg.Mesh.VertexCount())

	// Side normals point radially outward.
	for i := 0; i < 2*sides; i++ {
		p := seg.Mesh.Vertex(i)
		n := v3.Vec{
			X: float64(seg.Mesh.Normals[3*i]),
			Y: float64(seg.Mesh.Normals[3*i+1]),
			Z: float64(seg.Mesh.Normals[3*i+2]),
		}
		radial := v3.Vec{Y: p.Y, Z: p.Z}.Normalize()
		assert.InDelta(t, 1, n.Dot(radial), 1e-4, "vertex %d", i)
	}
}

func TestPointSectionDrawsLines(t *testing.T) {
	b, pose, store := newBuilder(t, build(t, shape.KindPoint, nil))
	require.NoError(t, b.Start())
	pose.forward(2)
	seg, err := b.Advance()
	require.NoError(t, err)
	require.NotNil(t, seg)

	assert.Equal(t, trail.KindLine, seg.Kind)
	assert.True(t, seg.Mesh.IsEmpty())
	require.Len(t, seg.Lines, 1)
	assert.Equal(t, v3.Vec{}, seg.Lines[0].From)
	assert.InDelta(t, 2, seg.Lines[0].To.X, 1e-12)
	assert.Same(t, b.Material(), seg.Lines[0].Material)
	assert.Equal(t, 1, store.Len())
}

func TestSetSectionRestartsExtrusion(t *testing.T) {
	b, pose, store := newBuilder(t, build(t, shape.KindSquare, nil))
	require.NoError(t, b.Start())
	pose.forward(1)
	_, err := b.Advance()
	require.NoError(t, err)

	require.NoError(t, b.SetSection(build(t, shape.KindTriangle, nil)))
	assert.True(t, b.Extruding())
	assert.Len(t, b.LastFace(), 4, "reseeded with the triangle")

	seg, err := b.Advance()
	require.NoError(t, err)
	assert.Nil(t, seg, "no segment may bridge the two sections")

	pose.forward(1)
	seg, err = b.Advance()
	require.NoError(t, err)
	require.NotNil(t, seg)
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, 2*3+2, seg.Mesh.TriangleCount())

	assert.ErrorIs(t, b.SetSection(nil), ErrNoSection)
}

func TestSetSectionWhileIdle(t *testing.T) {
	b, _, _ := newBuilder(t, build(t, shape.KindSquare, nil))
	require.NoError(t, b.SetSection(build(t, shape.KindCircle, nil)))
	assert.False(t, b.Extruding())
	assert.Equal(t, shape.KindCircle, b.Section().Kind())
}

func TestFaceMismatchIsLoggedAndKeepsState(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	b, pose, store := newBuilder(t, build(t, shape.KindSquare, nil), WithLogger(zap.New(core)))
	require.NoError(t, b.Start())
	before := b.LastFace()

	// Swap the section behind the builder's back.
	b.section = build(t, shape.KindTriangle, nil)
	pose.forward(1)
	seg, err := b.Advance()
	assert.ErrorIs(t, err, ErrFaceMismatch)
	assert.Nil(t, seg)
	assert.Equal(t, before, b.LastFace())
	assert.Zero(t, store.Len())

	errs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errs, 1)
	assert.Equal(t, int64(5), errs[0].ContextMap()["last_points"])
	assert.Equal(t, int64(4), errs[0].ContextMap()["current_points"])
}

func TestSetMaterialAppliesToNextSegment(t *testing.T) {
	b, pose, _ := newBuilder(t, build(t, shape.KindSquare, nil))
	blue := material.NewCache().Get(material.RGB(0, 0, 255))
	require.NoError(t, b.Start())
	b.SetMaterial(blue)
	pose.forward(1)
	seg, err := b.Advance()
	require.NoError(t, err)
	require.Len(t, seg.Regions, 1)
	assert.Same(t, blue, seg.Regions[0].Material)
}

func TestRestartWhileIdleIsNoop(t *testing.T) {
	b, _, _ := newBuilder(t, build(t, shape.KindSquare, nil))
	require.NoError(t, b.Restart())
	assert.False(t, b.Extruding())
}

func TestTopologyCacheReuse(t *testing.T) {
	cache := NewTopologyCache()
	b, pose, _ := newBuilder(t, build(t, shape.KindSquare, nil), WithTopologyCache(cache))
	require.NoError(t, b.Start())
	for i := 0; i < 3; i++ {
		pose.forward(1)
		_, err := b.Advance()
		require.NoError(t, err)
	}
	pose.forward(-1)
	_, err := b.Advance()
	require.NoError(t, err)

	assert.Equal(t, 2, cache.Len(), "one entry per winding")
	hits, misses := cache.Counters()
	assert.Equal(t, 2, hits)
	assert.Equal(t, 2, misses)
	assert.Same(t, cache, b.Topologies())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "extruding", StateExtruding.String())
}
