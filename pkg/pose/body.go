// Package pose tracks the beetle's position, orientation and scale and
// exposes the resulting world transform to the extrusion builder.
//
// All rotation arguments are in degrees; x is roll about the beetle's
// forward axis, y is pitch about its left axis and z is yaw about its up
// axis. Positive angles follow the right-hand rule.
package pose

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/beetle/pkg/scene"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Axis selects one of the beetle's local axes.
type Axis int

const (
	AxisX Axis = iota // forward
	AxisY             // left
	AxisZ             // up
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "unknown"
	}
}

// Unit returns the axis as a unit vector in the local frame.
func (a Axis) Unit() v3.Vec {
	switch a {
	case AxisY:
		return v3.Vec{Y: 1}
	case AxisZ:
		return v3.Vec{Z: 1}
	default:
		return v3.Vec{X: 1}
	}
}

// ParseAxis converts "x", "y" or "z" into an Axis.
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "x", "X":
		return AxisX, nil
	case "y", "Y":
		return AxisY, nil
	case "z", "Z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("pose: unknown axis %q", s)
}

var (
	// ErrBadScale is returned for a scale that is not positive and finite.
	ErrBadScale = errors.New("pose: scale must be positive and finite")
	// ErrNotFinite is returned when a command argument is NaN or infinite.
	ErrNotFinite = errors.New("pose: argument is not finite")
)

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func finitePtrs(ps ...*float64) bool {
	for _, p := range ps {
		if p != nil && !finite(*p) {
			return false
		}
	}
	return true
}

// Body is the beetle's pose. It owns two scene nodes: the body node holds
// translation and rotation, and its child outline node holds the uniform
// scale applied to the cross-section.
type Body struct {
	node    *scene.Node
	outline *scene.Node
	pos     v3.Vec
	rot     Quat
	scale   float64
}

var _ scene.Transformer = (*Body)(nil)

// NewBody adds the body and outline nodes for name to g under the stage
// root and returns a body at the origin facing +X with scale 1.
func NewBody(g *scene.Graph, name string) (*Body, error) {
	node, err := g.Add(nil, name, scene.NodeBody)
	if err != nil {
		return nil, err
	}
	outline, err := g.Add(node, name+"/outline", scene.NodeOutline)
	if err != nil {
		return nil, err
	}
	b := &Body{node: node, outline: outline, rot: Identity(), scale: 1}
	b.sync()
	return b, nil
}

// Node returns the body's scene node.
func (b *Body) Node() *scene.Node { return b.node }

// Outline returns the cross-section's scene node.
func (b *Body) Outline() *scene.Node { return b.outline }

func (b *Body) sync() {
	b.node.SetLocal(sdf.Translate3d(b.pos).Mul(b.rot.Matrix()))
	b.outline.SetLocal(sdf.Scale3d(v3.Vec{X: b.scale, Y: b.scale, Z: b.scale}))
}

// WorldTransform maps cross-section local points into world space,
// including the scale and every parent transform.
func (b *Body) WorldTransform() sdf.M44 {
	return b.outline.WorldTransform()
}

// BodyTransform is the world transform without the outline scale.
func (b *Body) BodyTransform() sdf.M44 {
	return b.node.WorldTransform()
}

// Position returns the position relative to the stage.
func (b *Body) Position() v3.Vec { return b.pos }

// Orientation returns the rotation quaternion.
func (b *Body) Orientation() Quat { return b.rot }

// Rotation returns the Z-Y-X Euler angles in degrees.
func (b *Body) Rotation() v3.Vec {
	x, y, z := b.rot.Euler()
	return v3.Vec{X: rad2deg(x), Y: rad2deg(y), Z: rad2deg(z)}
}

// Scale returns the uniform scale.
func (b *Body) Scale() float64 { return b.scale }

// Heading returns the world-space direction of a local axis.
func (b *Body) Heading(a Axis) v3.Vec {
	return b.rot.Rotate(a.Unit())
}

// SetScale sets the uniform scale.
func (b *Body) SetScale(s float64) error {
	if !finite(s) || s <= 0 {
		return fmt.Errorf("%w: %v", ErrBadScale, s)
	}
	b.scale = s
	b.sync()
	return nil
}

// MoveBy translates along a local axis. Steps are multiplied by the scale
// so a bigger beetle takes bigger steps.
func (b *Body) MoveBy(steps float64, axis Axis) error {
	if !finite(steps) {
		return fmt.Errorf("%w: steps %v", ErrNotFinite, steps)
	}
	b.pos = b.pos.Add(b.Heading(axis).MulScalar(steps * b.scale))
	b.sync()
	return nil
}

// Forward moves along the local forward axis.
func (b *Body) Forward(steps float64) error {
	return b.MoveBy(steps, AxisX)
}

// Goto sets the absolute position. Nil coordinates keep their value.
func (b *Body) Goto(x, y, z *float64) error {
	if !finitePtrs(x, y, z) {
		return ErrNotFinite
	}
	if x != nil {
		b.pos.X = *x
	}
	if y != nil {
		b.pos.Y = *y
	}
	if z != nil {
		b.pos.Z = *z
	}
	b.sync()
	return nil
}

// RotateBy turns about the local axes, roll then pitch then yaw. Nil
// angles are skipped.
func (b *Body) RotateBy(x, y, z *float64) error {
	if !finitePtrs(x, y, z) {
		return ErrNotFinite
	}
	for _, r := range []struct {
		angle *float64
		axis  Axis
	}{{x, AxisX}, {y, AxisY}, {z, AxisZ}} {
		if r.angle == nil || *r.angle == 0 {
			continue
		}
		b.rot = b.rot.Mul(FromAxisAngle(r.axis.Unit(), deg2rad(*r.angle))).Normalize()
	}
	b.sync()
	return nil
}

// SetRotation sets absolute Euler angles. Nil angles keep their current
// Euler value; the quaternion is rebuilt from the merged angles.
func (b *Body) SetRotation(x, y, z *float64) error {
	if !finitePtrs(x, y, z) {
		return ErrNotFinite
	}
	cx, cy, cz := b.rot.Euler()
	if x != nil {
		cx = deg2rad(*x)
	}
	if y != nil {
		cy = deg2rad(*y)
	}
	if z != nil {
		cz = deg2rad(*z)
	}
	b.rot = FromEuler(cx, cy, cz)
	b.sync()
	return nil
}

// PointAt turns the body so that forward faces target, keeping up as
// close to the stage's +Z as possible. It reports false and does nothing
// when target is the current position.
func (b *Body) PointAt(target v3.Vec) (bool, error) {
	if !finite(target.X, target.Y, target.Z) {
		return false, ErrNotFinite
	}
	d := target.Sub(b.pos)
	if d.Length() < 1e-12 {
		return false, nil
	}
	yaw := math.Atan2(d.Y, d.X)
	pitch := -math.Atan2(d.Z, math.Hypot(d.X, d.Y))
	b.rot = FromEuler(0, pitch, yaw)
	b.sync()
	return true, nil
}

// Reset returns the body to the origin with no rotation and scale 1.
func (b *Body) Reset() {
	b.pos = v3.Vec{}
	b.rot = Identity()
	b.scale = 1
	b.sync()
}
