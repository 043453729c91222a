// Package beetle ties the pose, cross-section, extrusion builder and trail
// store together behind the command surface a visual program drives.
package beetle

import (
	"fmt"

	"github.com/chazu/beetle/pkg/extrude"
	"github.com/chazu/beetle/pkg/kernel"
	"github.com/chazu/beetle/pkg/material"
	"github.com/chazu/beetle/pkg/pose"
	"github.com/chazu/beetle/pkg/scene"
	"github.com/chazu/beetle/pkg/shape"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Name is the scene name of the beetle's body node.
const Name = "beetle"

// Beetle is the agent: a pose, the active cross-section, the colour it
// extrudes in and the builder that turns its motion into segments.
type Beetle struct {
	body    *pose.Body
	builder *extrude.Builder
	color   colorful.Color
	mesh    *kernel.Mesh
}

func newBeetle(g *scene.Graph, sink extrude.Sink, sec *shape.Section, col colorful.Color, mat *material.Material, opts ...extrude.Option) (*Beetle, error) {
	body, err := pose.NewBody(g, Name)
	if err != nil {
		return nil, fmt.Errorf("beetle: creating body: %w", err)
	}
	opts = append(opts, extrude.WithMaterial(mat))
	b := &Beetle{
		body:    body,
		builder: extrude.New(body, sink, sec, opts...),
		color:   col,
	}
	b.syncOutline()
	return b, nil
}

// Body returns the beetle's pose.
func (b *Beetle) Body() *pose.Body { return b.body }

// Builder returns the beetle's extrusion builder.
func (b *Beetle) Builder() *extrude.Builder { return b.builder }

// Section returns the active cross-section.
func (b *Beetle) Section() *shape.Section { return b.builder.Section() }

// Color returns the extrusion colour.
func (b *Beetle) Color() colorful.Color { return b.color }

// Mesh returns the decorative body mesh in the beetle's local frame, or
// nil when none was built.
func (b *Beetle) Mesh() *kernel.Mesh { return b.mesh }

// Extruding reports whether the beetle is leaving a trail.
func (b *Beetle) Extruding() bool { return b.builder.Extruding() }

// syncOutline shows the cross-section outline only while extruding a
// section that has an outline to show.
func (b *Beetle) syncOutline() {
	b.body.Outline().Visible = b.builder.Extruding() && !b.Section().IsPoint()
}

// buildBodyMesh models the decorative body: a flat shell with a round
// head disc facing forward along +X.
func buildBodyMesh(k kernel.Kernel) (*kernel.Mesh, error) {
	shell, err := k.Box(0.8, 0.5, 0.2)
	if err != nil {
		return nil, err
	}
	head, err := k.Cylinder(0.15, 0.18)
	if err != nil {
		return nil, err
	}
	// Cylinders stand on Z; lay the head's axis along +X.
	head = k.Translate(k.Rotate(head, 0, 90, 0), 0.42, 0, 0)
	notch, err := k.Box(0.3, 0.04, 0.3)
	if err != nil {
		return nil, err
	}
	notch = k.Translate(notch, -0.3, 0, 0.1)
	m, err := k.ToMesh(k.Difference(k.Union(shell, head), notch))
	if err != nil {
		return nil, err
	}
	m.Name = Name
	return m, nil
}
