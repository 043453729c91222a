package beetle

import (
	"github.com/chazu/beetle/pkg/kernel"
	"github.com/chazu/beetle/pkg/material"
	"github.com/chazu/beetle/pkg/trail"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Frame is everything a renderer needs to draw the stage once.
type Frame struct {
	Segments      []*trail.Segment
	Materials     []*material.Material
	Body          *kernel.Mesh // beetle body in its local frame, nil when absent
	BodyTransform sdf.M44
	Outline       []v3.Vec // world-space cross-section outline, nil when hidden
	Color         [3]uint8
}

// Renderer draws frames. Implementations live in the host.
type Renderer interface {
	Render(f Frame) error
}

// Camera can be pointed at a region of the stage.
type Camera interface {
	Fit(box sdf.Box3)
}

// frame builds a Frame. The caller holds the lock.
func (c *Controller) frame() Frame {
	b := c.beetle
	f := Frame{
		Segments:      c.store.Segments(),
		Materials:     c.materials.Materials(),
		Body:          b.mesh,
		BodyTransform: b.body.BodyTransform(),
	}
	k := material.KeyOf(b.color)
	f.Color = [3]uint8{k.R, k.G, k.B}
	if b.body.Outline().Shown() {
		m := b.body.WorldTransform()
		for _, p := range b.Section().Local() {
			f.Outline = append(f.Outline, m.MulPosition(p))
		}
	}
	return f
}

// Frame returns the current frame without touching the changed flag.
func (c *Controller) Frame() Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame()
}

// RenderIfChanged renders only when something visible changed since the
// last successful render. It reports whether a frame was drawn.
func (c *Controller) RenderIfChanged(r Renderer) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.changed {
		return false, nil
	}
	if err := r.Render(c.frame()); err != nil {
		return false, err
	}
	c.changed = false
	return true, nil
}

// ZoomToFit points cam at the box around every trail. With no trails it
// does nothing and reports false.
func (c *Controller) ZoomToFit(cam Camera) bool {
	box, err := c.BoundingBox()
	if err != nil {
		return false
	}
	cam.Fit(box)
	c.mu.Lock()
	c.changed = true
	c.mu.Unlock()
	return true
}
