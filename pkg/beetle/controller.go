package beetle

import (
	"fmt"
	"io"
	"sync"

	"github.com/chazu/beetle/pkg/config"
	"github.com/chazu/beetle/pkg/export"
	"github.com/chazu/beetle/pkg/extrude"
	"github.com/chazu/beetle/pkg/host"
	"github.com/chazu/beetle/pkg/kernel"
	"github.com/chazu/beetle/pkg/material"
	"github.com/chazu/beetle/pkg/pose"
	"github.com/chazu/beetle/pkg/scene"
	"github.com/chazu/beetle/pkg/shape"
	"github.com/chazu/beetle/pkg/trail"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	colorful "github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"
)

// Controller owns the stage: the scene graph, the beetle, its trails and
// the material cache. Every command takes one lock, so commands from
// concurrent callers are applied one at a time. A rejected command leaves
// every piece of state as it was.
type Controller struct {
	mu sync.Mutex

	cfg       *config.Config
	log       *zap.Logger
	graph     *scene.Graph
	store     *trail.Store
	materials *material.Cache
	beetle    *Beetle
	kern      kernel.Kernel
	sprite    *host.Sprite
	unsub     func()
	changed   bool
	closed    bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithKernel sets the geometry kernel used to model the decorative body.
func WithKernel(k kernel.Kernel) Option {
	return func(c *Controller) { c.kern = k }
}

// WithSprite attaches the controller to a host sprite whose colour the
// beetle follows.
func WithSprite(s *host.Sprite) Option {
	return func(c *Controller) { c.sprite = s }
}

// NewController builds a stage from cfg (the defaults when nil).
func NewController(cfg *config.Config, opts ...Option) (*Controller, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		cfg:       cfg,
		log:       zap.NewNop(),
		graph:     scene.New(),
		store:     trail.NewStore(),
		materials: material.NewCache(),
	}
	for _, opt := range opts {
		opt(c)
	}

	kind, err := shape.ParseKind(cfg.Extrusion.DefaultShape)
	if err != nil {
		return nil, err
	}
	sec, err := shape.Build(kind, nil, shape.WithSides(cfg.Extrusion.CircleSides))
	if err != nil {
		return nil, err
	}
	col, err := material.ParseColor(cfg.Extrusion.DefaultColor)
	if err != nil {
		return nil, err
	}
	if c.sprite != nil {
		col = c.sprite.Color()
	}

	c.beetle, err = newBeetle(c.graph, c.store, sec, col, c.materials.Get(col),
		extrude.WithLogger(c.log.Named("extrude")))
	if err != nil {
		return nil, err
	}

	if cfg.Body.Enabled && c.kern != nil {
		if m, err := buildBodyMesh(c.kern); err != nil {
			c.log.Warn("beetle body unavailable, extrusion is unaffected", zap.Error(err))
		} else {
			c.beetle.mesh = m
		}
	}

	if c.sprite != nil {
		c.unsub = c.sprite.OnColorChange(func(col colorful.Color) {
			_ = c.SetColor(col)
		})
	}

	c.changed = true
	return c, nil
}

// Close detaches from the host sprite and stops extruding.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.unsub != nil {
		c.unsub()
	}
	c.beetle.builder.Stop()
	c.beetle.syncOutline()
	hits, misses := c.beetle.builder.Topologies().Counters()
	c.log.Debug("stage closed",
		zap.Int("segments", c.store.Len()),
		zap.Int("topology_hits", hits),
		zap.Int("topology_misses", misses))
}

// Beetle returns the controlled beetle. Callers must not mutate it
// directly; use the controller's commands.
func (c *Controller) Beetle() *Beetle { return c.beetle }

// Graph returns the stage's scene graph.
func (c *Controller) Graph() *scene.Graph { return c.graph }

// reject logs a failed command and returns its error.
func (c *Controller) reject(cmd string, err error) error {
	c.log.Error("command rejected", zap.String("command", cmd), zap.Error(err))
	return fmt.Errorf("%s: %w", cmd, err)
}

// advance runs the builder after a pose change. Precondition failures
// are logged by the builder and surfaced here.
func (c *Controller) advance(cmd string) error {
	if !c.beetle.builder.Extruding() {
		return nil
	}
	seg, err := c.beetle.builder.Advance()
	if err != nil {
		return c.reject(cmd, err)
	}
	if seg != nil {
		c.compact()
	}
	return nil
}

func (c *Controller) compact() {
	t := c.cfg.Trail
	if t.CompactThreshold <= 0 || c.store.Len() < t.CompactThreshold {
		return
	}
	n := c.store.Compact(t.CompactBatch)
	c.log.Debug("trail compacted", zap.Int("merged", n), zap.Int("segments", c.store.Len()))
}

// translated finishes a translation command.
func (c *Controller) translated(cmd string) error {
	c.changed = true
	return c.advance(cmd)
}

// rotated finishes a rotation command. Rotations only extrude when the
// configuration asks for it; otherwise the next translation joins the
// face from before the turn to the face after it.
func (c *Controller) rotated(cmd string) error {
	c.changed = true
	if !c.cfg.Extrusion.AdvanceOnRotate {
		return nil
	}
	return c.advance(cmd)
}

// Clear removes every trail. The beetle keeps its pose and, if extruding,
// carries on from its current face.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.store.Clear()
	c.changed = true
	c.log.Debug("trails cleared", zap.Int("segments", n))
}

// Move moves steps along one of the beetle's local axes.
func (c *Controller) Move(axis pose.Axis, steps float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.beetle.body.MoveBy(steps, axis); err != nil {
		return c.reject("move", err)
	}
	return c.translated("move")
}

// Forward moves steps along the beetle's heading.
func (c *Controller) Forward(steps float64) error {
	return c.Move(pose.AxisX, steps)
}

// Goto sets the absolute position; nil coordinates are unchanged.
func (c *Controller) Goto(x, y, z *float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.beetle.body.Goto(x, y, z); err != nil {
		return c.reject("goto", err)
	}
	return c.translated("goto")
}

// PointTo turns the beetle to face target.
func (c *Controller) PointTo(target v3.Vec) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	turned, err := c.beetle.body.PointAt(target)
	if err != nil {
		return c.reject("point to", err)
	}
	if !turned {
		return nil
	}
	return c.rotated("point to")
}

// Rotate turns by relative angles in degrees; nil angles are skipped.
func (c *Controller) Rotate(x, y, z *float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.beetle.body.RotateBy(x, y, z); err != nil {
		return c.reject("rotate", err)
	}
	return c.rotated("rotate")
}

// SetRotation sets absolute angles in degrees; nil angles are unchanged.
func (c *Controller) SetRotation(x, y, z *float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.beetle.body.SetRotation(x, y, z); err != nil {
		return c.reject("set rotation", err)
	}
	return c.rotated("set rotation")
}

// SetColor changes the extrusion colour. While extruding the extrusion
// restarts so that the new colour starts a new segment run.
func (c *Controller) SetColor(col colorful.Color) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !col.IsValid() {
		return c.reject("set color", fmt.Errorf("colour %v is out of gamut", col))
	}
	c.beetle.color = col
	c.beetle.builder.SetMaterial(c.materials.Get(col))
	c.changed = true
	if err := c.beetle.builder.Restart(); err != nil {
		return c.reject("set color", err)
	}
	return nil
}

// SetExtrusionBase switches to a built-in cross-section or, with
// shape.KindCustom, to the given outline.
func (c *Controller) SetExtrusionBase(kind shape.Kind, custom []v2.Vec) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	sec, err := shape.Build(kind, custom, shape.WithSides(c.cfg.Extrusion.CircleSides))
	if err != nil {
		return c.reject("set extrusion base", err)
	}
	if err := c.beetle.builder.SetSection(sec); err != nil {
		return c.reject("set extrusion base", err)
	}
	c.beetle.syncOutline()
	c.changed = true
	return nil
}

// SetScale sets the uniform scale of the cross-section and step length.
func (c *Controller) SetScale(s float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.beetle.body.SetScale(s); err != nil {
		return c.reject("set scale", err)
	}
	c.changed = true
	if err := c.beetle.builder.Restart(); err != nil {
		return c.reject("set scale", err)
	}
	return nil
}

// StartExtruding starts leaving a trail from the current pose.
func (c *Controller) StartExtruding() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.beetle.builder.Start(); err != nil {
		return c.reject("start extruding", err)
	}
	c.beetle.syncOutline()
	c.changed = true
	return nil
}

// StopExtruding stops leaving a trail.
func (c *Controller) StopExtruding() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.beetle.builder.Stop()
	c.beetle.syncOutline()
	c.changed = true
}

// Position returns the beetle's position.
func (c *Controller) Position() v3.Vec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beetle.body.Position()
}

// Rotation returns the beetle's Euler angles in degrees.
func (c *Controller) Rotation() v3.Vec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beetle.body.Rotation()
}

// Scale returns the beetle's scale.
func (c *Controller) Scale() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beetle.body.Scale()
}

// Extruding reports whether the beetle is leaving a trail.
func (c *Controller) Extruding() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beetle.builder.Extruding()
}

// Segments returns a snapshot of the trail segments.
func (c *Controller) Segments() []*trail.Segment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Segments()
}

// Stats summarises the trails.
func (c *Controller) Stats() trail.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Stats()
}

// BoundingBox returns the box around every trail, or trail.ErrEmpty.
func (c *Controller) BoundingBox() (sdf.Box3, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.BoundingBox()
}

// snapshot is a lock-free view of the trails for exporters.
type snapshot []*trail.Segment

func (s snapshot) Segments() []*trail.Segment { return s }

func (c *Controller) snapshot() snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return snapshot(c.store.Segments())
}

func (c *Controller) exportOptions() []export.Option {
	return []export.Option{
		export.WithLogger(c.log.Named("export")),
		export.WithSolidName(c.cfg.Export.SolidName),
	}
}

// ExportSTL writes every trail to w and returns the triangle count. An
// empty stage writes a valid empty file.
func (c *Controller) ExportSTL(w io.Writer, format export.Format) (int, error) {
	n, err := export.WriteSTL(w, c.snapshot(), format, c.exportOptions()...)
	if err != nil {
		return 0, c.reject("export stl", err)
	}
	return n, nil
}

// SaveSTL writes every trail to a binary STL file at path.
func (c *Controller) SaveSTL(path string) (int, error) {
	n, err := export.SaveSTL(path, c.snapshot(), c.exportOptions()...)
	if err != nil {
		return 0, c.reject("save stl", err)
	}
	return n, nil
}

// SaveOutline writes the current cross-section outline to a DXF file.
func (c *Controller) SaveOutline(path string) error {
	c.mu.Lock()
	sec := c.beetle.Section()
	c.mu.Unlock()
	if err := sec.SaveDXF(path); err != nil {
		return c.reject("save outline", err)
	}
	c.log.Debug("outline saved", zap.String("path", path), zap.Stringer("section", sec))
	return nil
}

// SetWireframe toggles wireframe drawing of every trail.
func (c *Controller) SetWireframe(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.materials.SetWireframe(on)
	c.changed = true
}

// SetGhost toggles see-through trails.
func (c *Controller) SetGhost(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.materials.SetGhost(on)
	c.changed = true
}

// Changed reports whether anything visible changed since the last render.
func (c *Controller) Changed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.changed
}
