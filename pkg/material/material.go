// Package material caches render materials by colour so that every trail
// segment drawn in the same colour shares one material.
package material

import (
	"fmt"
	"sort"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// DefaultAlpha is the opacity of a material outside ghost mode.
const DefaultAlpha = 1.0

// GhostAlpha is the opacity used by the ghost toggle.
const GhostAlpha = 0.25

// Key identifies a material by its colour quantised to 8 bits per channel.
type Key struct {
	R, G, B uint8
}

// KeyOf quantises c. Out-of-gamut colours are clamped first.
func KeyOf(c colorful.Color) Key {
	r, g, b := c.Clamped().RGB255()
	return Key{R: r, G: g, B: b}
}

// Color returns the colour the key stands for.
func (k Key) Color() colorful.Color {
	return colorful.Color{R: float64(k.R) / 255, G: float64(k.G) / 255, B: float64(k.B) / 255}
}

func (k Key) String() string {
	return fmt.Sprintf("#%02x%02x%02x", k.R, k.G, k.B)
}

// Material is a shared render material.
type Material struct {
	Key       Key
	Color     colorful.Color
	Name      string
	Wireframe bool
	Alpha     float64
}

// Transparent reports whether the material is drawn see-through.
func (m *Material) Transparent() bool { return m.Alpha < 1 }

// Cache dedupes materials by Key. It is not safe for concurrent use.
type Cache struct {
	byKey     map[Key]*Material
	wireframe bool
	alpha     float64
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{byKey: make(map[Key]*Material), alpha: DefaultAlpha}
}

// Get returns the material for c, creating it on first use. Colours that
// quantise to the same key share one material.
func (c *Cache) Get(col colorful.Color) *Material {
	k := KeyOf(col)
	if m, ok := c.byKey[k]; ok {
		return m
	}
	m := &Material{
		Key:       k,
		Color:     k.Color(),
		Name:      "trail " + k.String(),
		Wireframe: c.wireframe,
		Alpha:     c.alpha,
	}
	c.byKey[k] = m
	return m
}

// Len returns the number of distinct materials.
func (c *Cache) Len() int { return len(c.byKey) }

// Materials returns the cached materials ordered by key.
func (c *Cache) Materials() []*Material {
	out := make([]*Material, 0, len(c.byKey))
	for _, m := range c.byKey {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

// SetWireframe toggles wireframe drawing for every cached and future material.
func (c *Cache) SetWireframe(on bool) {
	c.wireframe = on
	for _, m := range c.byKey {
		m.Wireframe = on
	}
}

// Wireframe reports whether wireframe mode is on.
func (c *Cache) Wireframe() bool { return c.wireframe }

// SetAlpha sets the opacity of every cached and future material. Values
// are clamped to [0, 1].
func (c *Cache) SetAlpha(a float64) {
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	c.alpha = a
	for _, m := range c.byKey {
		m.Alpha = a
	}
}

// SetGhost switches between GhostAlpha and DefaultAlpha.
func (c *Cache) SetGhost(on bool) {
	if on {
		c.SetAlpha(GhostAlpha)
		return
	}
	c.SetAlpha(DefaultAlpha)
}

// Clear drops every material, keeping the display modes.
func (c *Cache) Clear() {
	c.byKey = make(map[Key]*Material)
}

// ParseColor parses "#rrggbb" (the leading # is optional).
func ParseColor(s string) (colorful.Color, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("material: parsing colour %q: %w", s, err)
	}
	return c, nil
}

// RGB builds a colour from 0-255 channel values, clamped.
func RGB(r, g, b float64) colorful.Color {
	return colorful.Color{R: r / 255, G: g / 255, B: b / 255}.Clamped()
}
