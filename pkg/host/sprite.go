// Package host models the visual-programming agent a beetle is attached
// to. The beetle follows the sprite's colour by subscribing to changes
// rather than patching the sprite's methods.
package host

import (
	"sync"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// DefaultColor is the colour a new sprite starts with.
var DefaultColor = colorful.Color{R: 0.56, G: 0.32, B: 0.86}

// ColorFunc is called with the sprite's new colour.
type ColorFunc func(colorful.Color)

// Sprite is the host agent. It is safe for concurrent use.
type Sprite struct {
	mu     sync.Mutex
	name   string
	color  colorful.Color
	nextID int
	subs   map[int]ColorFunc
}

// NewSprite returns a sprite with DefaultColor.
func NewSprite(name string) *Sprite {
	return &Sprite{name: name, color: DefaultColor, subs: make(map[int]ColorFunc)}
}

// Name returns the sprite's name.
func (s *Sprite) Name() string { return s.name }

// Color returns the current colour.
func (s *Sprite) Color() colorful.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.color
}

// SetColor changes the colour and notifies subscribers. Subscribers run
// on the caller's goroutine, outside the sprite's lock, and are not
// called when the colour is unchanged.
func (s *Sprite) SetColor(c colorful.Color) {
	s.mu.Lock()
	if s.color == c {
		s.mu.Unlock()
		return
	}
	s.color = c
	fns := make([]ColorFunc, 0, len(s.subs))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// OnColorChange registers fn and returns a function that removes it.
// Calling the cancel function more than once is harmless.
func (s *Sprite) OnColorChange(fn ColorFunc) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Subscribers returns the number of registered callbacks.
func (s *Sprite) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
