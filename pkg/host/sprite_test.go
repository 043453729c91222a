package host

import (
	"testing"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
)

func TestSpriteNotifiesInOrder(t *testing.T) {
	s := NewSprite("beetle")
	assert.Equal(t, "beetle", s.Name())
	assert.Equal(t, DefaultColor, s.Color())

	var got []string
	s.OnColorChange(func(c colorful.Color) { got = append(got, "a:"+c.Hex()) })
	s.OnColorChange(func(c colorful.Color) { got = append(got, "b:"+c.Hex()) })

	s.SetColor(colorful.Color{R: 1})
	assert.Equal(t, []string{"a:#ff0000", "b:#ff0000"}, got)
	assert.Equal(t, colorful.Color{R: 1}, s.Color())
}

func TestSpriteSkipsUnchangedColour(t *testing.T) {
	s := NewSprite("beetle")
	calls := 0
	s.OnColorChange(func(colorful.Color) { calls++ })
	s.SetColor(DefaultColor)
	assert.Zero(t, calls)
}

func TestSpriteCancel(t *testing.T) {
	s := NewSprite("beetle")
	calls := 0
	cancel := s.OnColorChange(func(colorful.Color) { calls++ })
	assert.Equal(t, 1, s.Subscribers())

	cancel()
	cancel()
	assert.Zero(t, s.Subscribers())

	s.SetColor(colorful.Color{G: 1})
	assert.Zero(t, calls)
}

func TestSubscriberMayReadColour(t *testing.T) {
	s := NewSprite("beetle")
	var seen colorful.Color
	s.OnColorChange(func(colorful.Color) { seen = s.Color() })
	s.SetColor(colorful.Color{B: 1})
	assert.Equal(t, colorful.Color{B: 1}, seen, "callbacks run outside the lock")
}
