package turtle

import (
	"fmt"
	"strings"
)

// Point is a position on the drawing surface.
type Point struct {
	X float64
	Y float64
}

// Color is an opaque RGB color.
type Color struct {
	R, G, B uint8
}

// Hex renders the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

var (
	Black = Color{0, 0, 0}
	White = Color{255, 255, 255}
)

var namedColors = map[string]Color{
	"black":   Black,
	"white":   White,
	"red":     {255, 0, 0},
	"green":   {0, 128, 0},
	"blue":    {0, 0, 255},
	"yellow":  {255, 255, 0},
	"orange":  {255, 165, 0},
	"purple":  {128, 0, 128},
	"pink":    {255, 192, 203},
	"cyan":    {0, 255, 255},
	"magenta": {255, 0, 255},
	"gray":    {128, 128, 128},
	"grey":    {128, 128, 128},
	"brown":   {165, 42, 42},
}

// ParseColor accepts a color name (case-insensitive) or #rrggbb.
func ParseColor(s string) (Color, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, true
	}
	if len(s) == 7 && s[0] == '#' {
		var c Color
		if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B); err == nil {
			return c, true
		}
	}
	return Color{}, false
}

// Pen carries the stroke attributes passed to every drawing primitive.
type Pen struct {
	Color    Color
	Width    float64
	Rotation float64 // degrees, applied by the canvas
}

// PenState is the drawing state owned by the interpreter.
type PenState struct {
	Position  Point
	Color     Color
	Width     float64
	Fill      bool
	Rotation  float64
	TextColor Color
}

// DefaultPenState is the state at the start of every run.
func DefaultPenState() PenState {
	return PenState{
		Color:     Black,
		Width:     1,
		TextColor: Black,
	}
}

// Pen returns the stroke attributes of the current state.
func (s PenState) Pen() Pen {
	return Pen{Color: s.Color, Width: s.Width, Rotation: s.Rotation}
}

// Canvas is the drawing surface the interpreter renders onto. The
// interpreter never calls a Canvas from more than one goroutine at a time.
type Canvas interface {
	MoveCursor(p Point)
	DrawLine(from, to Point, pen Pen)
	DrawRect(pos Point, w, h float64, pen Pen)
	FillRect(pos Point, w, h float64, pen Pen)
	DrawEllipse(center Point, rx, ry float64, pen Pen)
	FillEllipse(center Point, rx, ry float64, pen Pen)
	DrawPolygon(points []Point, pen Pen)
	FillPolygon(points []Point, pen Pen)
	DrawText(text string, pos Point, color Color)
	Clear(color Color)
	Refresh()
}
