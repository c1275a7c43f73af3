package canvas

import "github.com/antibyte/turtleterm/pkg/turtle"

// multiCanvas forwards every call to each of its targets in order.
type multiCanvas []turtle.Canvas

// Multi returns a canvas that draws on all of targets.
func Multi(targets ...turtle.Canvas) turtle.Canvas {
	return multiCanvas(append([]turtle.Canvas(nil), targets...))
}

func (m multiCanvas) MoveCursor(p turtle.Point) {
	for _, c := range m {
		c.MoveCursor(p)
	}
}

func (m multiCanvas) DrawLine(from, to turtle.Point, pen turtle.Pen) {
	for _, c := range m {
		c.DrawLine(from, to, pen)
	}
}

func (m multiCanvas) DrawRect(pos turtle.Point, w, h float64, pen turtle.Pen) {
	for _, c := range m {
		c.DrawRect(pos, w, h, pen)
	}
}

func (m multiCanvas) FillRect(pos turtle.Point, w, h float64, pen turtle.Pen) {
	for _, c := range m {
		c.FillRect(pos, w, h, pen)
	}
}

func (m multiCanvas) DrawEllipse(center turtle.Point, rx, ry float64, pen turtle.Pen) {
	for _, c := range m {
		c.DrawEllipse(center, rx, ry, pen)
	}
}

func (m multiCanvas) FillEllipse(center turtle.Point, rx, ry float64, pen turtle.Pen) {
	for _, c := range m {
		c.FillEllipse(center, rx, ry, pen)
	}
}

func (m multiCanvas) DrawPolygon(points []turtle.Point, pen turtle.Pen) {
	for _, c := range m {
		c.DrawPolygon(points, pen)
	}
}

func (m multiCanvas) FillPolygon(points []turtle.Point, pen turtle.Pen) {
	for _, c := range m {
		c.FillPolygon(points, pen)
	}
}

func (m multiCanvas) DrawText(text string, pos turtle.Point, color turtle.Color) {
	for _, c := range m {
		c.DrawText(text, pos, color)
	}
}

func (m multiCanvas) Clear(color turtle.Color) {
	for _, c := range m {
		c.Clear(color)
	}
}

func (m multiCanvas) Refresh() {
	for _, c := range m {
		c.Refresh()
	}
}
