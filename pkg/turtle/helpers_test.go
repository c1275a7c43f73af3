package turtle

import (
	"fmt"
	"strings"
)

// recordingCanvas logs every primitive as a short text line.
type recordingCanvas struct {
	ops       []string
	refreshes int
}

func (r *recordingCanvas) add(format string, args ...interface{}) {
	r.ops = append(r.ops, fmt.Sprintf(format, args...))
}

func (r *recordingCanvas) MoveCursor(p Point) { r.add("move %g %g", p.X, p.Y) }
func (r *recordingCanvas) DrawLine(from, to Point, pen Pen) {
	r.add("line %g %g %g %g %s %g", from.X, from.Y, to.X, to.Y, pen.Color.Hex(), pen.Width)
}
func (r *recordingCanvas) DrawRect(pos Point, w, h float64, pen Pen) {
	r.add("rect %g %g %g %g", pos.X, pos.Y, w, h)
}
func (r *recordingCanvas) FillRect(pos Point, w, h float64, pen Pen) {
	r.add("fillrect %g %g %g %g", pos.X, pos.Y, w, h)
}
func (r *recordingCanvas) DrawEllipse(c Point, rx, ry float64, pen Pen) {
	r.add("ellipse %g %g %g %g", c.X, c.Y, rx, ry)
}
func (r *recordingCanvas) FillEllipse(c Point, rx, ry float64, pen Pen) {
	r.add("fillellipse %g %g %g %g", c.X, c.Y, rx, ry)
}
func (r *recordingCanvas) DrawPolygon(points []Point, pen Pen) {
	r.add("polygon %v", points)
}
func (r *recordingCanvas) FillPolygon(points []Point, pen Pen) {
	r.add("fillpolygon %v", points)
}
func (r *recordingCanvas) DrawText(text string, pos Point, color Color) {
	r.add("text %g %g %s %s", pos.X, pos.Y, color.Hex(), text)
}
func (r *recordingCanvas) Clear(color Color) { r.add("clear %s", color.Hex()) }
func (r *recordingCanvas) Refresh()          { r.refreshes++ }

// drawOps returns the ops without cursor moves.
func (r *recordingCanvas) drawOps() []string {
	var out []string
	for _, op := range r.ops {
		if !strings.HasPrefix(op, "move ") {
			out = append(out, op)
		}
	}
	return out
}

// newTestInterpreter creates an interpreter with a recording canvas and
// fixed limits.
func newTestInterpreter() (*Interpreter, *recordingCanvas) {
	canvas := &recordingCanvas{}
	it := NewInterpreter(canvas)
	it.SetLimits(Limits{MaxCallDepth: 8, MaxExecutedLines: 1000})
	it.SetSessionID("test-session")
	return it, canvas
}

func script(lines ...string) string {
	return strings.Join(lines, "\n")
}
