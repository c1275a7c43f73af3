// Package canvas provides the drawing surfaces a turtle.Interpreter can
// target: a message stream for browser clients, an SVG renderer and an
// in-memory recorder that can replay a drawing onto any other surface.
package canvas

import (
	"sync"

	"github.com/antibyte/turtleterm/pkg/turtle"
)

// OpKind identifies a recorded primitive.
type OpKind int

const (
	OpMove OpKind = iota
	OpLine
	OpRect
	OpEllipse
	OpPolygon
	OpText
	OpClear
	OpRefresh
)

var opNames = [...]string{"move", "line", "rect", "ellipse", "polygon", "text", "clear", "refresh"}

func (k OpKind) String() string {
	if int(k) < len(opNames) {
		return opNames[k]
	}
	return "unknown"
}

// Op is one recorded canvas call. Points holds the cursor or line end
// points, the rectangle corner, the ellipse centre or the polygon corners.
type Op struct {
	Kind   OpKind
	Points []turtle.Point
	W, H   float64 // rect size or ellipse radii
	Pen    turtle.Pen
	Fill   bool
	Text   string
	Color  turtle.Color // text or clear colour
}

// Recorder keeps every call made to it. It is safe for concurrent use.
type Recorder struct {
	mu  sync.Mutex
	ops []Op
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(op Op) {
	r.mu.Lock()
	r.ops = append(r.ops, op)
	r.mu.Unlock()
}

func (r *Recorder) MoveCursor(p turtle.Point) {
	r.add(Op{Kind: OpMove, Points: []turtle.Point{p}})
}

func (r *Recorder) DrawLine(from, to turtle.Point, pen turtle.Pen) {
	r.add(Op{Kind: OpLine, Points: []turtle.Point{from, to}, Pen: pen})
}

func (r *Recorder) DrawRect(pos turtle.Point, w, h float64, pen turtle.Pen) {
	r.add(Op{Kind: OpRect, Points: []turtle.Point{pos}, W: w, H: h, Pen: pen})
}

func (r *Recorder) FillRect(pos turtle.Point, w, h float64, pen turtle.Pen) {
	r.add(Op{Kind: OpRect, Points: []turtle.Point{pos}, W: w, H: h, Pen: pen, Fill: true})
}

func (r *Recorder) DrawEllipse(center turtle.Point, rx, ry float64, pen turtle.Pen) {
	r.add(Op{Kind: OpEllipse, Points: []turtle.Point{center}, W: rx, H: ry, Pen: pen})
}

func (r *Recorder) FillEllipse(center turtle.Point, rx, ry float64, pen turtle.Pen) {
	r.add(Op{Kind: OpEllipse, Points: []turtle.Point{center}, W: rx, H: ry, Pen: pen, Fill: true})
}

func (r *Recorder) DrawPolygon(points []turtle.Point, pen turtle.Pen) {
	r.add(Op{Kind: OpPolygon, Points: append([]turtle.Point(nil), points...), Pen: pen})
}

func (r *Recorder) FillPolygon(points []turtle.Point, pen turtle.Pen) {
	r.add(Op{Kind: OpPolygon, Points: append([]turtle.Point(nil), points...), Pen: pen, Fill: true})
}

func (r *Recorder) DrawText(text string, pos turtle.Point, color turtle.Color) {
	r.add(Op{Kind: OpText, Points: []turtle.Point{pos}, Text: text, Color: color})
}

func (r *Recorder) Clear(color turtle.Color) {
	r.add(Op{Kind: OpClear, Color: color})
}

func (r *Recorder) Refresh() {
	r.add(Op{Kind: OpRefresh})
}

// Ops returns a copy of everything recorded so far.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Op, len(r.ops))
	copy(out, r.ops)
	return out
}

// Len returns the number of recorded ops.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ops)
}

// Reset drops all recorded ops.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.ops = nil
	r.mu.Unlock()
}

// Replay issues the recorded ops, in order, against dst.
func (r *Recorder) Replay(dst turtle.Canvas) {
	for _, op := range r.Ops() {
		apply(dst, op)
	}
}

func apply(dst turtle.Canvas, op Op) {
	switch op.Kind {
	case OpMove:
		dst.MoveCursor(op.Points[0])
	case OpLine:
		dst.DrawLine(op.Points[0], op.Points[1], op.Pen)
	case OpRect:
		if op.Fill {
			dst.FillRect(op.Points[0], op.W, op.H, op.Pen)
		} else {
			dst.DrawRect(op.Points[0], op.W, op.H, op.Pen)
		}
	case OpEllipse:
		if op.Fill {
			dst.FillEllipse(op.Points[0], op.W, op.H, op.Pen)
		} else {
			dst.DrawEllipse(op.Points[0], op.W, op.H, op.Pen)
		}
	case OpPolygon:
		if op.Fill {
			dst.FillPolygon(op.Points, op.Pen)
		} else {
			dst.DrawPolygon(op.Points, op.Pen)
		}
	case OpText:
		dst.DrawText(op.Text, op.Points[0], op.Color)
	case OpClear:
		dst.Clear(op.Color)
	case OpRefresh:
		dst.Refresh()
	}
}
