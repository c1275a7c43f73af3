package canvas

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"

	svg "github.com/ajstarks/svgo"

	"github.com/antibyte/turtleterm/pkg/configuration"
	"github.com/antibyte/turtleterm/pkg/turtle"
)

// SVGCanvas records a drawing and renders it as a standalone SVG document.
// SVG coordinates are integers, so positions and sizes are rounded.
type SVGCanvas struct {
	*Recorder
	Width, Height int
	Title         string
}

// NewSVGCanvas returns an empty drawing of the given size.
func NewSVGCanvas(width, height int) *SVGCanvas {
	return &SVGCanvas{Recorder: NewRecorder(), Width: width, Height: height}
}

// DefaultSize reads canvas_width and canvas_height from [Interpreter].
func DefaultSize() (int, int) {
	return configuration.GetInt("Interpreter", "canvas_width", 640),
		configuration.GetInt("Interpreter", "canvas_height", 480)
}

// Render writes the drawing to w. Everything before the last clear is
// painted over, so only what follows it is emitted.
func (c *SVGCanvas) Render(w io.Writer) error {
	ops := c.Ops()
	background := turtle.White
	start := 0
	for i, op := range ops {
		if op.Kind == OpClear {
			background = op.Color
			start = i + 1
		}
	}

	var buf bytes.Buffer
	doc := svg.New(&buf)
	doc.Start(c.Width, c.Height)
	if c.Title != "" {
		doc.Title(c.Title)
	}
	doc.Rect(0, 0, c.Width, c.Height, "fill:"+background.Hex())

	for _, op := range ops[start:] {
		renderOp(doc, op)
	}
	doc.End()

	_, err := w.Write(buf.Bytes())
	return err
}

// SVG renders the drawing into a string.
func (c *SVGCanvas) SVG() (string, error) {
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderScript runs script on a fresh interpreter and returns the SVG
// document of the finished drawing.
func RenderScript(ctx context.Context, script, title string) (string, error) {
	c := NewSVGCanvas(DefaultSize())
	c.Title = title
	if err := turtle.NewInterpreter(c).Execute(ctx, script); err != nil {
		return "", err
	}
	return c.SVG()
}

func px(v float64) int {
	return int(math.Round(v))
}

func strokeStyle(pen turtle.Pen, fill bool) string {
	fillValue := "none"
	if fill {
		fillValue = pen.Color.Hex()
	}
	return fmt.Sprintf("stroke:%s;stroke-width:%s;fill:%s",
		pen.Color.Hex(), strconv.FormatFloat(pen.Width, 'f', -1, 64), fillValue)
}

// rotation returns a transform attribute turning a shape around (x, y):
// the corner of a rectangle, the centre of an ellipse or the first point
// of a line or polygon.
func rotation(pen turtle.Pen, x, y int) []string {
	if pen.Rotation == 0 {
		return nil
	}
	return []string{fmt.Sprintf(`transform="rotate(%s %d %d)"`,
		strconv.FormatFloat(pen.Rotation, 'f', -1, 64), x, y)}
}

func renderOp(doc *svg.SVG, op Op) {
	switch op.Kind {
	case OpLine:
		from, to := op.Points[0], op.Points[1]
		x, y := px(from.X), px(from.Y)
		attrs := append([]string{strokeStyle(op.Pen, false)}, rotation(op.Pen, x, y)...)
		doc.Line(x, y, px(to.X), px(to.Y), attrs...)
	case OpRect:
		x, y := px(op.Points[0].X), px(op.Points[0].Y)
		attrs := append([]string{strokeStyle(op.Pen, op.Fill)}, rotation(op.Pen, x, y)...)
		doc.Rect(x, y, px(op.W), px(op.H), attrs...)
	case OpEllipse:
		x, y := px(op.Points[0].X), px(op.Points[0].Y)
		attrs := append([]string{strokeStyle(op.Pen, op.Fill)}, rotation(op.Pen, x, y)...)
		doc.Ellipse(x, y, px(op.W), px(op.H), attrs...)
	case OpPolygon:
		xs := make([]int, len(op.Points))
		ys := make([]int, len(op.Points))
		for i, p := range op.Points {
			xs[i], ys[i] = px(p.X), px(p.Y)
		}
		attrs := append([]string{strokeStyle(op.Pen, op.Fill)}, rotation(op.Pen, xs[0], ys[0])...)
		doc.Polygon(xs, ys, attrs...)
	case OpText:
		doc.Text(px(op.Points[0].X), px(op.Points[0].Y), op.Text, "fill:"+op.Color.Hex())
	}
}
