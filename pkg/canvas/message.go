package canvas

import (
	"sync/atomic"

	"github.com/antibyte/turtleterm/pkg/logger"
	"github.com/antibyte/turtleterm/pkg/shared"
	"github.com/antibyte/turtleterm/pkg/turtle"
)

// MessageCanvas turns canvas calls into GRAPHICS messages for a browser
// client. Sends never block: when the channel is full the message is
// dropped and counted.
type MessageCanvas struct {
	out       chan<- shared.Message
	sessionID string
	dropped   int64
}

// NewMessageCanvas sends to out, tagging messages with sessionID.
func NewMessageCanvas(out chan<- shared.Message, sessionID string) *MessageCanvas {
	return &MessageCanvas{out: out, sessionID: sessionID}
}

// Dropped returns how many messages did not fit into the channel.
func (m *MessageCanvas) Dropped() int64 {
	return atomic.LoadInt64(&m.dropped)
}

func (m *MessageCanvas) send(command string, params map[string]interface{}) bool {
	msg := shared.Message{
		Type:      shared.MessageTypeGraphics,
		Command:   command,
		Params:    params,
		SessionID: m.sessionID,
	}
	select {
	case m.out <- msg:
		return true
	default:
		n := atomic.AddInt64(&m.dropped, 1)
		logger.Debug(logger.AreaCanvas, "session %s: dropped %s message (%d dropped so far)", m.sessionID, command, n)
		return false
	}
}

func penParams(params map[string]interface{}, pen turtle.Pen, fill bool) map[string]interface{} {
	params["color"] = pen.Color.Hex()
	params["width"] = pen.Width
	params["fill"] = fill
	if pen.Rotation != 0 {
		params["rotation"] = pen.Rotation
	}
	return params
}

func (m *MessageCanvas) MoveCursor(p turtle.Point) {
	m.send(shared.GraphicsMove, map[string]interface{}{"x": p.X, "y": p.Y})
}

func (m *MessageCanvas) DrawLine(from, to turtle.Point, pen turtle.Pen) {
	m.send(shared.GraphicsLine, penParams(map[string]interface{}{
		"x1": from.X, "y1": from.Y, "x2": to.X, "y2": to.Y,
	}, pen, false))
}

func (m *MessageCanvas) rect(pos turtle.Point, w, h float64, pen turtle.Pen, fill bool) {
	m.send(shared.GraphicsRect, penParams(map[string]interface{}{
		"x": pos.X, "y": pos.Y, "w": w, "h": h,
	}, pen, fill))
}

func (m *MessageCanvas) DrawRect(pos turtle.Point, w, h float64, pen turtle.Pen) {
	m.rect(pos, w, h, pen, false)
}

func (m *MessageCanvas) FillRect(pos turtle.Point, w, h float64, pen turtle.Pen) {
	m.rect(pos, w, h, pen, true)
}

func (m *MessageCanvas) ellipse(c turtle.Point, rx, ry float64, pen turtle.Pen, fill bool) {
	m.send(shared.GraphicsEllipse, penParams(map[string]interface{}{
		"cx": c.X, "cy": c.Y, "rx": rx, "ry": ry,
	}, pen, fill))
}

func (m *MessageCanvas) DrawEllipse(center turtle.Point, rx, ry float64, pen turtle.Pen) {
	m.ellipse(center, rx, ry, pen, false)
}

func (m *MessageCanvas) FillEllipse(center turtle.Point, rx, ry float64, pen turtle.Pen) {
	m.ellipse(center, rx, ry, pen, true)
}

func (m *MessageCanvas) polygon(points []turtle.Point, pen turtle.Pen, fill bool) {
	pts := make([][2]float64, len(points))
	for i, p := range points {
		pts[i] = [2]float64{p.X, p.Y}
	}
	m.send(shared.GraphicsPolygon, penParams(map[string]interface{}{"points": pts}, pen, fill))
}

func (m *MessageCanvas) DrawPolygon(points []turtle.Point, pen turtle.Pen) {
	m.polygon(points, pen, false)
}

func (m *MessageCanvas) FillPolygon(points []turtle.Point, pen turtle.Pen) {
	m.polygon(points, pen, true)
}

func (m *MessageCanvas) DrawText(text string, pos turtle.Point, color turtle.Color) {
	m.send(shared.GraphicsText, map[string]interface{}{
		"x": pos.X, "y": pos.Y, "text": text, "color": color.Hex(),
	})
}

func (m *MessageCanvas) Clear(color turtle.Color) {
	m.send(shared.GraphicsClear, map[string]interface{}{"color": color.Hex()})
}

func (m *MessageCanvas) Refresh() {
	m.send(shared.GraphicsRefresh, nil)
}
