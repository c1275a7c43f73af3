package canvas

import (
	"context"
	"strings"
	"testing"

	"github.com/antibyte/turtleterm/pkg/shared"
	"github.com/antibyte/turtleterm/pkg/turtle"
)

const house = `color blue
moveto 10 10
rectangle 100 80
fill on
color red
triangle 10 10 110 10 60 -30
moveto 20 40
textcolor green
text home & garden`

func runScript(t *testing.T, c turtle.Canvas, script string) {
	t.Helper()
	it := turtle.NewInterpreter(c)
	if err := it.Execute(context.Background(), script); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
}

func TestMessageCanvas(t *testing.T) {
	out := make(chan shared.Message, 64)
	runScript(t, NewMessageCanvas(out, "abc"), house)
	close(out)

	var commands []string
	for msg := range out {
		if msg.Type != shared.MessageTypeGraphics {
			t.Errorf("Expected graphics message, got type %d", msg.Type)
		}
		if msg.SessionID != "abc" {
			t.Errorf("Expected session id abc, got %q", msg.SessionID)
		}
		commands = append(commands, msg.Command)
		if msg.Command == shared.GraphicsRect {
			if msg.Params["w"] != 100.0 || msg.Params["color"] != "#0000ff" || msg.Params["fill"] != false {
				t.Errorf("Unexpected RECT params %v", msg.Params)
			}
		}
		if msg.Command == shared.GraphicsPolygon {
			pts, ok := msg.Params["points"].([][2]float64)
			if !ok || len(pts) != 3 || pts[2] != [2]float64{60, -30} {
				t.Errorf("Unexpected POLYGON points %v", msg.Params["points"])
			}
		}
	}

	expected := []string{"MOVE", "RECT", "REFRESH", "POLYGON", "REFRESH", "MOVE", "TEXT", "REFRESH", "REFRESH"}
	if strings.Join(commands, " ") != strings.Join(expected, " ") {
		t.Errorf("Unexpected command sequence\n got  %v\n want %v", commands, expected)
	}
}

func TestMessageCanvasDropsWhenFull(t *testing.T) {
	out := make(chan shared.Message, 1)
	c := NewMessageCanvas(out, "s")
	c.Refresh()
	c.Refresh()
	c.Refresh()
	if c.Dropped() != 2 {
		t.Errorf("Expected 2 dropped messages, got %d", c.Dropped())
	}
}

func TestRecorderReplay(t *testing.T) {
	rec := NewRecorder()
	runScript(t, rec, house)

	copyRec := NewRecorder()
	rec.Replay(copyRec)
	if copyRec.Len() != rec.Len() {
		t.Fatalf("Expected %d replayed ops, got %d", rec.Len(), copyRec.Len())
	}
	a, b := rec.Ops(), copyRec.Ops()
	for i := range a {
		if a[i].Kind != b[i].Kind || a[i].Fill != b[i].Fill || a[i].Text != b[i].Text {
			t.Errorf("Op %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}

	rec.Reset()
	if rec.Len() != 0 {
		t.Error("Expected empty recorder after Reset")
	}
}

func TestMultiForwardsToAll(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	runScript(t, Multi(a, b), "circle 5")
	if a.Len() == 0 || a.Len() != b.Len() {
		t.Errorf("Expected both recorders to receive the same ops, got %d and %d", a.Len(), b.Len())
	}
}

func TestSVGCanvasRender(t *testing.T) {
	c := NewSVGCanvas(200, 150)
	c.Title = "house"
	runScript(t, c, house)

	doc, err := c.SVG()
	if err != nil {
		t.Fatalf("SVG failed: %v", err)
	}
	for _, want := range []string{
		`<svg`,
		`width="200"`,
		`<title>house</title>`,
		`<rect x="10" y="10" width="100" height="80" style="stroke:#0000ff;stroke-width:1;fill:none"`,
		`<polygon points="10,10 110,10 60,-30`,
		`fill:#ff0000`,
		`home &amp; garden`,
		`</svg>`,
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("Expected SVG to contain %q\n%s", want, doc)
		}
	}
}

func TestSVGCanvasClearDropsEarlierShapes(t *testing.T) {
	c := NewSVGCanvas(50, 50)
	runScript(t, c, "circle 5\nclear\nlinewidth 2.5\nrotate 45\nrectangle 4 4")

	doc, err := c.SVG()
	if err != nil {
		t.Fatalf("SVG failed: %v", err)
	}
	if strings.Contains(doc, "<ellipse") {
		t.Error("Shapes before clear must not be rendered")
	}
	if !strings.Contains(doc, "stroke-width:2.5") || !strings.Contains(doc, `transform="rotate(45 0 0)"`) {
		t.Errorf("Expected width and rotation on the rectangle\n%s", doc)
	}
}

func TestSVGCanvasRotatesLinesAndPolygons(t *testing.T) {
	c := NewSVGCanvas(100, 100)
	runScript(t, c, "rotate 30\nmoveto 10 20\ndrawto 40 20\ntriangle 50 50 70 50 60 70")

	doc, err := c.SVG()
	if err != nil {
		t.Fatalf("SVG failed: %v", err)
	}
	for _, want := range []string{`transform="rotate(30 10 20)"`, `transform="rotate(30 50 50)"`} {
		if !strings.Contains(doc, want) {
			t.Errorf("Expected SVG to contain %q\n%s", want, doc)
		}
	}
}

func TestRenderScript(t *testing.T) {
	doc, err := RenderScript(context.Background(), "moveto 5 5\nsquare 10", "box")
	if err != nil {
		t.Fatalf("RenderScript failed: %v", err)
	}
	if !strings.Contains(doc, `width="640"`) || !strings.Contains(doc, "<title>box</title>") {
		t.Errorf("Expected default size and title\n%s", doc)
	}

	_, err = RenderScript(context.Background(), "moveto 5 5\nbogus", "")
	if turtle.KindOf(err) != turtle.KindUnknownCommand {
		t.Errorf("Expected UnknownCommand, got %v", err)
	}
}
