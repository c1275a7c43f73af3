package turtle

// Drawing commands. Each successful draw refreshes the canvas.

func (it *Interpreter) cmdMoveTo(c MoveTo) error {
	v, err := it.eval.Values(c.X, c.Y)
	if err != nil {
		return err
	}
	it.pen.Position = Point{X: v[0], Y: v[1]}
	it.canvas.MoveCursor(it.pen.Position)
	return nil
}

func (it *Interpreter) cmdDrawTo(c DrawTo) error {
	v, err := it.eval.Values(c.X, c.Y)
	if err != nil {
		return err
	}
	to := Point{X: v[0], Y: v[1]}
	it.canvas.DrawLine(it.pen.Position, to, it.pen.Pen())
	it.pen.Position = to
	it.canvas.MoveCursor(to)
	it.canvas.Refresh()
	return nil
}

func (it *Interpreter) cmdRectangle(w, h Operand) error {
	v, err := it.eval.Values(w, h)
	if err != nil {
		return err
	}
	if v[0] < 0 || v[1] < 0 {
		return malformed("rectangle", "rectangle size must not be negative (%g x %g)", v[0], v[1])
	}
	if it.pen.Fill {
		it.canvas.FillRect(it.pen.Position, v[0], v[1], it.pen.Pen())
	} else {
		it.canvas.DrawRect(it.pen.Position, v[0], v[1], it.pen.Pen())
	}
	it.canvas.Refresh()
	return nil
}

func (it *Interpreter) cmdCircle(c Circle) error {
	r, err := it.eval.Value(c.R)
	if err != nil {
		return err
	}
	if r < 0 {
		return malformed("circle", "radius must not be negative (%g)", r)
	}
	if it.pen.Fill {
		it.canvas.FillEllipse(it.pen.Position, r, r, it.pen.Pen())
	} else {
		it.canvas.DrawEllipse(it.pen.Position, r, r, it.pen.Pen())
	}
	it.canvas.Refresh()
	return nil
}

func (it *Interpreter) cmdTriangle(c Triangle) error {
	v, err := it.eval.Values(c.Coords[:]...)
	if err != nil {
		return err
	}
	points := []Point{{v[0], v[1]}, {v[2], v[3]}, {v[4], v[5]}}
	if it.pen.Fill {
		it.canvas.FillPolygon(points, it.pen.Pen())
	} else {
		it.canvas.DrawPolygon(points, it.pen.Pen())
	}
	it.canvas.Refresh()
	return nil
}

func (it *Interpreter) cmdLineWidth(c LineWidth) error {
	w, err := it.eval.Value(c.W)
	if err != nil {
		return err
	}
	if w <= 0 {
		return malformed("linewidth", "line width must be positive (%g)", w)
	}
	it.pen.Width = w
	return nil
}

func (it *Interpreter) cmdRotate(c Rotate) error {
	a, err := it.eval.Value(c.Angle)
	if err != nil {
		return err
	}
	it.pen.Rotation = a
	return nil
}
